/*
 * Copyright 2023 ICON Foundation
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package abi

import (
	"strings"

	gethabi "github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/icon-project/evm-codec/format"
)

var entryKeywords = map[string]EntryType{
	"function": EntryFunction,
	"event":    EntryEvent,
	"error":    EntryError,
}

var ignoredModifiers = map[string]bool{
	"memory":   true,
	"calldata": true,
	"storage":  true,
	"payable":  true,
}

// ParseSignature parses a human readable signature such as
// "transfer(address,uint256)" or "event Transfer(address indexed from, address to, uint256)".
// Keywords, parameter names, indexed flags and returns are read here; the
// bare type list goes to gethabi.ParseSelector. Names inside tuples are
// dropped.
func ParseSignature(sig string) (*Entry, error) {
	s := strings.TrimSpace(sig)
	t := EntryFunction
	if i := strings.IndexAny(s, " \t"); i > 0 && i < strings.Index(s, "(") {
		if kt, ok := entryKeywords[s[:i]]; ok {
			t = kt
			s = strings.TrimSpace(s[i:])
		}
	}
	i := strings.Index(s, "(")
	if i <= 0 {
		return nil, format.ErrorCodeInvalidValue.Errorf("fail ParseSignature, invalid signature %q", sig)
	}
	name := strings.TrimSpace(s[:i])
	inputs, rest, err := parseParameters(name, s[i:])
	if err != nil {
		return nil, err
	}
	var outputs []Parameter
	anonymous := false
	rest = strings.TrimSpace(rest)
	switch {
	case rest == "":
	case rest == "anonymous" && t == EntryEvent:
		anonymous = true
	case strings.HasPrefix(rest, "returns") && t == EntryFunction:
		var tail string
		if outputs, tail, err = parseParameters(name, strings.TrimSpace(rest[len("returns"):])); err != nil {
			return nil, err
		}
		if strings.TrimSpace(tail) != "" {
			return nil, format.ErrorCodeInvalidValue.Errorf("fail ParseSignature, unexpected %q", tail)
		}
	default:
		return nil, format.ErrorCodeInvalidValue.Errorf("fail ParseSignature, unexpected %q", rest)
	}
	mutability := ""
	if t == EntryFunction {
		mutability = string(format.MutabilityNonPayable)
	}
	e := &Entry{Type: t, Name: name, Inputs: inputs, Outputs: outputs, StateMutability: mutability, Anonymous: anonymous}
	if err = e.bind(); err != nil {
		return nil, err
	}
	return e, nil
}

// parseParameters reads the parenthesized list at the start of s and returns
// the parameters with the rest of s.
func parseParameters(name, s string) ([]Parameter, string, error) {
	items, rest, err := splitList(s)
	if err != nil {
		return nil, "", err
	}
	types := make([]string, len(items))
	names := make([]string, len(items))
	indexed := make([]bool, len(items))
	for i, item := range items {
		var mods []string
		if types[i], mods, err = bareType(item); err != nil {
			return nil, "", err
		}
		for _, w := range mods {
			switch {
			case w == "indexed":
				indexed[i] = true
			case ignoredModifiers[w]:
			case names[i] == "":
				names[i] = w
			default:
				return nil, "", format.ErrorCodeInvalidValue.Errorf("fail ParseSignature, unexpected %q in %q", w, item)
			}
		}
	}
	m, err := gethabi.ParseSelector(name + "(" + strings.Join(types, ",") + ")")
	if err != nil {
		return nil, "", format.ErrorCodeInvalidValue.Wrapf(err, "fail ParseSignature, invalid %q", s)
	}
	params := make([]Parameter, len(m.Inputs))
	for i, in := range m.Inputs {
		params[i] = selectorParameter(in)
		params[i].Name, params[i].Indexed = names[i], indexed[i]
	}
	return params, rest, nil
}

// selectorParameter drops the placeholder names and internal types which
// gethabi.ParseSelector fills in.
func selectorParameter(m gethabi.ArgumentMarshaling) Parameter {
	p := Parameter{Type: canonicalType(m.Type)}
	for _, c := range m.Components {
		p.Components = append(p.Components, selectorParameter(c))
	}
	return p
}

// splitList splits "(a, b)rest" at the top level commas.
func splitList(s string) ([]string, string, error) {
	if !strings.HasPrefix(s, "(") {
		return nil, "", format.ErrorCodeInvalidValue.Errorf("fail ParseSignature, expected '(' in %q", s)
	}
	var items []string
	depth, start := 0, 1
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				item := strings.TrimSpace(s[start:i])
				if item != "" || len(items) > 0 {
					items = append(items, item)
				}
				return items, s[i+1:], nil
			}
		case ',':
			if depth == 1 {
				items = append(items, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	return nil, "", format.ErrorCodeInvalidValue.Errorf("fail ParseSignature, unterminated %q", s)
}

// bareType splits a parameter into its type, with tuple member names and
// modifiers removed, and the words following it.
func bareType(item string) (string, []string, error) {
	if item == "" {
		return "", nil, format.ErrorCodeInvalidValue.Errorf("fail ParseSignature, empty parameter")
	}
	s := strings.TrimPrefix(item, "tuple")
	var t, rest string
	if strings.HasPrefix(strings.TrimSpace(s), "(") {
		members, tail, err := splitList(strings.TrimSpace(s))
		if err != nil {
			return "", nil, err
		}
		for i, m := range members {
			if members[i], _, err = bareType(m); err != nil {
				return "", nil, err
			}
		}
		t, rest = "("+strings.Join(members, ",")+")", tail
	} else {
		s = item
		end := strings.IndexAny(s, " \t[")
		if end < 0 {
			end = len(s)
		}
		t, rest = s[:end], s[end:]
	}
	for strings.HasPrefix(rest, "[") {
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return "", nil, format.ErrorCodeInvalidValue.Errorf("fail ParseSignature, unterminated '[' in %q", item)
		}
		t, rest = t+rest[:end+1], rest[end+1:]
	}
	return t, strings.Fields(rest), nil
}
