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

package ast

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/icon-project/btp2/common/errors"

	"github.com/icon-project/evm-codec/format"
)

// Identifier is the parsed form of a compiler type identifier such as
// "t_array$_t_uint256_$dyn_storage_ptr".
type Identifier struct {
	Class format.TypeClass
	// Bits for integer and fixed point types, Places for fixed point.
	Bits   int
	Places int
	// Length of bytesN; zero with Dynamic for bytes.
	Length      int
	Dynamic     bool
	ArrayLength *big.Int
	Payable     bool
	Location    format.Location
	Pointer     bool
	// Name and ID of the referenced struct, enum or contract.
	Name       string
	ID         int
	Base       *Identifier
	Key        *Identifier
	Value      *Identifier
	Visibility format.Visibility
	Mutability format.Mutability
	Params     []*Identifier
	Returns    []*Identifier
	Magic      format.MagicVariable
}

// IdentifierError reports a malformed type identifier.
type IdentifierError struct {
	Identifier string
	Pos        int
	Msg        string
}

func (e *IdentifierError) Error() string {
	return fmt.Sprintf("malformed type identifier %q at %d: %s", e.Identifier, e.Pos, e.Msg)
}

func (e *IdentifierError) ErrorCode() errors.Code {
	return format.ErrorCodeMalformedIdentifier
}

func ParseTypeIdentifier(s string) (*Identifier, error) {
	p := &identifierParser{s: s}
	id, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if p.pos != len(s) {
		return nil, p.errorf("unexpected trailing input")
	}
	astLogger.Tracef("ParseTypeIdentifier %s class:%s", s, id.Class)
	return id, nil
}

type identifierParser struct {
	s   string
	pos int
}

func (p *identifierParser) errorf(f string, args ...interface{}) error {
	return &IdentifierError{Identifier: p.s, Pos: p.pos, Msg: fmt.Sprintf(f, args...)}
}

func (p *identifierParser) hasPrefix(prefix string) bool {
	return strings.HasPrefix(p.s[p.pos:], prefix)
}

func (p *identifierParser) consume(prefix string) bool {
	if p.hasPrefix(prefix) {
		p.pos += len(prefix)
		return true
	}
	return false
}

func (p *identifierParser) expect(prefix string) error {
	if !p.consume(prefix) {
		return p.errorf("expected %q", prefix)
	}
	return nil
}

func (p *identifierParser) number() (int, error) {
	start := p.pos
	for p.pos < len(p.s) && p.s[p.pos] >= '0' && p.s[p.pos] <= '9' {
		p.pos++
	}
	if start == p.pos {
		return 0, p.errorf("expected number")
	}
	n, err := strconv.Atoi(p.s[start:p.pos])
	if err != nil {
		return 0, p.errorf("invalid number %s", p.s[start:p.pos])
	}
	return n, nil
}

func (p *identifierParser) word() string {
	start := p.pos
	for p.pos < len(p.s) && p.s[p.pos] >= 'a' && p.s[p.pos] <= 'z' {
		p.pos++
	}
	return p.s[start:p.pos]
}

// name reads a user-defined type name up to the "_$<id>" which follows it.
// A literal '$' in a name is escaped as "$$$".
func (p *identifierParser) name() (string, error) {
	for i := p.pos; i+2 < len(p.s); i++ {
		if p.s[i] == '_' && p.s[i+1] == '$' && p.s[i+2] >= '0' && p.s[i+2] <= '9' {
			n := strings.ReplaceAll(p.s[p.pos:i], "$$$", "$")
			if n == "" {
				return "", p.errorf("empty name")
			}
			p.pos = i
			return n, nil
		}
	}
	return "", p.errorf("unterminated name")
}

func (p *identifierParser) location(id *Identifier) {
	for _, loc := range []format.Location{format.LocationStorage, format.LocationMemory, format.LocationCalldata} {
		if p.consume("_" + string(loc)) {
			id.Location = loc
			id.Pointer = p.consume("_ptr")
			return
		}
	}
}

func (p *identifierParser) parseType() (*Identifier, error) {
	if err := p.expect("t_"); err != nil {
		return nil, err
	}
	id := &Identifier{}
	var err error
	switch {
	case p.consume("array$_"):
		id.Class = format.ClassArray
		if id.Base, err = p.parseType(); err != nil {
			return nil, err
		}
		if err = p.expect("_$"); err != nil {
			return nil, err
		}
		if p.consume("dyn") {
			id.Dynamic = true
		} else {
			start := p.pos
			if _, err = p.number(); err != nil {
				return nil, err
			}
			id.ArrayLength, _ = new(big.Int).SetString(p.s[start:p.pos], 10)
		}
		p.location(id)
	case p.consume("mapping$_"):
		id.Class = format.ClassMapping
		if id.Key, err = p.parseType(); err != nil {
			return nil, err
		}
		if err = p.expect("_$_"); err != nil {
			return nil, err
		}
		if id.Value, err = p.parseType(); err != nil {
			return nil, err
		}
		if err = p.expect("_$"); err != nil {
			return nil, err
		}
		id.Location = format.LocationStorage
	case p.consume("struct$_"):
		id.Class = format.ClassStruct
		if err = p.userDefined(id); err != nil {
			return nil, err
		}
		p.location(id)
	case p.consume("enum$_"):
		id.Class = format.ClassEnum
		if err = p.userDefined(id); err != nil {
			return nil, err
		}
	case p.consume("contract$_"):
		id.Class = format.ClassContract
		if err = p.userDefined(id); err != nil {
			return nil, err
		}
	case p.consume("function_"):
		id.Class = format.ClassFunction
		if err = p.function(id); err != nil {
			return nil, err
		}
	case p.consume("magic_"):
		id.Class = format.ClassMagic
		switch m := format.MagicVariable(p.word()); m {
		case format.MagicMessage, format.MagicTransaction, format.MagicBlock:
			id.Magic = m
		default:
			return nil, p.errorf("unsupported magic variable %s", m)
		}
	case p.consume("address"):
		id.Class = format.ClassAddress
		id.Payable = p.consume("_payable")
	case p.consume("bool"):
		id.Class = format.ClassBool
	case p.hasPrefix("stringliteral"):
		return nil, p.errorf("unsupported string literal")
	case p.consume("string"):
		id.Class = format.ClassString
		p.location(id)
	case p.consume("ufixed"):
		id.Class = format.ClassUfixed
		if err = p.fixed(id); err != nil {
			return nil, err
		}
	case p.consume("fixed"):
		id.Class = format.ClassFixed
		if err = p.fixed(id); err != nil {
			return nil, err
		}
	case p.consume("uint"):
		id.Class = format.ClassUint
		if id.Bits, err = p.bits(); err != nil {
			return nil, err
		}
	case p.consume("int"):
		id.Class = format.ClassInt
		if id.Bits, err = p.bits(); err != nil {
			return nil, err
		}
	case p.consume("bytes"):
		id.Class = format.ClassBytes
		if p.pos < len(p.s) && p.s[p.pos] >= '0' && p.s[p.pos] <= '9' {
			start := p.pos
			if id.Length, err = p.number(); err != nil {
				return nil, err
			}
			if id.Length < 1 || id.Length > 32 {
				p.pos = start
				return nil, p.errorf("invalid bytes length %d", id.Length)
			}
		} else {
			id.Dynamic = true
			p.location(id)
		}
	default:
		return nil, p.errorf("unsupported type")
	}
	return id, nil
}

func (p *identifierParser) userDefined(id *Identifier) error {
	var err error
	if id.Name, err = p.name(); err != nil {
		return err
	}
	if err = p.expect("_$"); err != nil {
		return err
	}
	id.ID, err = p.number()
	return err
}

// bits reads an integer width, a multiple of 8 in 8..256.
func (p *identifierParser) bits() (int, error) {
	start := p.pos
	n, err := p.number()
	if err != nil {
		return 0, err
	}
	if n < 8 || n > 256 || n%8 != 0 {
		p.pos = start
		return 0, p.errorf("invalid bit width %d", n)
	}
	return n, nil
}

func (p *identifierParser) fixed(id *Identifier) error {
	var err error
	if id.Bits, err = p.bits(); err != nil {
		return err
	}
	if err = p.expect("x"); err != nil {
		return err
	}
	start := p.pos
	if id.Places, err = p.number(); err != nil {
		return err
	}
	if id.Places > 80 {
		p.pos = start
		return p.errorf("invalid decimal places %d", id.Places)
	}
	return nil
}

func (p *identifierParser) function(id *Identifier) error {
	switch v := format.Visibility(p.word()); v {
	case format.VisibilityInternal, format.VisibilityExternal:
		id.Visibility = v
	default:
		return p.errorf("unsupported function kind %s", v)
	}
	if err := p.expect("_"); err != nil {
		return err
	}
	switch m := format.Mutability(p.word()); m {
	case format.MutabilityPure, format.MutabilityView, format.MutabilityNonPayable, format.MutabilityPayable:
		id.Mutability = m
	default:
		return p.errorf("unsupported mutability %s", m)
	}
	if err := p.expect("$_"); err != nil {
		return err
	}
	var err error
	if id.Params, err = p.list("_$returns$_"); err != nil {
		return err
	}
	id.Returns, err = p.list("_$")
	return err
}

// list parses types separated by "_$_" up to terminator.
func (p *identifierParser) list(terminator string) ([]*Identifier, error) {
	var l []*Identifier
	if p.consume(terminator) {
		return l, nil
	}
	for {
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		l = append(l, t)
		if p.hasPrefix("_$_t_") {
			p.pos += len("_$_")
			continue
		}
		if err = p.expect(terminator); err != nil {
			return nil, err
		}
		return l, nil
	}
}

func (id *Identifier) locationSuffix() string {
	if id.Location == format.LocationNone {
		return ""
	}
	s := "_" + string(id.Location)
	if id.Pointer {
		s += "_ptr"
	}
	return s
}

// String renders the identifier back into the compiler's notation.
func (id *Identifier) String() string {
	switch id.Class {
	case format.ClassUint:
		return fmt.Sprintf("t_uint%d", id.Bits)
	case format.ClassInt:
		return fmt.Sprintf("t_int%d", id.Bits)
	case format.ClassBool:
		return "t_bool"
	case format.ClassAddress:
		if id.Payable {
			return "t_address_payable"
		}
		return "t_address"
	case format.ClassBytes:
		if !id.Dynamic {
			return fmt.Sprintf("t_bytes%d", id.Length)
		}
		return "t_bytes" + id.locationSuffix()
	case format.ClassString:
		return "t_string" + id.locationSuffix()
	case format.ClassFixed:
		return fmt.Sprintf("t_fixed%dx%d", id.Bits, id.Places)
	case format.ClassUfixed:
		return fmt.Sprintf("t_ufixed%dx%d", id.Bits, id.Places)
	case format.ClassArray:
		l := "dyn"
		if !id.Dynamic && id.ArrayLength != nil {
			l = id.ArrayLength.String()
		}
		return "t_array$_" + id.Base.String() + "_$" + l + id.locationSuffix()
	case format.ClassMapping:
		return "t_mapping$_" + id.Key.String() + "_$_" + id.Value.String() + "_$"
	case format.ClassStruct:
		return fmt.Sprintf("t_struct$_%s_$%d", escapeName(id.Name), id.ID) + id.locationSuffix()
	case format.ClassEnum:
		return fmt.Sprintf("t_enum$_%s_$%d", escapeName(id.Name), id.ID)
	case format.ClassContract:
		return fmt.Sprintf("t_contract$_%s_$%d", escapeName(id.Name), id.ID)
	case format.ClassFunction:
		return fmt.Sprintf("t_function_%s_%s$_%s_$returns$_%s_$",
			id.Visibility, id.Mutability, joinIdentifiers(id.Params), joinIdentifiers(id.Returns))
	case format.ClassMagic:
		return "t_magic_" + string(id.Magic)
	default:
		return ""
	}
}

func escapeName(n string) string {
	return strings.ReplaceAll(n, "$", "$$$")
}

func joinIdentifiers(l []*Identifier) string {
	s := make([]string, len(l))
	for i, id := range l {
		s[i] = id.String()
	}
	return strings.Join(s, "_$_")
}
