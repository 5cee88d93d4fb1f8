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
	"encoding/json"

	gethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/icon-project/evm-codec/format"
)

type EntryType string

const (
	EntryFunction    EntryType = "function"
	EntryConstructor EntryType = "constructor"
	EntryFallback    EntryType = "fallback"
	EntryReceive     EntryType = "receive"
	EntryEvent       EntryType = "event"
	EntryError       EntryType = "error"
)

const SelectorLength = 4

// Entry is an element of a contract ABI. Entries are built by Parse,
// ParseSignature or NewEntry, which check the parameter types and derive the
// canonical signature.
type Entry struct {
	Type            EntryType   `json:"type"`
	Name            string      `json:"name,omitempty"`
	Inputs          []Parameter `json:"inputs,omitempty"`
	Outputs         []Parameter `json:"outputs,omitempty"`
	StateMutability string      `json:"stateMutability,omitempty"`
	Anonymous       bool        `json:"anonymous,omitempty"`

	sig string
	// id is the selector of functions and the topic of events and errors.
	id []byte
}

func NewEntry(t EntryType, name string, inputs, outputs []Parameter, stateMutability string) (*Entry, error) {
	e := &Entry{
		Type:            t,
		Name:            name,
		Inputs:          inputs,
		Outputs:         outputs,
		StateMutability: stateMutability,
	}
	if err := e.bind(); err != nil {
		return nil, err
	}
	return e, nil
}

// UnmarshalJSON fills in the fields which older compilers omit: a missing
// type means function, and stateMutability is derived from the legacy
// constant and payable flags.
func (e *Entry) UnmarshalJSON(b []byte) error {
	var field struct {
		Type            EntryType
		Name            string
		Inputs          []gethabi.ArgumentMarshaling
		Outputs         []gethabi.ArgumentMarshaling
		StateMutability string
		Constant        *bool
		Payable         *bool
		Anonymous       bool
	}
	if err := json.Unmarshal(b, &field); err != nil {
		return err
	}
	*e = Entry{
		Type:            field.Type,
		Name:            field.Name,
		Inputs:          parametersOf(field.Inputs),
		Outputs:         parametersOf(field.Outputs),
		StateMutability: field.StateMutability,
		Anonymous:       field.Anonymous,
	}
	if e.Type == "" {
		e.Type = EntryFunction
	}
	if e.StateMutability == "" && e.Type != EntryEvent && e.Type != EntryError {
		switch {
		case field.Payable != nil && *field.Payable:
			e.StateMutability = string(format.MutabilityPayable)
		case field.Constant != nil && *field.Constant:
			e.StateMutability = string(format.MutabilityView)
		default:
			e.StateMutability = string(format.MutabilityNonPayable)
		}
	}
	return e.bind()
}

func arguments(params []Parameter) (gethabi.Arguments, error) {
	args := make(gethabi.Arguments, len(params))
	for i, p := range params {
		gt, _, err := gethType(p)
		if err != nil {
			return nil, err
		}
		args[i] = gethabi.Argument{Name: p.Name, Type: gt, Indexed: p.Indexed}
	}
	return args, nil
}

// bind checks the parameter types and derives the signature and id the way
// go-ethereum does for methods, events and errors.
func (e *Entry) bind() error {
	inputs, err := arguments(e.Inputs)
	if err != nil {
		return err
	}
	switch e.Type {
	case EntryEvent:
		ev := gethabi.NewEvent(e.Name, e.Name, e.Anonymous, inputs)
		e.sig, e.id = ev.Sig, ev.ID.Bytes()
	case EntryError:
		er := gethabi.NewError(e.Name, inputs)
		e.sig, e.id = er.Sig, er.ID.Bytes()
	default:
		outputs, err := arguments(e.Outputs)
		if err != nil {
			return err
		}
		m := gethabi.NewMethod(e.Name, e.Name, gethabi.Function, e.StateMutability,
			e.StateMutability == string(format.MutabilityView) || e.StateMutability == string(format.MutabilityPure),
			e.StateMutability == string(format.MutabilityPayable), inputs, outputs)
		e.sig, e.id = m.Sig, m.ID
	}
	return nil
}

// As returns a copy of e bound as entry type t.
func (e *Entry) As(t EntryType) (*Entry, error) {
	c := *e
	c.Type = t
	if t == EntryFunction && c.StateMutability == "" {
		c.StateMutability = string(format.MutabilityNonPayable)
	}
	if err := c.bind(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Signature is the canonical signature with tuples expanded, as hashed for
// selectors and topics.
func (e *Entry) Signature() string {
	return e.sig
}

func (e *Entry) Selector() [SelectorLength]byte {
	var s [SelectorLength]byte
	copy(s[:], e.id)
	return s
}

func (e *Entry) SelectorHex() string {
	s := e.Selector()
	return hexutil.Encode(s[:])
}

// Topic is the first topic of a non-anonymous event; it is the zero hash
// for functions.
func (e *Entry) Topic() common.Hash {
	if len(e.id) != common.HashLength {
		return common.Hash{}
	}
	return common.BytesToHash(e.id)
}

func (e *Entry) IndexedCount() int {
	n := 0
	for _, in := range e.Inputs {
		if in.Indexed {
			n++
		}
	}
	return n
}

func (e *Entry) InputTypes() ([]format.NameTypePair, error) {
	return ParameterTypes(e.Inputs)
}

func (e *Entry) OutputTypes() ([]format.NameTypePair, error) {
	return ParameterTypes(e.Outputs)
}

type ABI []*Entry

func Parse(b []byte) (ABI, error) {
	var a ABI
	if err := json.Unmarshal(b, &a); err != nil {
		return nil, err
	}
	return a, nil
}

func (a ABI) filter(t EntryType) []*Entry {
	var r []*Entry
	for _, e := range a {
		if e.Type == t {
			r = append(r, e)
		}
	}
	return r
}

func (a ABI) Functions() []*Entry { return a.filter(EntryFunction) }
func (a ABI) Events() []*Entry    { return a.filter(EntryEvent) }
func (a ABI) Errors() []*Entry    { return a.filter(EntryError) }

func (a ABI) single(t EntryType) *Entry {
	for _, e := range a {
		if e.Type == t {
			return e
		}
	}
	return nil
}

func (a ABI) Constructor() *Entry { return a.single(EntryConstructor) }
func (a ABI) Fallback() *Entry    { return a.single(EntryFallback) }
func (a ABI) Receive() *Entry     { return a.single(EntryReceive) }

func (a ABI) FunctionBySelector(selector []byte) *Entry {
	return a.bySelector(EntryFunction, selector)
}

func (a ABI) ErrorBySelector(selector []byte) *Entry {
	return a.bySelector(EntryError, selector)
}

func (a ABI) bySelector(t EntryType, selector []byte) *Entry {
	if len(selector) < SelectorLength {
		return nil
	}
	for _, e := range a {
		if e.Type != t {
			continue
		}
		s := e.Selector()
		if string(s[:]) == string(selector[:SelectorLength]) {
			return e
		}
	}
	return nil
}

func (a ABI) EventByTopic(topic common.Hash) *Entry {
	for _, e := range a {
		if e.Type == EntryEvent && !e.Anonymous && e.Topic() == topic {
			return e
		}
	}
	return nil
}

func (a ABI) Function(name string) *Entry {
	for _, e := range a {
		if e.Type == EntryFunction && e.Name == name {
			return e
		}
	}
	return nil
}

func (a ABI) Event(name string) *Entry {
	for _, e := range a {
		if e.Type == EntryEvent && e.Name == name {
			return e
		}
	}
	return nil
}

// Payable reports whether a contract with this interface accepts ether
// without a function call.
func (a ABI) Payable() bool {
	if a.Receive() != nil {
		return true
	}
	if f := a.Fallback(); f != nil && f.StateMutability == string(format.MutabilityPayable) {
		return true
	}
	return false
}
