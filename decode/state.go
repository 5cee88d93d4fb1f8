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

package decode

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/icon-project/evm-codec/abi"
	"github.com/icon-project/evm-codec/format"
	"github.com/icon-project/evm-codec/storage"
)

// StorageReader returns the 32-byte word stored at slot.
type StorageReader interface {
	StorageAt(slot common.Hash) ([]byte, error)
}

type StorageReaderFunc func(slot common.Hash) ([]byte, error)

func (f StorageReaderFunc) StorageAt(slot common.Hash) ([]byte, error) {
	return f(slot)
}

// MapStorage is a storage snapshot. Absent slots read as zero.
type MapStorage map[common.Hash][]byte

func (m MapStorage) StorageAt(slot common.Hash) ([]byte, error) {
	w := make([]byte, storage.WordSize)
	if v, ok := m[slot]; ok {
		copy(w[storage.WordSize-len(v):], v)
	}
	return w, nil
}

func (m MapStorage) Set(slot common.Hash, value []byte) {
	m[slot] = common.LeftPadBytes(value, storage.WordSize)
}

// State is a read-only snapshot of the machine. Stack words are ordered
// from the bottom of the stack.
type State struct {
	Stack      [][]byte
	Memory     []byte
	Calldata   []byte
	Returndata []byte
	Eventdata  []byte
	Topics     [][]byte
	// Specials holds the words behind the builtin variables keyed by
	// member name, such as "sender" or "timestamp".
	Specials map[string][]byte
	Storage  StorageReader
}

// InternalFunction is an entry of the internal function table of a
// contract, keyed by the program counter of its entry point.
type InternalFunction struct {
	ProgramCounter       int    `json:"pc"`
	Name                 string `json:"name,omitempty"`
	DefiningContractName string `json:"definingContractName,omitempty"`
	ID                   int    `json:"id,omitempty"`
	IsDesignatedInvalid  bool   `json:"isDesignatedInvalid,omitempty"`
}

// Context describes a contract as seen by the decoder: its ABI by
// selector and its internal function table.
type Context struct {
	ContractName      string
	ContractID        int
	ContractKind      format.ContractKind
	Payable           bool
	IsConstructor     bool
	ABI               map[string]*abi.Entry
	InternalFunctions map[int]*InternalFunction
}

func NewContext(name string, id int, kind format.ContractKind, entries abi.ABI) *Context {
	c := &Context{
		ContractName: name,
		ContractID:   id,
		ContractKind: kind,
		Payable:      entries.Payable(),
		ABI:          make(map[string]*abi.Entry),
	}
	for _, e := range entries.Functions() {
		c.ABI[e.SelectorHex()] = e
	}
	return c
}

func (c *Context) ContractType() *format.ContractType {
	return &format.ContractType{
		Kind:         format.ContractNative,
		ID:           c.ContractID,
		TypeName:     c.ContractName,
		ContractKind: c.ContractKind,
		Payable:      c.Payable,
	}
}

// Info is the read-only knowledge shared by decoding calls.
type Info struct {
	UserDefinedTypes format.TypeTable
	Allocator        *storage.Allocator
	Contexts         map[common.Address]*Context
	CurrentContext   *Context
	// MappingKeys are the watched mapping entries; only these keys are
	// decoded from mappings.
	MappingKeys []*storage.Slot
}

func (i *Info) contextOf(addr common.Address) *Context {
	if i.Contexts == nil {
		return nil
	}
	return i.Contexts[addr]
}

type PointerLocation string

const (
	PointerStack        PointerLocation = "stack"
	PointerStackLiteral PointerLocation = "stackliteral"
	PointerMemory       PointerLocation = "memory"
	PointerStorage      PointerLocation = "storage"
	PointerCalldata     PointerLocation = "calldata"
	PointerReturndata   PointerLocation = "returndata"
	PointerEventdata    PointerLocation = "eventdata"
	PointerEventTopic   PointerLocation = "eventtopic"
	PointerSpecial      PointerLocation = "special"
)

type Pointer interface {
	Location() PointerLocation
}

// StackPointer spans stack words From..To inclusive.
type StackPointer struct {
	From int
	To   int
}

func (p *StackPointer) Location() PointerLocation { return PointerStack }

type StackLiteralPointer struct {
	Literal []byte
}

func (p *StackLiteralPointer) Location() PointerLocation { return PointerStackLiteral }

// MemoryPointer addresses a value laid out in memory at Start.
type MemoryPointer struct {
	Start  int
	Length int
}

func (p *MemoryPointer) Location() PointerLocation { return PointerMemory }

type StoragePointer struct {
	Range *storage.Range
}

func (p *StoragePointer) Location() PointerLocation { return PointerStorage }

// ABIPointer addresses the head of a value ABI-encoded in Source. Base is
// the start of the enclosing tuple which offsets are relative to.
type ABIPointer struct {
	Source PointerLocation
	Start  int
	Length int
	Base   int
}

func (p *ABIPointer) Location() PointerLocation { return p.Source }

type TopicPointer struct {
	Index int
}

func (p *TopicPointer) Location() PointerLocation { return PointerEventTopic }

// SpecialPointer addresses a builtin variable such as msg or block.
type SpecialPointer struct {
	Name string
}

func (p *SpecialPointer) Location() PointerLocation { return PointerSpecial }
