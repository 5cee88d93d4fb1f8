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

package storage

import (
	"fmt"
	"math"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/holiman/uint256"
	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"

	"github.com/icon-project/evm-codec/ast"
	"github.com/icon-project/evm-codec/format"
)

const (
	DefaultCacheSize = 256
)

var (
	allocLogger = log.New()
)

func init() {
	allocLogger.SetLevel(log.DebugLevel)
}

// AllocationNotFoundError reports a struct whose member allocation was
// required while it was still being computed.
type AllocationNotFoundError struct {
	ID   int
	Name string
}

func (e *AllocationNotFoundError) Error() string {
	return fmt.Sprintf("allocation for member not found id:%d name:%s", e.ID, e.Name)
}

func (e *AllocationNotFoundError) ErrorCode() errors.Code {
	return format.ErrorCodeAllocationNotFound
}

// Size is the storage footprint of a type: Bytes for types packed within a
// word, otherwise Words.
type Size struct {
	Bytes int    `json:"bytes,omitempty"`
	Words uint64 `json:"words,omitempty"`
}

func (s Size) Packable() bool {
	return s.Bytes > 0
}

// Range is where a declaration lives in storage. Members is set for structs.
type Range struct {
	ID      int         `json:"id"`
	Name    string      `json:"name"`
	Type    format.Type `json:"type"`
	From    Position    `json:"from"`
	To      Position    `json:"to"`
	Next    Position    `json:"next"`
	Members *Allocation `json:"members,omitempty"`
}

type Allocation struct {
	Ranges []*Range `json:"ranges"`
	Next   Position `json:"next"`
	byID   map[int]*Range
}

func newAllocation() *Allocation {
	return &Allocation{byID: make(map[int]*Range)}
}

func (a *Allocation) add(r *Range) {
	a.Ranges = append(a.Ranges, r)
	a.byID[r.ID] = r
}

func (a *Allocation) ByID(id int) (*Range, bool) {
	r, ok := a.byID[id]
	return r, ok
}

func (a *Allocation) ByName(name string) (*Range, bool) {
	for _, r := range a.Ranges {
		if r.Name == name {
			return r, true
		}
	}
	return nil, false
}

// Allocator computes storage layouts over a declaration index. Struct
// layouts are computed relative to the struct's first slot and cached.
type Allocator struct {
	decls   ast.Declarations
	table   format.TypeTable
	structs *lru.Cache

	mtx        sync.Mutex
	inProgress map[int]bool
}

func NewAllocator(decls ast.Declarations, table format.TypeTable, cacheSize int) (*Allocator, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	c, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}
	if table == nil {
		if table, err = ast.BuildTypeTable(decls); err != nil {
			return nil, err
		}
	}
	return &Allocator{
		decls:      decls,
		table:      table,
		structs:    c,
		inProgress: make(map[int]bool),
	}, nil
}

func (a *Allocator) TypeTable() format.TypeTable {
	return a.table
}

func (a *Allocator) Declarations() ast.Declarations {
	return a.decls
}

type item struct {
	id   int
	name string
	t    format.Type
}

func (a *Allocator) items(nodes []*ast.Node) ([]item, error) {
	l := make([]item, len(nodes))
	for i, n := range nodes {
		t, err := ast.ToType(n, a.decls)
		if err != nil {
			return nil, errors.Wrapf(err, "fail to allocate %s", n.Name)
		}
		l[i] = item{id: n.ID, name: n.Name, t: t}
	}
	return l, nil
}

// Allocate places declarations in order starting at slot and index.
func (a *Allocator) Allocate(nodes []*ast.Node, slot *Slot, index int) (*Allocation, error) {
	items, err := a.items(nodes)
	if err != nil {
		return nil, err
	}
	a.mtx.Lock()
	defer a.mtx.Unlock()
	alloc, err := a.allocateItems(items, slot, index)
	if err != nil {
		return nil, err
	}
	if err = a.placeMembers(alloc); err != nil {
		return nil, err
	}
	return alloc, nil
}

// AllocateContract allocates the state variables of contract from slot 0.
func (a *Allocator) AllocateContract(contract *ast.Node) (*Allocation, error) {
	vars, err := ast.StateVariables(contract, a.decls)
	if err != nil {
		return nil, err
	}
	allocLogger.Debugf("AllocateContract %s variables:%d", contract.Name, len(vars))
	return a.Allocate(vars, NewSlot(0), LastIndex)
}

// AllocateStruct returns the member ranges of struct id placed at slot.
func (a *Allocator) AllocateStruct(id int, slot *Slot) (*Allocation, error) {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	return a.placeStruct(id, slot)
}

func (a *Allocator) StorageSize(t format.Type) (Size, error) {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	return a.storageSize(t)
}

func (a *Allocator) allocateItems(items []item, start *Slot, index int) (*Allocation, error) {
	if index < 0 || index > LastIndex {
		return nil, errors.Errorf("invalid start index %d", index)
	}
	alloc := newAllocation()
	var offset uint64
	for _, it := range items {
		size, err := a.storageSize(it.t)
		if err != nil {
			allocLogger.Debugf("fail to allocate %s err:%+v", it.name, err)
			return nil, err
		}
		r := &Range{ID: it.id, Name: it.name, Type: it.t}
		if size.Packable() {
			if size.Bytes > index+1 {
				offset++
				index = LastIndex
			}
			r.From = Position{Slot: start.Add(offset), Index: index - size.Bytes + 1}
			r.To = Position{Slot: start.Add(offset), Index: index}
			index -= size.Bytes
			if index < 0 {
				offset++
				index = LastIndex
			}
		} else {
			if index < LastIndex {
				offset++
				index = LastIndex
			}
			if size.Words > math.MaxUint64-offset {
				return nil, format.ErrorCodeUnsupported.Errorf("storage overflow at %s", it.name)
			}
			r.From = Position{Slot: start.Add(offset), Index: 0}
			r.To = Position{Slot: start.Add(offset), Index: LastIndex}
			if size.Words > 1 {
				r.To.Slot = start.Add(offset + size.Words - 1)
			}
			offset += size.Words
		}
		r.Next = Position{Slot: start.Add(offset), Index: index}
		allocLogger.Tracef("allocate %s from:%s/%d to:%s/%d", it.name,
			r.From.Slot, r.From.Index, r.To.Slot, r.To.Index)
		alloc.add(r)
	}
	if index < LastIndex {
		offset++
	}
	alloc.Next = Position{Slot: start.Add(offset), Index: LastIndex}
	return alloc, nil
}

// placeMembers fills the member ranges of struct entries of alloc.
func (a *Allocator) placeMembers(alloc *Allocation) error {
	for _, r := range alloc.Ranges {
		st, ok := r.Type.(*format.StructType)
		if !ok {
			continue
		}
		m, err := a.placeStruct(st.ID, r.From.Slot)
		if err != nil {
			return err
		}
		r.Members = m
	}
	return nil
}

func (a *Allocator) placeStruct(id int, slot *Slot) (*Allocation, error) {
	rel, err := a.structAllocation(id)
	if err != nil {
		return nil, err
	}
	alloc := newAllocation()
	move := func(p Position) Position {
		return Position{Slot: slot.AddWords(p.Slot.offset()), Index: p.Index}
	}
	for _, r := range rel.Ranges {
		c := *r
		c.From, c.To, c.Next = move(r.From), move(r.To), move(r.Next)
		alloc.add(&c)
	}
	alloc.Next = move(rel.Next)
	if err = a.placeMembers(alloc); err != nil {
		return nil, err
	}
	return alloc, nil
}

// structAllocation returns member ranges relative to slot 0 without nested
// member ranges.
func (a *Allocator) structAllocation(id int) (*Allocation, error) {
	if v, ok := a.structs.Get(id); ok {
		return v.(*Allocation), nil
	}
	members, err := a.decls.StructMembers(id)
	if err != nil {
		return nil, err
	}
	if a.inProgress[id] {
		return nil, &AllocationNotFoundError{ID: id, Name: a.decls[id].Name}
	}
	a.inProgress[id] = true
	defer delete(a.inProgress, id)

	items, err := a.items(members)
	if err != nil {
		return nil, err
	}
	alloc, err := a.allocateItems(items, NewSlot(0), LastIndex)
	if err != nil {
		return nil, err
	}
	a.structs.Add(id, alloc)
	return alloc, nil
}

// storageSize is typeSize rejecting sizes no declaration can occupy, so a
// malformed type never overlaps its neighbours.
func (a *Allocator) storageSize(t format.Type) (Size, error) {
	size, err := a.typeSize(t)
	if err != nil {
		return Size{}, err
	}
	if size.Bytes < 0 || size.Bytes > WordSize || (size.Bytes == 0 && size.Words == 0) {
		return Size{}, format.ErrorCodeInvalidValue.Errorf("invalid storage size %+v for %s", size, format.TypeString(t))
	}
	return size, nil
}

func (a *Allocator) typeSize(t format.Type) (Size, error) {
	switch x := t.(type) {
	case *format.BoolType:
		return Size{Bytes: 1}, nil
	case *format.AddressType, *format.ContractType:
		return Size{Bytes: 20}, nil
	case *format.UintType:
		return Size{Bytes: x.Bits / 8}, nil
	case *format.IntType:
		return Size{Bytes: x.Bits / 8}, nil
	case *format.FixedType:
		return Size{Bytes: x.Bits / 8}, nil
	case *format.UfixedType:
		return Size{Bytes: x.Bits / 8}, nil
	case *format.EnumType:
		e, err := a.table.FullEnum(x)
		if err != nil {
			return Size{}, err
		}
		return Size{Bytes: format.EnumBytes(len(e.Options))}, nil
	case *format.FunctionType:
		if x.Visibility == format.VisibilityInternal {
			return Size{Bytes: 8}, nil
		}
		return Size{Bytes: 24}, nil
	case *format.BytesType:
		if x.Kind == format.BytesStatic {
			return Size{Bytes: x.Length}, nil
		}
		return Size{Words: 1}, nil
	case *format.StringType, *format.MappingType:
		return Size{Words: 1}, nil
	case *format.ArrayType:
		if x.Kind == format.ArrayDynamic {
			return Size{Words: 1}, nil
		}
		if !x.Length.IsUint64() {
			return Size{}, format.ErrorCodeUnsupported.Errorf("array too large %s", x.Length)
		}
		length := x.Length.Uint64()
		base, err := a.storageSize(x.BaseType)
		if err != nil {
			return Size{}, err
		}
		if base.Packable() {
			perWord := uint64(WordSize / base.Bytes)
			return Size{Words: (length + perWord - 1) / perWord}, nil
		}
		if base.Words != 0 && length > math.MaxUint64/base.Words {
			return Size{}, format.ErrorCodeUnsupported.Errorf("array too large %s", x.Length)
		}
		return Size{Words: base.Words * length}, nil
	case *format.StructType:
		rel, err := a.structAllocation(x.ID)
		if err != nil {
			return Size{}, err
		}
		return Size{Words: rel.Next.Slot.offset().Uint64()}, nil
	default:
		return Size{}, format.ErrorCodeUnsupported.Errorf("no storage size for %s", format.TypeString(t))
	}
}

// ElementRange returns where element i of an array lives given the slot of
// its first element.
func (a *Allocator) ElementRange(t *format.ArrayType, data *Slot, i *uint256.Int) (*Range, error) {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	size, err := a.storageSize(t.BaseType)
	if err != nil {
		return nil, err
	}
	r := &Range{ID: -1, Name: fmt.Sprintf("[%s]", i.ToBig()), Type: t.BaseType}
	if size.Packable() {
		perWord := uint256.NewInt(uint64(WordSize / size.Bytes))
		word := new(uint256.Int).Div(i, perWord)
		pos := new(uint256.Int).Mod(i, perWord).Uint64()
		last := LastIndex - int(pos)*size.Bytes
		s := data.AddWords(word)
		r.From = Position{Slot: s, Index: last - size.Bytes + 1}
		r.To = Position{Slot: s, Index: last}
		return r, nil
	}
	first := data.AddWords(new(uint256.Int).Mul(i, uint256.NewInt(size.Words)))
	if err = a.fillWords(r, first, size); err != nil {
		return nil, err
	}
	return r, nil
}

// ArrayElementRange is ElementRange for a dynamic array whose length word is
// at arraySlot, or a static array starting at arraySlot.
func (a *Allocator) ArrayElementRange(t *format.ArrayType, arraySlot *Slot, i *uint256.Int) (*Range, error) {
	data := arraySlot
	if t.Kind == format.ArrayDynamic {
		data = ArrayDataSlot(arraySlot)
	}
	return a.ElementRange(t, data, i)
}

// MappingValueRange returns where the value of key lives in the mapping at
// mapSlot.
func (a *Allocator) MappingValueRange(t *format.MappingType, mapSlot *Slot, key format.Result) (*Range, error) {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	size, err := a.storageSize(t.ValueType)
	if err != nil {
		return nil, err
	}
	s := MappingKeySlot(mapSlot, key)
	r := &Range{ID: -1, Type: t.ValueType}
	if size.Packable() {
		r.From = Position{Slot: s, Index: WordSize - size.Bytes}
		r.To = Position{Slot: s, Index: LastIndex}
		return r, nil
	}
	if err = a.fillWords(r, s, size); err != nil {
		return nil, err
	}
	return r, nil
}

func (a *Allocator) fillWords(r *Range, first *Slot, size Size) error {
	r.From = Position{Slot: first, Index: 0}
	last := first
	if size.Words > 1 {
		last = first.Add(size.Words - 1)
	}
	r.To = Position{Slot: last, Index: LastIndex}
	r.Next = Position{Slot: first.Add(size.Words), Index: LastIndex}
	if st, ok := r.Type.(*format.StructType); ok {
		m, err := a.placeStruct(st.ID, first)
		if err != nil {
			return err
		}
		r.Members = m
	}
	return nil
}
