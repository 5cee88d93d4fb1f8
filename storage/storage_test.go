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
	"math/big"
	"os"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/icon-project/btp2/common/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icon-project/evm-codec/ast"
	"github.com/icon-project/evm-codec/format"
)

func loadDeclarations(t *testing.T) ast.Declarations {
	b, err := os.ReadFile("../ast/testdata/layout.json")
	require.NoError(t, err)
	root, err := ast.ParseNode(b)
	require.NoError(t, err)
	return ast.Index(root)
}

func newAllocator(t *testing.T, d ast.Declarations) *Allocator {
	a, err := NewAllocator(d, nil, 0)
	require.NoError(t, err)
	return a
}

func variable(id int, name, identifier string) *ast.Node {
	return &ast.Node{
		ID:       id,
		NodeType: ast.NodeVariableDeclaration,
		Name:     name,
		TypeDescriptions: ast.TypeDescriptions{
			TypeIdentifier: identifier,
		},
	}
}

func assertPosition(t *testing.T, p Position, slot uint64, index int) {
	addr, err := p.Slot.Address()
	require.NoError(t, err)
	assert.Equal(t, common.BigToHash(new(big.Int).SetUint64(slot)), addr)
	assert.Equal(t, index, p.Index)
}

func Test_AllocateContract(t *testing.T) {
	d := loadDeclarations(t)
	a := newAllocator(t, d)
	alloc, err := a.AllocateContract(d.Contract("C"))
	require.NoError(t, err)

	type expected struct {
		name               string
		fromSlot, toSlot   uint64
		fromIndex, toIndex int
	}
	for _, e := range []expected{
		{"a", 0, 0, 31, 31},
		{"b", 0, 0, 30, 30},
		{"c", 1, 1, 0, 31},
		{"s", 2, 3, 0, 31},
		{"arr", 4, 4, 0, 31},
		{"bal", 5, 5, 0, 31},
		{"small", 6, 6, 16, 31},
		{"fixedArr", 7, 7, 0, 31},
		{"name", 8, 8, 0, 31},
	} {
		r, ok := alloc.ByName(e.name)
		if !assert.True(t, ok, e.name) {
			continue
		}
		assertPosition(t, r.From, e.fromSlot, e.fromIndex)
		assertPosition(t, r.To, e.toSlot, e.toIndex)
	}
	assertPosition(t, alloc.Next, 9, LastIndex)
	_, ok := alloc.ByName("K")
	assert.False(t, ok)

	s, _ := alloc.ByID(20)
	require.NotNil(t, s.Members)
	x, _ := s.Members.ByID(16)
	y, _ := s.Members.ByID(17)
	e, _ := s.Members.ByID(18)
	assertPosition(t, x.From, 2, 0)
	assertPosition(t, y.From, 3, 31)
	assertPosition(t, e.From, 3, 30)
}

func Test_AllocatePacking(t *testing.T) {
	d := loadDeclarations(t)
	a := newAllocator(t, d)

	alloc, err := a.Allocate([]*ast.Node{
		variable(50, "p", "t_uint8"),
		variable(51, "q", "t_uint8"),
		variable(52, "r", "t_uint256"),
	}, NewSlot(0), LastIndex)
	require.NoError(t, err)
	p, _ := alloc.ByID(50)
	q, _ := alloc.ByID(51)
	r, _ := alloc.ByID(52)
	assertPosition(t, p.From, 0, 31)
	assertPosition(t, q.From, 0, 30)
	assertPosition(t, r.From, 1, 0)

	alloc, err = a.Allocate([]*ast.Node{
		variable(53, "w", "t_uint256"),
		variable(54, "u", "t_uint8"),
		variable(55, "st", "t_struct$_S_$15_storage"),
		variable(56, "after", "t_uint8"),
	}, NewSlot(0), LastIndex)
	require.NoError(t, err)
	u, _ := alloc.ByID(54)
	st, _ := alloc.ByID(55)
	after, _ := alloc.ByID(56)
	assertPosition(t, u.From, 1, 31)
	assertPosition(t, st.From, 2, 0)
	assertPosition(t, st.To, 3, 31)
	assertPosition(t, after.From, 4, 31)
	assertPosition(t, alloc.Next, 5, LastIndex)
}

func Test_AllocateErrors(t *testing.T) {
	d := loadDeclarations(t)
	d[60] = &ast.Node{
		ID:       60,
		NodeType: ast.NodeStructDefinition,
		Name:     "Loop",
		Members: []*ast.Node{
			variable(61, "self", "t_array$_t_struct$_Loop_$60_storage_$2_storage"),
		},
	}
	a := newAllocator(t, d)

	_, err := a.Allocate([]*ast.Node{variable(62, "l", "t_struct$_Loop_$60_storage")}, NewSlot(0), LastIndex)
	require.Error(t, err)
	_, ok := err.(*AllocationNotFoundError)
	assert.True(t, ok)

	_, err = a.Allocate([]*ast.Node{variable(63, "z", "t_struct$_Z_$999_storage")}, NewSlot(0), LastIndex)
	require.Error(t, err)
	_, ok = err.(*format.UnknownUserDefinedTypeError)
	assert.True(t, ok)

	_, err = a.Allocate([]*ast.Node{variable(64, "bad", "t_bogus")}, NewSlot(0), LastIndex)
	assert.Error(t, err)
}

func Test_DynamicAddressing(t *testing.T) {
	d := loadDeclarations(t)
	a := newAllocator(t, d)
	alloc, err := a.AllocateContract(d.Contract("C"))
	require.NoError(t, err)

	arr, _ := alloc.ByName("arr")
	er, err := a.ArrayElementRange(arr.Type.(*format.ArrayType), arr.From.Slot, uint256.NewInt(0))
	require.NoError(t, err)
	addr, err := er.From.Slot.Address()
	require.NoError(t, err)
	assert.Equal(t, crypto.Keccak256Hash(common.LeftPadBytes([]byte{4}, 32)), addr)

	er, err = a.ArrayElementRange(arr.Type.(*format.ArrayType), arr.From.Slot, uint256.NewInt(2))
	require.NoError(t, err)
	addr2, _ := er.From.Slot.Address()
	assert.Equal(t, new(big.Int).Add(addr.Big(), big.NewInt(2)), addr2.Big())

	fixed, _ := alloc.ByName("fixedArr")
	er, err = a.ArrayElementRange(fixed.Type.(*format.ArrayType), fixed.From.Slot, uint256.NewInt(1))
	require.NoError(t, err)
	assertPosition(t, er.From, 7, 28)
	assertPosition(t, er.To, 7, 29)

	bal, _ := alloc.ByName("bal")
	holder := "0x00000000000000000000000000000000000000Aa"
	key := &format.AddressValue{Type: &format.AddressType{Kind: format.AddressGeneral}, Address: holder}
	vr, err := a.MappingValueRange(bal.Type.(*format.MappingType), bal.From.Slot, key)
	require.NoError(t, err)
	addr, err = vr.From.Slot.Address()
	require.NoError(t, err)
	expected := crypto.Keccak256Hash(
		common.LeftPadBytes(common.HexToAddress(holder).Bytes(), 32),
		common.LeftPadBytes([]byte{5}, 32))
	assert.Equal(t, expected, addr)
	assert.Equal(t, 0, vr.From.Index)
}

func Test_SlotEqual(t *testing.T) {
	a := &Slot{Path: NewSlot(1), Offset: uint256.NewInt(2)}
	b := NewSlot(3)
	aa, _ := a.Address()
	ba, _ := b.Address()
	assert.Equal(t, aa, ba)
	assert.False(t, a.Equal(b))
	assert.True(t, NewSlot(2).Add(1).Equal(b))

	k1 := &format.UintValue{Type: &format.UintType{Bits: 256}, Value: big.NewInt(7)}
	k2 := &format.UintValue{Type: &format.UintType{Bits: 8}, Value: big.NewInt(7)}
	assert.True(t, MappingKeySlot(b, k1).Equal(MappingKeySlot(NewSlot(3), k2)))
	assert.False(t, MappingKeySlot(b, k1).Equal(ArrayDataSlot(b)))
}

func Test_StorageSize(t *testing.T) {
	d := loadDeclarations(t)
	a := newAllocator(t, d)
	for _, c := range []struct {
		t    format.Type
		size Size
	}{
		{&format.BoolType{}, Size{Bytes: 1}},
		{&format.AddressType{}, Size{Bytes: 20}},
		{&format.EnumType{ID: 11}, Size{Bytes: 1}},
		{&format.FunctionType{Visibility: format.VisibilityInternal}, Size{Bytes: 8}},
		{&format.FunctionType{Visibility: format.VisibilityExternal}, Size{Bytes: 24}},
		{&format.StringType{}, Size{Words: 1}},
		{&format.StructType{ID: 15}, Size{Words: 2}},
		{&format.ArrayType{Kind: format.ArrayStatic, Length: big.NewInt(33), BaseType: &format.UintType{Bits: 8}}, Size{Words: 2}},
		{&format.ArrayType{Kind: format.ArrayStatic, Length: big.NewInt(3), BaseType: &format.StructType{ID: 15}}, Size{Words: 6}},
	} {
		s, err := a.StorageSize(c.t)
		assert.NoError(t, err)
		assert.Equal(t, c.size, s, format.TypeString(c.t))
	}
	_, err := a.StorageSize(&format.EnumType{ID: 1000})
	assert.Error(t, err)
}

func Test_StorageSizeInvalid(t *testing.T) {
	d := loadDeclarations(t)
	a := newAllocator(t, d)
	for _, typ := range []format.Type{
		&format.UintType{Bits: 7},
		&format.IntType{Bits: 0},
		&format.UintType{Bits: 264},
		&format.BytesType{Kind: format.BytesStatic, Length: 0},
		&format.BytesType{Kind: format.BytesStatic, Length: 33},
		&format.ArrayType{Kind: format.ArrayStatic, Length: big.NewInt(2), BaseType: &format.BytesType{Kind: format.BytesStatic, Length: 40}},
	} {
		_, err := a.StorageSize(typ)
		assert.Error(t, err, format.TypeString(typ))
	}
}

func Test_AllocateMalformedWidth(t *testing.T) {
	d := loadDeclarations(t)
	a := newAllocator(t, d)
	for _, id := range []string{"t_uint7", "t_uint0", "t_uint264", "t_bytes0", "t_bytes33"} {
		_, err := a.Allocate([]*ast.Node{
			variable(70, "x", id),
			variable(71, "y", "t_uint256"),
		}, NewSlot(0), LastIndex)
		if assert.Error(t, err, id) {
			assert.Equal(t, format.ErrorCodeMalformedIdentifier, errors.CodeOf(err), id)
		}
	}
}
