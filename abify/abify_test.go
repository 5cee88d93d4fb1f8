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

package abify

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icon-project/evm-codec/format"
)

func testTable() format.TypeTable {
	return format.TypeTable{
		1: &format.StoredEnumType{ID: 1, TypeName: "Color", DefiningContractName: "C",
			Options: []string{"Red", "Green", "Blue"}},
		2: &format.StoredStructType{ID: 2, TypeName: "S", DefiningContractName: "C",
			MemberTypes: []format.NameTypePair{
				{Name: "x", Type: &format.UintType{Bits: 256}},
				{Name: "m", Type: &format.MappingType{KeyType: &format.UintType{Bits: 256}, ValueType: &format.BoolType{}}},
				{Name: "owner", Type: &format.ContractType{Kind: format.ContractNative, ID: 3, TypeName: "Token"}},
				{Name: "c", Type: &format.EnumType{Kind: format.KindLocal, ID: 1}},
			}},
	}
}

var colorType = &format.EnumType{Kind: format.KindLocal, ID: 1, TypeName: "Color", DefiningContractName: "C"}

func Test_Type(t *testing.T) {
	table := testTable()

	at, err := Type(&format.EnumType{Kind: format.KindLocal, ID: 1}, table)
	require.NoError(t, err)
	assert.Equal(t, 8, at.(*format.UintType).Bits)
	assert.Equal(t, "enum C.Color", at.TypeHint())

	at, err = Type(&format.StructType{Kind: format.KindLocal, ID: 2, Location: format.LocationMemory}, table)
	require.NoError(t, err)
	tt := at.(*format.TupleType)
	require.Len(t, tt.MemberTypes, 3)
	assert.Equal(t, "x", tt.MemberTypes[0].Name)
	assert.Equal(t, "owner", tt.MemberTypes[1].Name)
	assert.IsType(t, &format.AddressType{}, tt.MemberTypes[1].Type)
	assert.IsType(t, &format.UintType{}, tt.MemberTypes[2].Type)

	at, err = Type(&format.StringType{Location: format.LocationStorage}, table)
	require.NoError(t, err)
	assert.Equal(t, format.LocationNone, at.(*format.StringType).Location)

	for _, absent := range []format.Type{
		&format.MappingType{KeyType: &format.UintType{Bits: 8}, ValueType: &format.BoolType{}},
		&format.MagicType{Variable: format.MagicBlock},
		&format.FunctionType{Visibility: format.VisibilityInternal},
		&format.ArrayType{Kind: format.ArrayDynamic, BaseType: &format.FunctionType{Visibility: format.VisibilityInternal}},
	} {
		at, err = Type(absent, table)
		assert.NoError(t, err)
		assert.Nil(t, at, format.TypeString(absent))
	}

	at, err = Type(&format.FunctionType{Visibility: format.VisibilityExternal, Kind: format.FunctionSpecific,
		Mutability: format.MutabilityView}, table)
	require.NoError(t, err)
	assert.Equal(t, format.FunctionGeneral, at.(*format.FunctionType).Kind)

	_, err = Type(&format.StructType{ID: 99}, table)
	assert.IsType(t, &format.UnknownUserDefinedTypeError{}, err)
	_, err = Type(&format.EnumType{ID: 99}, table)
	assert.Error(t, err)
}

func Test_ResultEnumTransposition(t *testing.T) {
	table := testTable()

	r, err := Result(&format.EnumValue{Type: colorType, Name: "Blue", Numeric: big.NewInt(2)}, table)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(2), r.(*format.UintValue).Value)
	assert.Equal(t, 8, r.(*format.UintValue).Type.Bits)

	out := format.NewErrorResult(colorType, &format.EnumOutOfRangeError{Type: colorType, RawAsBig: big.NewInt(9)})
	r, err = Result(out, table)
	require.NoError(t, err)
	require.False(t, format.IsError(r))
	assert.Equal(t, big.NewInt(9), r.(*format.UintValue).Value)

	wide := format.NewErrorResult(colorType, &format.EnumOutOfRangeError{Type: colorType, RawAsBig: big.NewInt(300)})
	r, err = Result(wide, table)
	require.NoError(t, err)
	require.True(t, format.IsError(r))
	assert.IsType(t, &format.UintPaddingError{}, r.(*format.ErrorResult).Error)

	notFound := format.NewErrorResult(colorType, &format.EnumNotFoundDecodingError{Type: colorType, RawAsBig: big.NewInt(1)})
	r, err = Result(notFound, table)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1), r.(*format.UintValue).Value)

	padding := format.NewErrorResult(colorType, &format.EnumPaddingError{Type: colorType, Raw: "0x0100"})
	r, err = Result(padding, table)
	require.NoError(t, err)
	assert.IsType(t, &format.EnumPaddingError{}, r.(*format.ErrorResult).Error)
	assert.IsType(t, &format.UintType{}, r.DataType())
}

func Test_ResultStruct(t *testing.T) {
	table := testTable()
	st := &format.StructType{Kind: format.KindLocal, ID: 2, TypeName: "S", DefiningContractName: "C"}
	token := &format.ContractType{Kind: format.ContractNative, ID: 3, TypeName: "Token"}
	v := &format.StructValue{Type: st, Value: []format.NameValuePair{
		{Name: "x", Value: &format.UintValue{Type: &format.UintType{Bits: 256}, Value: big.NewInt(1)}},
		{Name: "m", Value: &format.MappingValue{Type: &format.MappingType{}}},
		{Name: "owner", Value: &format.ContractValue{Type: token,
			Value: format.ContractInfo{Address: "0x00000000000000000000000000000000000000Bb"}}},
		{Name: "c", Value: format.NewErrorResult(colorType, &format.EnumOutOfRangeError{RawAsBig: big.NewInt(4)})},
	}}
	r, err := Result(v, table)
	require.NoError(t, err)
	tv := r.(*format.TupleValue)
	require.Len(t, tv.Value, 3)
	assert.Equal(t, "0x00000000000000000000000000000000000000Bb", tv.Value[1].Value.(*format.AddressValue).Address)
	assert.Equal(t, big.NewInt(4), tv.Value[2].Value.(*format.UintValue).Value)
	assert.True(t, format.IsError(v.Value[3].Value))

	depth := 1
	r, err = Result(&format.StructValue{Type: st, Reference: &depth}, table)
	assert.NoError(t, err)
	assert.Nil(t, r)

	r, err = Result(&format.ArrayValue{
		Type:      &format.ArrayType{Kind: format.ArrayDynamic, BaseType: st},
		Reference: &depth,
	}, table)
	assert.NoError(t, err)
	assert.Nil(t, r)

	_, err = Result(&format.StructValue{Type: &format.StructType{ID: 99}}, table)
	assert.Error(t, err)
}

func Test_ResultAbsent(t *testing.T) {
	r, err := Result(nil, nil)
	assert.NoError(t, err)
	assert.Nil(t, r)

	r, err = Result(&format.MagicValue{Type: &format.MagicType{Variable: format.MagicMessage}}, nil)
	assert.NoError(t, err)
	assert.Nil(t, r)

	r, err = Result(&format.FunctionInternalValue{Type: &format.FunctionType{Visibility: format.VisibilityInternal}}, nil)
	assert.NoError(t, err)
	assert.Nil(t, r)
}
