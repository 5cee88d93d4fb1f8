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

package conversion

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/icon-project/btp2/common/errors"
	"github.com/stretchr/testify/assert"

	"github.com/icon-project/evm-codec/format"
)

func Test_ToBytes(t *testing.T) {
	args := []struct {
		n        int64
		length   int
		expected string
	}{
		{0, 0, "0x"},
		{255, 1, "0xff"},
		{1, 4, "0x00000001"},
		{-1, 0, "0xff"},
		{-1, 2, "0xffff"},
		{-128, 0, "0x80"},
		{-129, 0, "0xff7f"},
		{-256, 2, "0xff00"},
	}
	for _, arg := range args {
		b, err := ToBytes(big.NewInt(arg.n), arg.length)
		assert.NoError(t, err)
		assert.Equal(t, arg.expected, hexutil.Encode(b), "n:%d length:%d", arg.n, arg.length)
	}

	for _, n := range []int64{256, -129} {
		_, err := ToBytes(big.NewInt(n), 1)
		assert.Error(t, err)
		assert.Equal(t, format.ErrorCodeInvalidValue, errors.CodeOf(err))
	}

	assert.Equal(t, int64(-1), ToSignedBig([]byte{0xff, 0xff}).Int64())
	assert.Equal(t, int64(0x7fff), ToSignedBig([]byte{0x7f, 0xff}).Int64())
	assert.Equal(t, int64(0xffff), ToBig([]byte{0xff, 0xff}).Int64())
}

func Test_HexToBytes(t *testing.T) {
	b, err := HexToBytes("0x123")
	assert.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x23}, b)

	b, err = HexToBytes("abcd")
	assert.NoError(t, err)
	assert.Equal(t, []byte{0xab, 0xcd}, b)

	_, err = HexToBytes("0xzz")
	assert.Error(t, err)
}

func Test_Decimal(t *testing.T) {
	r := ToDecimal(big.NewInt(12345), 2)
	assert.Equal(t, "123.45", r.FloatString(2))

	n, err := FromDecimal(big.NewRat(3, 2), 1)
	assert.NoError(t, err)
	assert.Equal(t, int64(15), n.Int64())

	_, err = FromDecimal(big.NewRat(5, 4), 1)
	assert.Error(t, err)
}

func Test_Wrap(t *testing.T) {
	u8 := &format.UintType{Bits: 8}
	r, err := Wrap(u8, "0xff", nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(255), r.(*format.UintValue).Value.Int64())
	_, err = Wrap(u8, 256, nil)
	assert.Error(t, err)
	_, err = Wrap(u8, -1, nil)
	assert.Error(t, err)

	i8 := &format.IntType{Bits: 8}
	_, err = Wrap(i8, -128, nil)
	assert.NoError(t, err)
	_, err = Wrap(i8, 128, nil)
	assert.Error(t, err)

	b4 := &format.BytesType{Kind: format.BytesStatic, Length: 4}
	_, err = Wrap(b4, "0x01020304", nil)
	assert.NoError(t, err)
	_, err = Wrap(b4, "0x0102", nil)
	assert.Error(t, err)

	r, err = Wrap(&format.AddressType{Kind: format.AddressGeneral}, "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", nil)
	assert.NoError(t, err)
	assert.Equal(t, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", r.(*format.AddressValue).Address)

	r, err = Wrap(&format.StringType{}, []byte{0x61, 0xff}, nil)
	assert.NoError(t, err)
	assert.True(t, r.(*format.StringValue).Malformed)

	et := &format.EnumType{ID: 7, TypeName: "Color"}
	table := format.TypeTable{7: &format.StoredEnumType{ID: 7, TypeName: "Color", Options: []string{"Red", "Green"}}}
	r, err = Wrap(et, "Color.Green", table)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), r.(*format.EnumValue).Numeric.Int64())
	_, err = Wrap(et, 2, table)
	assert.Error(t, err)

	tt := &format.TupleType{MemberTypes: []format.NameTypePair{
		{Name: "id", Type: &format.UintType{Bits: 256}},
		{Name: "flags", Type: &format.ArrayType{Kind: format.ArrayStatic, Length: big.NewInt(2), BaseType: &format.BoolType{}}},
	}}
	r, err = Wrap(tt, map[string]interface{}{"id": 1, "flags": []interface{}{true, "false"}}, nil)
	assert.NoError(t, err)
	assert.Len(t, r.(*format.TupleValue).Value, 2)
	_, err = Wrap(tt, []interface{}{1, []interface{}{true}}, nil)
	assert.Error(t, err)

	_, err = Wrap(&format.StructType{ID: 9}, map[string]interface{}{}, nil)
	assert.IsType(t, &format.UnknownUserDefinedTypeError{}, err)
}

func Test_MappingKeyBytes(t *testing.T) {
	b, err := MappingKeyBytes(&format.StringValue{Type: &format.StringType{}, Value: "abc"})
	assert.NoError(t, err)
	assert.Equal(t, []byte("abc"), b)

	b, err = MappingKeyBytes(&format.BoolValue{Type: &format.BoolType{}, Value: true})
	assert.NoError(t, err)
	assert.Equal(t, common.LeftPadBytes([]byte{1}, WordSize), b)

	b, err = MappingKeyBytes(&format.IntValue{Type: &format.IntType{Bits: 8}, Value: big.NewInt(-1)})
	assert.NoError(t, err)
	assert.Len(t, b, WordSize)
	assert.Equal(t, byte(0xff), b[0])

	b, err = MappingKeyBytes(&format.BytesValue{Type: &format.BytesType{Kind: format.BytesStatic, Length: 2}, Value: []byte{1, 2}})
	assert.NoError(t, err)
	assert.Equal(t, common.RightPadBytes([]byte{1, 2}, WordSize), b)

	_, err = MappingKeyBytes(nil)
	assert.Error(t, err)
}

func Test_Nativize(t *testing.T) {
	large := new(big.Int).Lsh(common.Big1, 80)
	sv := &format.StructValue{
		Type: &format.StructType{TypeName: "Info"},
		Value: []format.NameValuePair{
			{Name: "total", Value: &format.UintValue{Type: &format.UintType{Bits: 256}, Value: common.Big2}},
			{Name: "large", Value: &format.UintValue{Type: &format.UintType{Bits: 256}, Value: large}},
			{Name: "name", Value: &format.StringValue{Type: &format.StringType{}, Malformed: true, Raw: []byte{0x61, 0xff}}},
			{Name: "broken", Value: format.NewErrorResult(&format.BoolType{}, &format.BoolOutOfRangeError{RawAsBig: common.Big2})},
			{Name: "color", Value: &format.EnumValue{Type: &format.EnumType{TypeName: "Color", DefiningContractName: "Token"}, Name: "Red", Numeric: common.Big0}},
		},
	}
	m := Nativize(sv).(map[string]interface{})
	assert.Equal(t, int64(2), m["total"])
	assert.IsType(t, float64(0), m["large"])
	assert.Equal(t, "a�", m["name"])
	assert.Nil(t, m["broken"])
	assert.Equal(t, "Token.Color.Red", m["color"])

	tv := &format.TupleValue{
		Type: &format.TupleType{},
		Value: []format.NameValuePair{
			{Value: &format.BoolValue{Type: &format.BoolType{}, Value: true}},
			{Value: &format.BytesValue{Type: &format.BytesType{Kind: format.BytesDynamic}, Value: []byte{1}}},
		},
	}
	assert.Equal(t, []interface{}{true, "0x01"}, Nativize(tv))
}
