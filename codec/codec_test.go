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

package codec

import (
	"math/big"
	"testing"

	gethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icon-project/evm-codec/abi"
	"github.com/icon-project/evm-codec/conversion"
	"github.com/icon-project/evm-codec/format"
)

const tokenABI = `[
	{"type":"function","name":"transfer","stateMutability":"nonpayable",
	 "inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],
	 "outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"batch","stateMutability":"nonpayable",
	 "inputs":[{"name":"items","type":"tuple[]","internalType":"struct Token.Item[]",
	   "components":[{"name":"id","type":"uint256"},{"name":"owner","type":"address"}]},
	  {"name":"memo","type":"string"}],
	 "outputs":[]},
	{"type":"event","name":"Transfer","anonymous":false,
	 "inputs":[{"name":"from","type":"address","indexed":true},
	  {"name":"to","type":"address","indexed":true},
	  {"name":"value","type":"uint256","indexed":false}]},
	{"type":"event","name":"Note","anonymous":true,
	 "inputs":[{"name":"tag","type":"string","indexed":true},{"name":"body","type":"string","indexed":false}]},
	{"type":"error","name":"Insufficient","inputs":[{"name":"need","type":"uint256"}]},
	{"type":"fallback","stateMutability":"payable"}
]`

func parseABI(t *testing.T) abi.ABI {
	a, err := abi.Parse([]byte(tokenABI))
	require.NoError(t, err)
	return a
}

func gethArgs(t *testing.T, types ...string) gethabi.Arguments {
	args := gethabi.Arguments{}
	for _, s := range types {
		gt, err := gethabi.NewType(s, "", nil)
		require.NoError(t, err)
		args = append(args, gethabi.Argument{Type: gt})
	}
	return args
}

func wrap(t *testing.T, typ format.Type, v interface{}) format.Result {
	r, err := conversion.Wrap(typ, v, nil)
	require.NoError(t, err)
	return r
}

var (
	uint256T = &format.UintType{Bits: 256}
	addressT = &format.AddressType{Kind: format.AddressGeneral}
	stringT  = &format.StringType{}
)

func Test_EncodeTupleMatchesGeth(t *testing.T) {
	addr := common.HexToAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	values := []format.Result{
		wrap(t, uint256T, 7),
		wrap(t, &format.IntType{Bits: 8}, -3),
		wrap(t, stringT, "hello world"),
		wrap(t, &format.ArrayType{Kind: format.ArrayDynamic, BaseType: &format.UintType{Bits: 16}}, []int{1, 2, 3}),
		wrap(t, addressT, addr.Hex()),
		wrap(t, &format.BytesType{Kind: format.BytesDynamic}, "0xdeadbeef"),
		wrap(t, &format.BytesType{Kind: format.BytesStatic, Length: 2}, "0xabcd"),
		wrap(t, &format.BoolType{}, true),
		wrap(t, &format.ArrayType{Kind: format.ArrayStatic, Length: big.NewInt(2), BaseType: stringT},
			[]string{"a", "bc"}),
	}
	b, err := EncodeTuple(values, nil)
	require.NoError(t, err)

	expected, err := gethArgs(t, "uint256", "int8", "string", "uint16[]", "address", "bytes", "bytes2",
		"bool", "string[2]").Pack(big.NewInt(7), int8(-3), "hello world", []uint16{1, 2, 3}, addr,
		[]byte{0xde, 0xad, 0xbe, 0xef}, [2]byte{0xab, 0xcd}, true, [2]string{"a", "bc"})
	require.NoError(t, err)
	assert.Equal(t, hexutil.Encode(expected), hexutil.Encode(b))
}

func Test_EncodeTupleAbifies(t *testing.T) {
	table := format.TypeTable{
		1: &format.StoredEnumType{ID: 1, TypeName: "E", Options: []string{"A", "B", "C"}},
		2: &format.StoredStructType{ID: 2, TypeName: "S", MemberTypes: []format.NameTypePair{
			{Name: "x", Type: uint256T},
			{Name: "e", Type: &format.EnumType{Kind: format.KindLocal, ID: 1}},
		}},
	}
	st := &format.StructType{Kind: format.KindLocal, ID: 2, TypeName: "S", Location: format.LocationMemory}
	v, err := conversion.Wrap(st, map[string]interface{}{"x": 5, "e": "C"}, table)
	require.NoError(t, err)

	b, err := EncodeTuple([]format.Result{v}, table)
	require.NoError(t, err)
	assert.Equal(t, append(common.LeftPadBytes([]byte{5}, 32), common.LeftPadBytes([]byte{2}, 32)...), b)

	_, err = EncodeTuple([]format.Result{&format.MappingValue{Type: &format.MappingType{}}}, table)
	assert.Error(t, err)

	_, err = EncodeTuple([]format.Result{format.NewErrorResult(uint256T, &format.UintPaddingError{Raw: "0x"})}, table)
	assert.Error(t, err)

	_, err = EncodeTuple([]format.Result{&format.UintValue{Type: &format.UintType{Bits: 8}, Value: big.NewInt(256)}}, nil)
	assert.Error(t, err)
}

func Test_CalldataRoundTrip(t *testing.T) {
	a := parseABI(t)
	transfer := a.Function("transfer")
	assert.Equal(t, "0xa9059cbb", transfer.SelectorHex())

	to := "0x00000000000000000000000000000000000000Aa"
	data, err := EncodeCalldata(transfer, []format.Result{
		wrap(t, addressT, to), wrap(t, uint256T, "1000000000000000000"),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xa9, 0x05, 0x9c, 0xbb}, data[:4])
	assert.Len(t, data, 4+64)

	d, err := DecodeCalldata(a, data, nil)
	require.NoError(t, err)
	assert.Equal(t, CalldataFunction, d.Kind)
	assert.Equal(t, "transfer", d.Entry.Name)
	require.Len(t, d.Arguments, 2)
	assert.Equal(t, "to", d.Arguments[0].Name)
	assert.Equal(t, common.HexToAddress(to).Hex(), d.Arguments[0].Value.(*format.AddressValue).Address)
	amount, _ := new(big.Int).SetString("1000000000000000000", 10)
	assert.Equal(t, amount, d.Arguments[1].Value.(*format.UintValue).Value)

	_, err = EncodeCalldata(transfer, []format.Result{wrap(t, addressT, to)}, nil)
	assert.Error(t, err)
}

func Test_DecodeCalldataTupleArray(t *testing.T) {
	a := parseABI(t)
	batch := a.Function("batch")
	assert.Equal(t, "batch((uint256,address)[],string)", batch.Signature())
	assert.Equal(t, "tuple(uint256,address)[]", abi.ParameterTypeString(batch.Inputs[0]))

	itemT := &format.TupleType{MemberTypes: []format.NameTypePair{{Name: "id", Type: uint256T}, {Name: "owner", Type: addressT}}}
	items := wrap(t, &format.ArrayType{Kind: format.ArrayDynamic, BaseType: itemT}, []interface{}{
		map[string]interface{}{"id": 1, "owner": "0x00000000000000000000000000000000000000Aa"},
		map[string]interface{}{"id": 2, "owner": "0x00000000000000000000000000000000000000Bb"},
	})
	data, err := EncodeCalldata(batch, []format.Result{items, wrap(t, stringT, "memo")}, nil)
	require.NoError(t, err)

	d, err := DecodeCalldata(a, data, nil)
	require.NoError(t, err)
	require.Equal(t, CalldataFunction, d.Kind)
	list := d.Arguments[0].Value.(*format.ArrayValue)
	require.Len(t, list.Value, 2)
	second := list.Value[1].(*format.TupleValue)
	assert.Equal(t, big.NewInt(2), second.Value[0].Value.(*format.UintValue).Value)
	assert.Equal(t, "memo", d.Arguments[1].Value.(*format.StringValue).Value)
}

func Test_DecodeCalldataFallback(t *testing.T) {
	a := parseABI(t)
	d, err := DecodeCalldata(a, []byte{1, 2, 3, 4, 5}, nil)
	require.NoError(t, err)
	assert.Equal(t, CalldataFallback, d.Kind)
	assert.Equal(t, "0x01020304", d.Selector)

	d, err = DecodeCalldata(abi.ABI{a.Function("transfer")}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, CalldataUnknown, d.Kind)

	receive, err := abi.NewEntry(abi.EntryReceive, "", nil, nil, "payable")
	require.NoError(t, err)
	withReceive := append(abi.ABI{receive}, a...)
	d, err = DecodeCalldata(withReceive, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, CalldataReceive, d.Kind)
}

func Test_DecodeCalldataTruncated(t *testing.T) {
	a := parseABI(t)
	data := append([]byte{0xa9, 0x05, 0x9c, 0xbb}, common.LeftPadBytes([]byte{0xaa}, 32)...)
	d, err := DecodeCalldata(a, data, nil)
	require.NoError(t, err)
	require.Len(t, d.Arguments, 2)
	assert.False(t, format.IsError(d.Arguments[0].Value))
	assert.True(t, format.IsError(d.Arguments[1].Value))
}

func Test_DecodeReturn(t *testing.T) {
	a := parseABI(t)
	data, err := gethArgs(t, "bool").Pack(true)
	require.NoError(t, err)
	values, err := DecodeReturn(a.Function("transfer"), data, nil)
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.True(t, values[0].Value.(*format.BoolValue).Value)
}

func Test_DecodeRevert(t *testing.T) {
	a := parseABI(t)

	r, err := DecodeRevert(nil, a, nil)
	require.NoError(t, err)
	assert.Equal(t, RevertEmpty, r.Kind)

	args, err := gethArgs(t, "string").Pack("not enough")
	require.NoError(t, err)
	r, err = DecodeRevert(append([]byte{0x08, 0xc3, 0x79, 0xa0}, args...), a, nil)
	require.NoError(t, err)
	assert.Equal(t, RevertError, r.Kind)
	assert.Equal(t, "not enough", r.Reason)

	args, err = gethArgs(t, "uint256").Pack(big.NewInt(0x11))
	require.NoError(t, err)
	r, err = DecodeRevert(append([]byte{0x4e, 0x48, 0x7b, 0x71}, args...), a, nil)
	require.NoError(t, err)
	assert.Equal(t, RevertPanic, r.Kind)
	assert.Equal(t, big.NewInt(0x11), r.PanicCode)
	assert.Equal(t, "arithmetic overflow or underflow", r.Reason)

	selector := crypto.Keccak256([]byte("Insufficient(uint256)"))[:4]
	args, err = gethArgs(t, "uint256").Pack(big.NewInt(42))
	require.NoError(t, err)
	r, err = DecodeRevert(append(selector, args...), a, nil)
	require.NoError(t, err)
	assert.Equal(t, RevertCustom, r.Kind)
	assert.Equal(t, "Insufficient", r.Entry.Name)
	assert.Equal(t, big.NewInt(42), r.Arguments[0].Value.(*format.UintValue).Value)

	r, err = DecodeRevert([]byte{1, 2, 3, 4}, a, nil)
	require.NoError(t, err)
	assert.Equal(t, RevertUnknown, r.Kind)
}

func Test_DecodeEvent(t *testing.T) {
	a := parseABI(t)
	from := common.HexToAddress("0x00000000000000000000000000000000000000Aa")
	to := common.HexToAddress("0x00000000000000000000000000000000000000Bb")
	topics := []common.Hash{
		crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)")),
		common.BytesToHash(from.Bytes()),
		common.BytesToHash(to.Bytes()),
	}
	data := common.LeftPadBytes([]byte{0x64}, 32)
	events, err := DecodeEvent(a, topics, data, nil)
	require.NoError(t, err)
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, "Transfer", ev.Entry.Name)
	require.Len(t, ev.Arguments, 3)
	assert.Equal(t, from.Hex(), ev.Arguments[0].Value.(*format.AddressValue).Address)
	assert.Equal(t, to.Hex(), ev.Arguments[1].Value.(*format.AddressValue).Address)
	assert.Equal(t, big.NewInt(100), ev.Arguments[2].Value.(*format.UintValue).Value)

	body, err := gethArgs(t, "string").Pack("hi")
	require.NoError(t, err)
	events, err = DecodeEvent(a, []common.Hash{crypto.Keccak256Hash([]byte("tag"))}, body, nil)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].Anonymous)
	assert.IsType(t, &format.IndexedReferenceTypeError{}, events[0].Arguments[0].Value.(*format.ErrorResult).Error)
	assert.Equal(t, "hi", events[0].Arguments[1].Value.(*format.StringValue).Value)

	events, err = DecodeEvent(a, nil, nil, nil)
	require.NoError(t, err)
	assert.Len(t, events, 0)
}
