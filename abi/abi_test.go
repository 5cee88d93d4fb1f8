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
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"

	"github.com/icon-project/evm-codec/format"
)

const testABI = `[
  {"type":"function","name":"transfer","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable"},
  {"name":"legacy","inputs":[],"outputs":[],"constant":true},
  {"type":"function","name":"batch","inputs":[{"name":"items","type":"tuple[]","internalType":"struct Box.Item[]","components":[{"name":"id","type":"uint"},{"name":"owner","type":"address"}]}],"outputs":[]},
  {"type":"event","name":"Transfer","anonymous":false,"inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false}]},
  {"type":"error","name":"Insufficient","inputs":[{"name":"needed","type":"uint256"}]},
  {"type":"receive","stateMutability":"payable"}
]`

func Test_Parse(t *testing.T) {
	a, err := Parse([]byte(testABI))
	assert.NoError(t, err)
	assert.Len(t, a.Functions(), 3)
	assert.Len(t, a.Events(), 1)
	assert.Len(t, a.Errors(), 1)
	assert.True(t, a.Payable())

	legacy := a.Function("legacy")
	if assert.NotNil(t, legacy) {
		assert.Equal(t, EntryFunction, legacy.Type)
		assert.Equal(t, string(format.MutabilityView), legacy.StateMutability)
	}
}

func Test_Selector(t *testing.T) {
	a, err := Parse([]byte(testABI))
	assert.NoError(t, err)

	transfer := a.Function("transfer")
	assert.Equal(t, "transfer(address,uint256)", transfer.Signature())
	assert.Equal(t, "0xa9059cbb", transfer.SelectorHex())
	assert.Equal(t, transfer, a.FunctionBySelector([]byte{0xa9, 0x05, 0x9c, 0xbb, 0x00}))
	assert.Nil(t, a.FunctionBySelector([]byte{0xa9, 0x05}))

	ev := a.Event("Transfer")
	assert.Equal(t, "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef", ev.Topic().Hex())
	assert.Equal(t, ev, a.EventByTopic(ev.Topic()))
	assert.Equal(t, 2, ev.IndexedCount())

	batch := a.Function("batch")
	assert.Equal(t, "batch((uint256,address)[])", batch.Signature())
	assert.Equal(t, "tuple(uint256,address)[]", ParameterTypeString(batch.Inputs[0]))
}

func Test_ParameterType(t *testing.T) {
	a, err := Parse([]byte(testABI))
	assert.NoError(t, err)
	members, err := a.Function("batch").InputTypes()
	assert.NoError(t, err)
	if assert.Len(t, members, 1) {
		assert.Equal(t, "items", members[0].Name)
		at, ok := members[0].Type.(*format.ArrayType)
		if assert.True(t, ok) {
			assert.Equal(t, format.ArrayDynamic, at.Kind)
			assert.Equal(t, "struct Box.Item[]", at.Hint)
			tt, ok := at.BaseType.(*format.TupleType)
			if assert.True(t, ok) {
				assert.Equal(t, "struct Box.Item", tt.Hint)
				assert.Equal(t, "tuple(uint256,address)", format.TypeString(tt))
			}
		}
	}

	args := []struct {
		typ   string
		valid bool
	}{
		{"uint8", true},
		{"int", true},
		{"bytes32", true},
		{"fixed128x18", false},
		{"uint0", false},
		{"address[2][]", true},
		{"uint7", false},
		{"uint264", false},
		{"bytes33", false},
		{"bytes0", false},
		{"uint256[0]", false},
		{"fixed128", false},
		{"foo", false},
	}
	for _, arg := range args {
		_, err := ParameterType(Parameter{Type: arg.typ})
		assert.Equal(t, arg.valid, err == nil, arg.typ)
	}
}

func Test_ParseSignature(t *testing.T) {
	e, err := ParseSignature("transfer(address to, uint amount)")
	assert.NoError(t, err)
	assert.Equal(t, EntryFunction, e.Type)
	assert.Equal(t, "transfer(address,uint256)", e.Signature())
	assert.Equal(t, "to", e.Inputs[0].Name)
	assert.Equal(t, "0xa9059cbb", e.SelectorHex())

	e, err = ParseSignature("event Transfer(address indexed from, address indexed to, uint256 value)")
	assert.NoError(t, err)
	assert.Equal(t, EntryEvent, e.Type)
	assert.Equal(t, 2, e.IndexedCount())
	assert.Equal(t, "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef", e.Topic().Hex())

	e, err = ParseSignature("batch((uint256,address)[] items) returns (bool)")
	assert.NoError(t, err)
	assert.Equal(t, "batch((uint256,address)[])", e.Signature())
	assert.Len(t, e.Outputs, 1)

	e, err = ParseSignature("error Insufficient(uint256)")
	assert.NoError(t, err)
	assert.Equal(t, EntryError, e.Type)

	e, err = ParseSignature("event Log(tuple(uint256 id, address owner)[] items, bytes32 indexed key) anonymous")
	assert.NoError(t, err)
	assert.True(t, e.Anonymous)
	assert.Equal(t, 1, e.IndexedCount())
	assert.Equal(t, "Log((uint256,address)[],bytes32)", e.Signature())
	assert.Equal(t, "items", e.Inputs[0].Name)
	assert.Equal(t, "", e.Inputs[0].Components[0].Name)
	assert.Equal(t, "", e.Inputs[0].InternalType)

	e, err = ParseSignature("function withdraw(uint256 memory amount) returns ()")
	assert.NoError(t, err)
	assert.Equal(t, "withdraw(uint256)", e.Signature())
	assert.Equal(t, "amount", e.Inputs[0].Name)
	assert.Len(t, e.Outputs, 0)

	for _, sig := range []string{"", "transfer", "1abc()", "f(uint7)", "f(uint256", "f() extra", "f(uint256,)",
		"f(uint256 a b)", "error E(uint256) returns (bool)", "f(fixed128x18)", "f(bytes0)"} {
		_, err = ParseSignature(sig)
		assert.Error(t, err, sig)
	}
}

func Test_NewEntry(t *testing.T) {
	params := []Parameter{{Name: "from", Type: "address", Indexed: true}, {Name: "to", Type: "address", Indexed: true}, {Name: "value", Type: "uint"}}
	e, err := NewEntry(EntryEvent, "Transfer", params, nil, "")
	assert.NoError(t, err)
	assert.Equal(t, "Transfer(address,address,uint256)", e.Signature())
	assert.Equal(t, "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef", e.Topic().Hex())

	f, err := e.As(EntryFunction)
	assert.NoError(t, err)
	assert.Equal(t, EntryEvent, e.Type)
	assert.Equal(t, EntryFunction, f.Type)
	assert.Equal(t, e.Signature(), f.Signature())
	assert.Equal(t, e.Selector(), f.Selector())
	assert.Equal(t, common.Hash{}, f.Topic())
	assert.Equal(t, string(format.MutabilityNonPayable), f.StateMutability)

	c, err := NewEntry(EntryConstructor, "", nil, nil, string(format.MutabilityNonPayable))
	assert.NoError(t, err)
	assert.Equal(t, "()", c.Signature())

	_, err = NewEntry(EntryFunction, "f", []Parameter{{Type: "uint7"}}, nil, "")
	assert.Error(t, err)
	_, err = Parse([]byte(`[{"type":"function","name":"f","inputs":[{"name":"x","type":"int300"}]}]`))
	assert.Error(t, err)
}
