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

package project

import (
	"context"
	"math/big"
	"os"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/icon-project/btp2/common/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icon-project/evm-codec/abi"
	"github.com/icon-project/evm-codec/codec"
	"github.com/icon-project/evm-codec/conversion"
	"github.com/icon-project/evm-codec/decode"
	"github.com/icon-project/evm-codec/format"
	"github.com/icon-project/evm-codec/storage"
)

var (
	tokenAddress = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	ownerAddress = common.HexToAddress("0x00000000000000000000000000000000000000Aa")
	spender      = common.HexToAddress("0x00000000000000000000000000000000000000Bb")
)

func loadCompilation(t *testing.T) *Compilation {
	b, err := os.ReadFile("testdata/Token.json")
	require.NoError(t, err)
	c, err := ParseArtifacts(b)
	require.NoError(t, err)
	return c
}

func newDecoder(t *testing.T) *Decoder {
	d, err := NewDecoder([]*Compilation{loadCompilation(t)}, log.GlobalLogger())
	require.NoError(t, err)
	return d
}

func word(n int64) []byte {
	return common.LeftPadBytes(big.NewInt(n).Bytes(), 32)
}

func keySlot(key []byte, slot []byte) common.Hash {
	return crypto.Keccak256Hash(common.LeftPadBytes(key, 32), slot)
}

func mustKeys(t *testing.T, d *Decoder, variable string, path ...interface{}) []*storage.Slot {
	keys, err := d.MappingKey("Token", variable, path...)
	require.NoError(t, err)
	return keys
}

func members(l []format.NameValuePair) map[string]format.Result {
	m := make(map[string]format.Result)
	for _, p := range l {
		m[p.Name] = p.Value
	}
	return m
}

func Test_DecoderLayout(t *testing.T) {
	d := newDecoder(t)
	alloc, err := d.Layout("Token")
	require.NoError(t, err)
	require.Len(t, alloc.Ranges, 4)

	owner, ok := alloc.ByName("owner")
	require.True(t, ok)
	assert.Equal(t, 12, owner.From.Index)
	info, ok := alloc.ByName("info")
	require.True(t, ok)
	require.NotNil(t, info.Members)
	holders, ok := info.Members.ByName("holders")
	require.True(t, ok)
	addr, err := holders.From.Slot.Address()
	require.NoError(t, err)
	assert.Equal(t, common.BigToHash(big.NewInt(4)), addr)

	again, err := d.Layout("Token")
	require.NoError(t, err)
	assert.True(t, alloc == again)

	_, err = d.Layout("Unknown")
	assert.Error(t, err)
}

func Test_DecoderVariables(t *testing.T) {
	d := newDecoder(t)

	m := decode.MapStorage{}
	m.Set(common.BigToHash(big.NewInt(0)), ownerAddress.Bytes())
	m.Set(keySlot(ownerAddress.Bytes(), word(1)), word(1000))
	outer := keySlot(ownerAddress.Bytes(), word(2))
	m.Set(keySlot(spender.Bytes(), outer.Bytes()), word(5))
	m.Set(common.BigToHash(big.NewInt(3)), word(77))
	m.Set(keySlot(spender.Bytes(), word(4)), []byte{1})

	var keys []*storage.Slot
	keys = append(keys, mustKeys(t, d, "balances", ownerAddress.Hex())...)
	keys = append(keys, mustKeys(t, d, "allowances", ownerAddress.Hex(), spender.Hex())...)
	keys = append(keys, mustKeys(t, d, "info", "holders", spender.Hex())...)

	vars, err := d.Variables("Token", m, keys)
	require.NoError(t, err)
	v := members(vars)

	assert.Equal(t, ownerAddress.Hex(), v["owner"].(*format.AddressValue).Address)

	balances := v["balances"].(*format.MappingValue)
	require.Len(t, balances.Value, 1)
	assert.Equal(t, big.NewInt(1000), balances.Value[0].Value.(*format.UintValue).Value)

	allowances := v["allowances"].(*format.MappingValue)
	require.Len(t, allowances.Value, 1)
	inner := allowances.Value[0].Value.(*format.MappingValue)
	require.Len(t, inner.Value, 1)
	assert.Equal(t, spender.Hex(), inner.Value[0].Key.(*format.AddressValue).Address)
	assert.Equal(t, big.NewInt(5), inner.Value[0].Value.(*format.UintValue).Value)

	info := members(v["info"].(*format.StructValue).Value)
	assert.Equal(t, big.NewInt(77), info["total"].(*format.UintValue).Value)
	holders := info["holders"].(*format.MappingValue)
	require.Len(t, holders.Value, 1)
	assert.True(t, holders.Value[0].Value.(*format.BoolValue).Value)

	bal, err := d.Variable("Token", "balances", m, nil)
	require.NoError(t, err)
	assert.Len(t, bal.(*format.MappingValue).Value, 0)

	_, err = d.Variable("Token", "missing", m, nil)
	assert.Error(t, err)
}

func Test_DecoderMappingKeyErrors(t *testing.T) {
	d := newDecoder(t)
	_, err := d.MappingKey("Token", "owner")
	assert.Error(t, err)
	_, err = d.MappingKey("Token", "owner", 1)
	assert.Error(t, err)
	_, err = d.MappingKey("Token", "info", 1)
	assert.Error(t, err)
	_, err = d.MappingKey("Token", "info", "nothing")
	assert.Error(t, err)
	_, err = d.MappingKey("Token", "balances", "not an address")
	assert.Error(t, err)

	keys, err := d.MappingKey("Token", "allowances", ownerAddress.Hex(), spender.Hex())
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.True(t, keys[1].Path.Equal(keys[0]))
}

func Test_DecoderInternalFunctionContext(t *testing.T) {
	d := newDecoder(t)
	require.NoError(t, d.RegisterAddress(tokenAddress, "Token"))
	ct, ok := d.ContractAt(tokenAddress)
	require.True(t, ok)
	assert.Equal(t, "Token", ct.Name)
	assert.Error(t, d.RegisterAddress(tokenAddress, "Unknown"))

	e := d.contracts["Token"]
	ft := &format.FunctionType{Visibility: format.VisibilityInternal}
	v, err := decode.Decode(ft, &decode.StackPointer{From: 0, To: 0},
		&decode.State{Stack: [][]byte{word(3)}}, d.info(e.deployed, nil))
	require.NoError(t, err)
	f := v.(*format.FunctionInternalValue)
	assert.Equal(t, format.InternalFunctionFunction, f.Status)
	assert.Equal(t, "_move", f.Name)
	assert.Equal(t, "Token", f.DefiningContractName)
}

func encodeTransfer(t *testing.T, e *abi.Entry, to common.Address, amount int64) []byte {
	args := []format.Result{
		conversion.MustWrap(&format.AddressType{Kind: format.AddressSpecific}, to.Hex(), nil),
		conversion.MustWrap(&format.UintType{Bits: 256}, amount, nil),
	}
	data, err := codec.EncodeCalldata(e, args, nil)
	require.NoError(t, err)
	return data
}

type testResolver map[string][]*abi.Entry

func (r testResolver) Lookup(selector []byte) ([]*abi.Entry, error) {
	return r[common.Bytes2Hex(selector)], nil
}

func Test_DecoderDecodeCalldata(t *testing.T) {
	d := newDecoder(t)
	require.NoError(t, d.RegisterAddress(tokenAddress, "Token"))
	ct, err := d.Contract("Token")
	require.NoError(t, err)

	data := encodeTransfer(t, ct.ABI.Function("transfer"), spender, 5)
	r, err := d.DecodeCalldata(tokenAddress, data)
	require.NoError(t, err)
	assert.Equal(t, codec.CalldataFunction, r.Kind)
	assert.Equal(t, "0xa9059cbb", r.Selector)
	require.Len(t, r.Arguments, 2)
	assert.Equal(t, big.NewInt(5), r.Arguments[1].Value.(*format.UintValue).Value)

	approve, err := abi.ParseSignature("function approve(address,uint256)")
	require.NoError(t, err)
	data = encodeTransfer(t, approve, spender, 9)
	other := common.HexToAddress("0x1000000000000000000000000000000000000001")

	r, err = d.DecodeCalldata(other, data)
	require.NoError(t, err)
	assert.Equal(t, codec.CalldataUnknown, r.Kind)

	d.SetSignatureResolver(testResolver{common.Bytes2Hex(data[:4]): {approve}})
	r, err = d.DecodeCalldata(other, data)
	require.NoError(t, err)
	assert.Equal(t, codec.CalldataFunction, r.Kind)
	assert.Equal(t, "approve", r.Entry.Name)
	assert.Equal(t, big.NewInt(9), r.Arguments[1].Value.(*format.UintValue).Value)
}

func Test_DecoderDecodeLog(t *testing.T) {
	d := newDecoder(t)
	lg := &types.Log{
		Address: common.HexToAddress("0x1000000000000000000000000000000000000001"),
		Topics: []common.Hash{
			crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)")),
			common.BytesToHash(ownerAddress.Bytes()),
			common.BytesToHash(spender.Bytes()),
		},
		Data: word(7),
	}
	l, err := d.DecodeLog(lg)
	require.NoError(t, err)
	require.Len(t, l, 1)
	assert.Equal(t, "Transfer", l[0].Entry.Name)
	args := members(l[0].Arguments)
	assert.Equal(t, ownerAddress.Hex(), args["from"].(*format.AddressValue).Address)
	assert.Equal(t, big.NewInt(7), args["value"].(*format.UintValue).Value)

	require.NoError(t, d.RegisterAddress(lg.Address, "Token"))
	l, err = d.DecodeLog(lg)
	require.NoError(t, err)
	require.Len(t, l, 1)

	_, err = d.DecodeLog(nil)
	assert.Error(t, err)
}

func Test_DecoderDecodeReturnAndRevert(t *testing.T) {
	d := newDecoder(t)
	require.NoError(t, d.RegisterAddress(tokenAddress, "Token"))
	ct, _ := d.Contract("Token")
	balanceOf := ct.ABI.Function("balanceOf")
	sel := balanceOf.Selector()

	r, err := d.DecodeReturn(tokenAddress, sel[:], word(42))
	require.NoError(t, err)
	require.Len(t, r, 1)
	assert.Equal(t, "balance", r[0].Name)
	assert.Equal(t, big.NewInt(42), r[0].Value.(*format.UintValue).Value)

	_, err = d.DecodeReturn(spender, sel[:], word(42))
	assert.Error(t, err)
	_, err = d.DecodeReturn(tokenAddress, []byte{1, 2, 3, 4}, word(42))
	assert.Error(t, err)

	insufficient := ct.ABI.Errors()[0].Selector()
	rv, err := d.DecodeRevert(tokenAddress, append(insufficient[:], word(3)...))
	require.NoError(t, err)
	assert.Equal(t, codec.RevertCustom, rv.Kind)
	assert.Equal(t, "Insufficient", rv.Entry.Name)
}

func Test_DecoderConstructor(t *testing.T) {
	d := newDecoder(t)
	r, err := d.DecodeConstructor("Token", nil)
	require.NoError(t, err)
	assert.Equal(t, codec.CalldataConstructor, r.Kind)
	assert.Len(t, r.Arguments, 0)
	_, err = d.DecodeConstructor("Unknown", nil)
	assert.Error(t, err)
}

type countingClient struct {
	calls int
	words map[common.Hash][]byte
}

func (c *countingClient) StorageAt(ctx context.Context, account common.Address, key common.Hash, blockNumber *big.Int) ([]byte, error) {
	c.calls++
	return c.words[key], nil
}

func Test_RPCStorage(t *testing.T) {
	c := &countingClient{words: map[common.Hash][]byte{
		common.BigToHash(big.NewInt(3)): {0x01, 0x02},
	}}
	s := NewRPCStorage(context.Background(), c, tokenAddress, nil)
	w, err := s.StorageAt(common.BigToHash(big.NewInt(3)))
	require.NoError(t, err)
	assert.Equal(t, common.LeftPadBytes([]byte{0x01, 0x02}, 32), w)
	_, err = s.StorageAt(common.BigToHash(big.NewInt(3)))
	require.NoError(t, err)
	assert.Equal(t, 1, c.calls)

	w, err = s.StorageAt(common.BigToHash(big.NewInt(9)))
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 32), w)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewRPCStorage(ctx, c, tokenAddress, nil).StorageAt(common.Hash{})
	assert.Error(t, err)
}
