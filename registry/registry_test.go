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

package registry

import (
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/icon-project/btp2/common/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icon-project/evm-codec/abi"
	"github.com/icon-project/evm-codec/database"
)

func newRegistry(t *testing.T) *Registry {
	db, err := database.OpenDatabase(database.Config{
		Driver: database.DriverSQLite,
		DBName: ":memory:",
	}, log.GlobalLogger())
	require.NoError(t, err)
	r, err := NewRegistry(db, log.GlobalLogger())
	require.NoError(t, err)
	return r
}

func Test_RegisterLookup(t *testing.T) {
	r := newRegistry(t)

	s, saved, err := r.Register("transfer(address to, uint256 amount)", "")
	require.NoError(t, err)
	assert.True(t, saved)
	assert.Equal(t, "0xa9059cbb", s.Selector)
	assert.Equal(t, "transfer(address,uint256)", s.Text)
	assert.Equal(t, abi.EntryFunction, s.Kind)

	_, saved, err = r.Register("function transfer(address,uint256)", abi.EntryFunction)
	require.NoError(t, err)
	assert.False(t, saved)

	l, err := r.Lookup(hexutil.MustDecode("0xa9059cbb"))
	require.NoError(t, err)
	require.Len(t, l, 1)
	assert.Equal(t, "transfer", l[0].Name)
	assert.Len(t, l[0].Inputs, 2)

	// selector collision with the well known transfer
	_, saved, err = r.Register("many_msg_babbage(bytes1)", "")
	require.NoError(t, err)
	assert.True(t, saved)
	l, err = r.Lookup(hexutil.MustDecode("0xa9059cbb"))
	require.NoError(t, err)
	require.Len(t, l, 2)
	assert.Equal(t, "transfer", l[0].Name)
	assert.Equal(t, "many_msg_babbage", l[1].Name)

	l, err = r.Lookup([]byte{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Len(t, l, 0)

	_, _, err = r.Register("not a signature", "")
	assert.Error(t, err)
	_, _, err = r.Register("f()", abi.EntryConstructor)
	assert.Error(t, err)
}

func Test_RegisterABI(t *testing.T) {
	r := newRegistry(t)
	a, err := abi.Parse([]byte(`[
		{"type":"function","name":"balanceOf","inputs":[{"name":"a","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
		{"type":"event","name":"Transfer","inputs":[{"name":"from","type":"address","indexed":true},
		  {"name":"to","type":"address","indexed":true},{"name":"value","type":"uint256"}]},
		{"type":"error","name":"Insufficient","inputs":[{"name":"need","type":"uint256"}]},
		{"type":"constructor","inputs":[]}
	]`))
	require.NoError(t, err)
	n, err := r.RegisterABI(a)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	n, err = r.RegisterABI(a)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	topic := a.Events()[0].Topic()
	l, err := r.Lookup(topic.Bytes())
	require.NoError(t, err)
	require.Len(t, l, 1)
	assert.Equal(t, abi.EntryEvent, l[0].Type)
	assert.Equal(t, "Transfer(address,address,uint256)", l[0].Signature())

	page, err := r.Signatures(database.Pageable{Size: 2}, "")
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalElements)
	assert.Len(t, page.Content, 2)

	page, err = r.Signatures(database.Pageable{}, abi.EntryError)
	require.NoError(t, err)
	require.Len(t, page.Content, 1)
	assert.Equal(t, "Insufficient(uint256)", page.Content[0].Text)
}
