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

package api

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/icon-project/btp2/common/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icon-project/evm-codec/database"
)

func newClient(t *testing.T, s *Server) *Client {
	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)
	return NewClient(ts.URL, log.DebugLevel, log.GlobalLogger())
}

func Test_Client(t *testing.T) {
	s := newServer(t)
	c := newClient(t, s)

	sel, err := c.Selector("transfer(address,uint256)")
	require.NoError(t, err)
	assert.Equal(t, "0xa9059cbb", sel.Selector)

	_, err = c.Selector("transfer(")
	if assert.Error(t, err) {
		assert.IsType(t, &ErrorResponse{}, err)
	}

	contracts, err := c.Contracts()
	require.NoError(t, err)
	require.Len(t, contracts, 1)
	assert.Equal(t, "Token", contracts[0].Name)
	assert.Equal(t, []string{tokenAddress.Hex()}, contracts[0].Addresses)

	layout, err := c.Layout("Token")
	require.NoError(t, err)
	assert.Contains(t, string(layout), "balances")

	_, err = c.Layout("Unknown")
	assert.Error(t, err)

	r, err := c.DecodeCalldata(&CalldataRequest{To: tokenAddress.Hex(), Data: transferCalldata()})
	require.NoError(t, err)
	m := make(map[string]json.RawMessage)
	require.NoError(t, json.Unmarshal(r, &m))
	assert.Equal(t, `"function"`, string(m["kind"]))

	_, err = c.Signatures(database.Pageable{Size: 10}, "")
	assert.Error(t, err)
}

func Test_ClientSignatures(t *testing.T) {
	s := newServer(t)
	withRegistry(t, s)
	c := newClient(t, s)

	sig, created, err := c.RegisterSignature(&SignatureRequest{Signature: "approve(address,uint256)"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "0x095ea7b3", sig.Selector)

	_, created, err = c.RegisterSignature(&SignatureRequest{Signature: "approve(address,uint256)"})
	require.NoError(t, err)
	assert.False(t, created)

	page, err := c.Signatures(database.Pageable{Size: 10}, "function")
	require.NoError(t, err)
	require.Len(t, page.Content, 1)
	assert.Equal(t, "0x095ea7b3", page.Content[0].Selector)
}
