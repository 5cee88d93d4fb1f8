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
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"
)

const (
	DefaultTransportLogLevel = log.TraceLevel
	TransportLogLevelLimit   = log.InfoLevel
)

type LogLevel log.Level

func (l LogLevel) Level() log.Level {
	return log.Level(l)
}

func (l LogLevel) MarshalJSON() ([]byte, error) {
	ll := log.Level(l)
	if ll > log.TraceLevel || ll < log.PanicLevel {
		return nil, errors.New("out of range log.Level")
	}
	return json.Marshal(ll.String())
}

func (l *LogLevel) UnmarshalJSON(input []byte) error {
	var str string
	if err := json.Unmarshal(input, &str); err != nil {
		return err
	}
	v, err := log.ParseLevel(str)
	if err != nil {
		return err
	}
	*l = LogLevel(v)
	return nil
}

// HttpTransport dumps JSON-RPC request and response bodies at lv.
type HttpTransport struct {
	*http.Transport
	lv log.Level
	l  log.Logger
}

func (t *HttpTransport) log(rc io.ReadCloser) (io.ReadCloser, error) {
	if rc == nil {
		return nil, nil
	}
	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.Wrapf(err, "fail to io.ReadAll err:%s", err.Error())
	}
	t.l.Logln(t.lv, string(b))
	return io.NopCloser(bytes.NewBuffer(b)), nil
}

func (t *HttpTransport) RoundTrip(req *http.Request) (resp *http.Response, err error) {
	if req.Body, err = t.log(req.Body); err != nil {
		return nil, err
	}
	if resp, err = t.Transport.RoundTrip(req); err != nil {
		return nil, errors.Wrapf(err, "fail to RoundTrip err:%s", err.Error())
	}
	if resp.Body, err = t.log(resp.Body); err != nil {
		return nil, err
	}
	return resp, err
}

func EnsureTransportLogLevel(lv log.Level) log.Level {
	if lv < TransportLogLevelLimit {
		return DefaultTransportLogLevel
	}
	return lv
}

func NewHttpClient(lv log.Level, l log.Logger) *http.Client {
	return &http.Client{
		Transport: &HttpTransport{
			Transport: &http.Transport{},
			lv:        EnsureTransportLogLevel(lv),
			l:         l,
		},
	}
}

// StorageClient is the subset of ethclient.Client used to read storage.
type StorageClient interface {
	StorageAt(ctx context.Context, account common.Address, key common.Hash, blockNumber *big.Int) ([]byte, error)
}

func NewRPCClient(ctx context.Context, endpoint string, lv log.Level, l log.Logger) (*ethclient.Client, error) {
	rc, err := rpc.DialOptions(ctx, endpoint, rpc.WithHTTPClient(NewHttpClient(lv, l)))
	if err != nil {
		return nil, errors.Wrapf(err, "fail to DialOptions endpoint:%s err:%s", endpoint, err.Error())
	}
	return ethclient.NewClient(rc), nil
}

// RPCStorage reads the storage of a contract account at a fixed block. A
// nil block reads the latest state. Words read are memoized, so one
// RPCStorage should serve a single consistent snapshot.
type RPCStorage struct {
	ctx     context.Context
	c       StorageClient
	address common.Address
	block   *big.Int

	mtx   sync.Mutex
	words map[common.Hash][]byte
}

func NewRPCStorage(ctx context.Context, c StorageClient, address common.Address, block *big.Int) *RPCStorage {
	return &RPCStorage{
		ctx:     ctx,
		c:       c,
		address: address,
		block:   block,
		words:   make(map[common.Hash][]byte),
	}
}

func (s *RPCStorage) StorageAt(slot common.Hash) ([]byte, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if w, ok := s.words[slot]; ok {
		return w, nil
	}
	if err := s.ctx.Err(); err != nil {
		return nil, err
	}
	b, err := s.c.StorageAt(s.ctx, s.address, slot, s.block)
	if err != nil {
		return nil, errors.Wrapf(err, "fail to StorageAt address:%s slot:%s err:%s",
			s.address.Hex(), slot.Hex(), err.Error())
	}
	w := common.LeftPadBytes(b, common.HashLength)
	s.words[slot] = w
	return w, nil
}
