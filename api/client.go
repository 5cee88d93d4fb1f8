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
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"

	"github.com/icon-project/evm-codec/abi"
	"github.com/icon-project/evm-codec/database"
	"github.com/icon-project/evm-codec/project"
	"github.com/icon-project/evm-codec/registry"
)

// Client calls the server endpoints. Decoded values are returned as raw
// JSON since results carry their own type information.
type Client struct {
	*http.Client
	baseUrl    string
	baseApiUrl string
	lv         log.Level
	l          log.Logger
}

func NewClient(url string, transportLogLevel log.Level, l log.Logger) *Client {
	l = Logger(l)
	return &Client{
		Client:     project.NewHttpClient(transportLogLevel, l),
		baseUrl:    url,
		baseApiUrl: url + GroupUrlApi,
		lv:         transportLogLevel,
		l:          l,
	}
}

func (c *Client) apiUrl(format string, args ...interface{}) string {
	return c.baseApiUrl + fmt.Sprintf(format, args...)
}

func (c *Client) do(method, url string, reqPtr, respPtr interface{}) (resp *http.Response, err error) {
	var reqBody io.Reader
	if reqPtr != nil {
		var b []byte
		if b, err = json.Marshal(reqPtr); err != nil {
			c.l.Debugf("fail to encode Request err:%+v", err)
			return nil, err
		}
		reqBody = bytes.NewReader(b)
	}
	if !strings.HasPrefix(url, c.baseApiUrl) {
		url = c.baseApiUrl + url
	}
	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		c.l.Debugf("fail to NewRequest err:%+v", err)
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	c.l.Debugf("url=%s", req.URL)
	if resp, err = c.Client.Do(req); err != nil {
		return
	}
	if resp.StatusCode/100 != 2 {
		er := &ErrorResponse{}
		if err = UnmarshalBody(resp.Body, er); err != nil {
			c.l.Debugf("fail to decode ErrorResponse err:%+v", err)
			err = errors.Errorf("server response not success, StatusCode:%d",
				resp.StatusCode)
			return
		}
		err = er
		return
	}
	if respPtr != nil {
		if err = UnmarshalBody(resp.Body, respPtr); err != nil {
			c.l.Debugf("fail to decode resp err:%+v", err)
			return
		}
	} else {
		resp.Body.Close()
	}
	return
}

func (c *Client) Selector(signature string) (*SelectorResponse, error) {
	resp := &SelectorResponse{}
	q := url.Values{"signature": []string{signature}}
	if _, err := c.do(http.MethodGet, c.apiUrl("/selector?%s", q.Encode()), nil, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) Contracts() ([]*ContractResponse, error) {
	var resp []*ContractResponse
	if _, err := c.do(http.MethodGet, c.apiUrl("/contracts"), nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) Layout(name string) (json.RawMessage, error) {
	var resp json.RawMessage
	if _, err := c.do(http.MethodGet, c.apiUrl("/contracts/%s/layout", url.PathEscape(name)), nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) Variables(name string, req *VariablesRequest) (json.RawMessage, error) {
	var resp json.RawMessage
	if _, err := c.do(http.MethodPost, c.apiUrl("/contracts/%s/variables", url.PathEscape(name)), req, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) decode(kind string, req interface{}) (json.RawMessage, error) {
	var resp json.RawMessage
	if _, err := c.do(http.MethodPost, c.apiUrl("/decode/%s", kind), req, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) DecodeCalldata(req *CalldataRequest) (json.RawMessage, error) {
	return c.decode("calldata", req)
}

func (c *Client) DecodeLog(req *LogRequest) (json.RawMessage, error) {
	return c.decode("log", req)
}

func (c *Client) DecodeReturn(req *ReturnRequest) (json.RawMessage, error) {
	return c.decode("return", req)
}

func (c *Client) DecodeRevert(req *RevertRequest) (json.RawMessage, error) {
	return c.decode("revert", req)
}

func (c *Client) Signatures(p database.Pageable, kind abi.EntryType) (*database.Page[registry.Signature], error) {
	q := url.Values{}
	q.Set("page", strconv.FormatUint(uint64(p.Page), 10))
	q.Set("size", strconv.FormatUint(uint64(p.Size), 10))
	if len(p.Sort) > 0 {
		q.Set("sort", p.Sort)
	}
	if len(kind) > 0 {
		q.Set("kind", string(kind))
	}
	resp := &database.Page[registry.Signature]{}
	if _, err := c.do(http.MethodGet, c.apiUrl("/signatures?%s", q.Encode()), nil, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// RegisterSignature returns the stored signature and whether it was newly
// created.
func (c *Client) RegisterSignature(req *SignatureRequest) (*registry.Signature, bool, error) {
	resp := &registry.Signature{}
	r, err := c.do(http.MethodPost, c.apiUrl("/signatures"), req, resp)
	if err != nil {
		return nil, false, err
	}
	return resp, r.StatusCode == http.StatusCreated, nil
}

func UnmarshalBody(b io.ReadCloser, v interface{}) error {
	defer b.Close()
	if err := json.NewDecoder(b).Decode(v); err != nil {
		return err
	}
	return nil
}
