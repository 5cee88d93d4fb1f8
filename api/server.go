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
	"context"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/icon-project/btp2/common/log"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/icon-project/evm-codec/abi"
	"github.com/icon-project/evm-codec/database"
	"github.com/icon-project/evm-codec/project"
	"github.com/icon-project/evm-codec/registry"
	"github.com/icon-project/evm-codec/storage"
)

const (
	ParamName          = "name"
	GroupUrlApi        = "/api"
	DefaultReadTimeout = time.Second * 30
)

func Logger(l log.Logger) log.Logger {
	return l.WithFields(log.Fields{log.FieldKeyModule: "api"})
}

type Server struct {
	e    *echo.Echo
	addr string
	d    *project.Decoder
	lv   log.Level
	l    log.Logger

	mtx sync.RWMutex
	r   *registry.Registry
	sc  project.StorageClient
}

func NewServer(addr string, d *project.Decoder, dumpLogLevel log.Level, l log.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()
	e.HTTPErrorHandler = HttpErrorHandler
	s := &Server{
		e:    e,
		addr: addr,
		d:    d,
		lv:   project.EnsureTransportLogLevel(dumpLogLevel),
		l:    Logger(l),
	}
	e.Use(
		middleware.CORSWithConfig(middleware.CORSConfig{
			MaxAge: 3600,
		}),
		middleware.Recover())
	s.RegisterAPIHandler(e.Group(GroupUrlApi))
	return s
}

// SetRegistry enables the signature endpoints and the calldata fallback
// over r.
func (s *Server) SetRegistry(r *registry.Registry) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.r = r
	s.d.SetSignatureResolver(r)
}

func (s *Server) SetStorageClient(sc project.StorageClient) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.sc = sc
}

func (s *Server) registry() (*registry.Registry, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	if s.r == nil {
		return nil, echo.NewHTTPError(http.StatusServiceUnavailable, "signature registry not configured")
	}
	return s.r, nil
}

func (s *Server) storageClient() (project.StorageClient, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	if s.sc == nil {
		return nil, echo.NewHTTPError(http.StatusServiceUnavailable, "rpc endpoint not configured")
	}
	return s.sc, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.e.ServeHTTP(w, r)
}

func (s *Server) Start() error {
	s.l.Infof("starting the server address:%s", s.addr)
	return s.e.Start(s.addr)
}

func (s *Server) Stop() error {
	s.l.Infoln("shutting down the server")
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	return s.e.Shutdown(ctx)
}

func bind(c echo.Context, v interface{}) error {
	if err := c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.Validate(v)
}

type SelectorRequest struct {
	Signature string `query:"signature" validate:"required"`
}

type SelectorResponse struct {
	Type      abi.EntryType `json:"type"`
	Signature string        `json:"signature"`
	Selector  string        `json:"selector"`
	Topic     string        `json:"topic,omitempty"`
}

type ContractResponse struct {
	Name       string   `json:"name"`
	SourcePath string   `json:"sourcePath,omitempty"`
	ABI        abi.ABI  `json:"abi"`
	Addresses  []string `json:"addresses,omitempty"`
}

type WatchedKey struct {
	Variable string        `json:"variable" validate:"required"`
	Path     []interface{} `json:"path" validate:"required,min=1"`
}

type VariablesRequest struct {
	Address string       `json:"address" validate:"required,eth_addr"`
	Block   string       `json:"block,omitempty" validate:"omitempty,number"`
	Keys    []WatchedKey `json:"keys,omitempty" validate:"dive"`
}

type CalldataRequest struct {
	To   string        `json:"to" validate:"omitempty,eth_addr"`
	Data hexutil.Bytes `json:"data"`
}

type LogRequest struct {
	Address string        `json:"address" validate:"omitempty,eth_addr"`
	Topics  []common.Hash `json:"topics" validate:"max=4"`
	Data    hexutil.Bytes `json:"data"`
}

type ReturnRequest struct {
	To         string        `json:"to" validate:"required,eth_addr"`
	Calldata   hexutil.Bytes `json:"calldata" validate:"required,min=4"`
	Returndata hexutil.Bytes `json:"returndata"`
}

type RevertRequest struct {
	To   string        `json:"to" validate:"omitempty,eth_addr"`
	Data hexutil.Bytes `json:"data"`
}

type SignatureRequest struct {
	Signature string        `json:"signature" validate:"required"`
	Kind      abi.EntryType `json:"kind,omitempty" validate:"omitempty,oneof=function error event"`
}

type SignaturesRequest struct {
	database.Pageable
	Kind abi.EntryType `query:"kind" validate:"omitempty,oneof=function error event"`
}

func (s *Server) RegisterAPIHandler(g *echo.Group) {
	g.Use(middleware.BodyDump(func(c echo.Context, reqBody []byte, resBody []byte) {
		s.l.Debugf("url=%s", c.Request().RequestURI)
		s.l.Logf(s.lv, "request=%s", reqBody)
		s.l.Logf(s.lv, "response=%s", resBody)
	}))
	g.GET("/selector", s.handleSelector)
	g.GET("/contracts", s.handleContracts)
	g.GET("/contracts/:"+ParamName+"/layout", s.handleLayout)
	g.POST("/contracts/:"+ParamName+"/variables", s.handleVariables)
	g.POST("/decode/calldata", s.handleDecodeCalldata)
	g.POST("/decode/log", s.handleDecodeLog)
	g.POST("/decode/return", s.handleDecodeReturn)
	g.POST("/decode/revert", s.handleDecodeRevert)
	g.GET("/signatures", s.handleSignatures)
	g.POST("/signatures", s.handleRegisterSignature)
}

func (s *Server) handleSelector(c echo.Context) error {
	req := &SelectorRequest{}
	if err := bind(c, req); err != nil {
		return err
	}
	e, err := abi.ParseSignature(req.Signature)
	if err != nil {
		return err
	}
	resp := &SelectorResponse{Type: e.Type, Signature: e.Signature(), Selector: e.SelectorHex()}
	if e.Type == abi.EntryEvent {
		resp.Topic = e.Topic().Hex()
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleContracts(c echo.Context) error {
	l := make([]*ContractResponse, 0)
	for _, ct := range s.d.Contracts() {
		l = append(l, &ContractResponse{
			Name:       ct.Name,
			SourcePath: ct.SourcePath,
			ABI:        ct.ABI,
			Addresses:  s.d.AddressesOf(ct.Name),
		})
	}
	return c.JSON(http.StatusOK, l)
}

func (s *Server) handleLayout(c echo.Context) error {
	alloc, err := s.d.Layout(c.Param(ParamName))
	if err != nil {
		s.l.Debugf("fail to Layout err:%+v", err)
		return err
	}
	return c.JSON(http.StatusOK, alloc)
}

func (s *Server) handleVariables(c echo.Context) error {
	name := c.Param(ParamName)
	req := &VariablesRequest{}
	if err := bind(c, req); err != nil {
		return err
	}
	sc, err := s.storageClient()
	if err != nil {
		return err
	}
	var keys []*storage.Slot
	for _, k := range req.Keys {
		l, err := s.d.MappingKey(name, k.Variable, k.Path...)
		if err != nil {
			return err
		}
		keys = append(keys, l...)
	}
	var block *big.Int
	if req.Block != "" {
		block, _ = new(big.Int).SetString(req.Block, 10)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), DefaultReadTimeout)
	defer cancel()
	reader := project.NewRPCStorage(ctx, sc, common.HexToAddress(req.Address), block)
	vars, err := s.d.Variables(name, reader, keys)
	if err != nil {
		s.l.Debugf("fail to Variables err:%+v", err)
		return err
	}
	return c.JSON(http.StatusOK, vars)
}

func (s *Server) handleDecodeCalldata(c echo.Context) error {
	req := &CalldataRequest{}
	if err := bind(c, req); err != nil {
		return err
	}
	r, err := s.d.DecodeCalldata(common.HexToAddress(req.To), req.Data)
	if err != nil {
		s.l.Debugf("fail to DecodeCalldata err:%+v", err)
		return err
	}
	return c.JSON(http.StatusOK, r)
}

func (s *Server) handleDecodeLog(c echo.Context) error {
	req := &LogRequest{}
	if err := bind(c, req); err != nil {
		return err
	}
	r, err := s.d.DecodeLog(&types.Log{
		Address: common.HexToAddress(req.Address),
		Topics:  req.Topics,
		Data:    req.Data,
	})
	if err != nil {
		s.l.Debugf("fail to DecodeLog err:%+v", err)
		return err
	}
	return c.JSON(http.StatusOK, r)
}

func (s *Server) handleDecodeReturn(c echo.Context) error {
	req := &ReturnRequest{}
	if err := bind(c, req); err != nil {
		return err
	}
	r, err := s.d.DecodeReturn(common.HexToAddress(req.To), req.Calldata, req.Returndata)
	if err != nil {
		s.l.Debugf("fail to DecodeReturn err:%+v", err)
		return err
	}
	return c.JSON(http.StatusOK, r)
}

func (s *Server) handleDecodeRevert(c echo.Context) error {
	req := &RevertRequest{}
	if err := bind(c, req); err != nil {
		return err
	}
	r, err := s.d.DecodeRevert(common.HexToAddress(req.To), req.Data)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, r)
}

func (s *Server) handleSignatures(c echo.Context) error {
	r, err := s.registry()
	if err != nil {
		return err
	}
	req := &SignaturesRequest{}
	if err = bind(c, req); err != nil {
		return err
	}
	page, err := r.Signatures(req.Pageable, req.Kind)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

func (s *Server) handleRegisterSignature(c echo.Context) error {
	r, err := s.registry()
	if err != nil {
		return err
	}
	req := &SignatureRequest{}
	if err = bind(c, req); err != nil {
		return err
	}
	sig, saved, err := r.Register(req.Signature, req.Kind)
	if err != nil {
		return err
	}
	code := http.StatusOK
	if saved {
		code = http.StatusCreated
	}
	return c.JSON(code, sig)
}
