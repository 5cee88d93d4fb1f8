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
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	lru "github.com/hashicorp/golang-lru"
	"github.com/holiman/uint256"
	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"

	"github.com/icon-project/evm-codec/abi"
	"github.com/icon-project/evm-codec/ast"
	"github.com/icon-project/evm-codec/codec"
	"github.com/icon-project/evm-codec/conversion"
	"github.com/icon-project/evm-codec/decode"
	"github.com/icon-project/evm-codec/format"
	"github.com/icon-project/evm-codec/storage"
)

const (
	DefaultLayoutCacheSize = 64
)

// SignatureResolver finds candidate entries for a selector of a contract
// whose ABI is unknown.
type SignatureResolver interface {
	Lookup(selector []byte) ([]*abi.Entry, error)
}

type contractEntry struct {
	contract    *Contract
	node        *ast.Node
	deployed    *decode.Context
	constructor *decode.Context
}

// Decoder decodes values of the contracts of a set of compilations. It is
// safe for concurrent use once built.
type Decoder struct {
	decls     ast.Declarations
	table     format.TypeTable
	allocator *storage.Allocator
	contracts map[string]*contractEntry
	layouts   *lru.Cache

	mtx       sync.RWMutex
	addresses map[common.Address]string
	contexts  map[common.Address]*decode.Context
	resolver  SignatureResolver

	l log.Logger
}

func contractKind(n *ast.Node) format.ContractKind {
	if n == nil || n.ContractKind == "" {
		return format.ContractKindContract
	}
	return format.ContractKind(n.ContractKind)
}

func NewDecoder(compilations []*Compilation, l log.Logger) (*Decoder, error) {
	var roots []*ast.Node
	for _, c := range compilations {
		roots = append(roots, c.roots()...)
	}
	decls := ast.Index(roots...)
	table, err := ast.BuildTypeTable(decls)
	if err != nil {
		return nil, err
	}
	allocator, err := storage.NewAllocator(decls, table, 0)
	if err != nil {
		return nil, err
	}
	layouts, err := lru.New(DefaultLayoutCacheSize)
	if err != nil {
		return nil, err
	}
	d := &Decoder{
		decls:     decls,
		table:     table,
		allocator: allocator,
		contracts: make(map[string]*contractEntry),
		layouts:   layouts,
		addresses: make(map[common.Address]string),
		contexts:  make(map[common.Address]*decode.Context),
		l:         l.WithFields(log.Fields{log.FieldKeyModule: "decoder"}),
	}
	for _, c := range compilations {
		for _, ct := range c.Contracts {
			if _, ok := d.contracts[ct.Name]; ok {
				d.l.Warnf("duplicated contract name:%s, ignore", ct.Name)
				continue
			}
			e, err := d.newContractEntry(ct)
			if err != nil {
				return nil, err
			}
			d.contracts[ct.Name] = e
		}
	}
	d.l.Debugf("NewDecoder contracts:%d declarations:%d", len(d.contracts), len(decls))
	return d, nil
}

func (d *Decoder) newContractEntry(ct *Contract) (*contractEntry, error) {
	e := &contractEntry{contract: ct, node: d.decls.Contract(ct.Name)}
	id := -1
	if e.node != nil {
		id = e.node.ID
	}
	kind := contractKind(e.node)
	e.deployed = decode.NewContext(ct.Name, id, kind, ct.ABI)
	e.constructor = decode.NewContext(ct.Name, id, kind, ct.ABI)
	e.constructor.IsConstructor = true
	var err error
	if len(ct.DeployedBytecode) > 0 && ct.DeployedSourceMap != "" {
		if e.deployed.InternalFunctions, err = InternalFunctions(ct.DeployedBytecode, ct.DeployedSourceMap, d.decls); err != nil {
			return nil, errors.Wrapf(err, "deployedSourceMap of %s", ct.Name)
		}
	}
	if len(ct.Bytecode) > 0 && ct.SourceMap != "" {
		if e.constructor.InternalFunctions, err = InternalFunctions(ct.Bytecode, ct.SourceMap, d.decls); err != nil {
			return nil, errors.Wrapf(err, "sourceMap of %s", ct.Name)
		}
	}
	return e, nil
}

func (d *Decoder) TypeTable() format.TypeTable {
	return d.table
}

func (d *Decoder) Contracts() []*Contract {
	l := make([]*Contract, 0, len(d.contracts))
	for _, e := range d.contracts {
		l = append(l, e.contract)
	}
	sort.Slice(l, func(i, j int) bool { return l[i].Name < l[j].Name })
	return l
}

func (d *Decoder) contract(name string) (*contractEntry, error) {
	e, ok := d.contracts[name]
	if !ok {
		return nil, format.ErrorCodeNotFoundContract.Errorf("not found contract name:%s", name)
	}
	return e, nil
}

func (d *Decoder) Contract(name string) (*Contract, error) {
	e, err := d.contract(name)
	if err != nil {
		return nil, err
	}
	return e.contract, nil
}

// RegisterAddress binds a deployed address to a contract, so that its
// calldata, logs and external function values resolve to it.
func (d *Decoder) RegisterAddress(address common.Address, name string) error {
	e, err := d.contract(name)
	if err != nil {
		return err
	}
	d.mtx.Lock()
	defer d.mtx.Unlock()
	d.addresses[address] = name
	d.contexts[address] = e.deployed
	d.l.Debugf("RegisterAddress address:%s contract:%s", address.Hex(), name)
	return nil
}

func (d *Decoder) ContractAt(address common.Address) (*Contract, bool) {
	d.mtx.RLock()
	defer d.mtx.RUnlock()
	name, ok := d.addresses[address]
	if !ok {
		return nil, false
	}
	return d.contracts[name].contract, true
}

// AddressesOf returns the registered addresses of contract.
func (d *Decoder) AddressesOf(name string) []string {
	d.mtx.RLock()
	defer d.mtx.RUnlock()
	var l []string
	for a, n := range d.addresses {
		if n == name {
			l = append(l, a.Hex())
		}
	}
	sort.Strings(l)
	return l
}

func (d *Decoder) SetSignatureResolver(r SignatureResolver) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	d.resolver = r
}

func (d *Decoder) signatureResolver() SignatureResolver {
	d.mtx.RLock()
	defer d.mtx.RUnlock()
	return d.resolver
}

func (d *Decoder) info(current *decode.Context, keys []*storage.Slot) *decode.Info {
	d.mtx.RLock()
	contexts := make(map[common.Address]*decode.Context, len(d.contexts))
	for k, v := range d.contexts {
		contexts[k] = v
	}
	d.mtx.RUnlock()
	return &decode.Info{
		UserDefinedTypes: d.table,
		Allocator:        d.allocator,
		Contexts:         contexts,
		CurrentContext:   current,
		MappingKeys:      keys,
	}
}

// Layout returns the storage allocation of the state variables of contract.
func (d *Decoder) Layout(name string) (*storage.Allocation, error) {
	if v, ok := d.layouts.Get(name); ok {
		return v.(*storage.Allocation), nil
	}
	e, err := d.contract(name)
	if err != nil {
		return nil, err
	}
	if e.node == nil {
		return nil, format.ErrorCodeNotFoundContract.Errorf("no declaration of contract name:%s", name)
	}
	alloc, err := d.allocator.AllocateContract(e.node)
	if err != nil {
		return nil, err
	}
	d.layouts.Add(name, alloc)
	return alloc, nil
}

// Variables decodes every state variable of contract from reader. Mappings
// only show the entries of keys.
func (d *Decoder) Variables(name string, reader decode.StorageReader, keys []*storage.Slot) ([]format.NameValuePair, error) {
	e, err := d.contract(name)
	if err != nil {
		return nil, err
	}
	alloc, err := d.Layout(name)
	if err != nil {
		return nil, err
	}
	state := &decode.State{Storage: reader}
	info := d.info(e.deployed, keys)
	l := make([]format.NameValuePair, 0, len(alloc.Ranges))
	for _, r := range alloc.Ranges {
		v, err := decode.Decode(r.Type, &decode.StoragePointer{Range: r}, state, info)
		if err != nil {
			return nil, errors.Wrapf(err, "fail to decode variable %s.%s", name, r.Name)
		}
		l = append(l, format.NameValuePair{Name: r.Name, Value: v})
	}
	return l, nil
}

func (d *Decoder) Variable(name, variable string, reader decode.StorageReader, keys []*storage.Slot) (format.Result, error) {
	e, err := d.contract(name)
	if err != nil {
		return nil, err
	}
	alloc, err := d.Layout(name)
	if err != nil {
		return nil, err
	}
	r, ok := alloc.ByName(variable)
	if !ok {
		return nil, format.ErrorCodeNotFoundEntry.Errorf("not found variable %s.%s", name, variable)
	}
	return decode.Decode(r.Type, &decode.StoragePointer{Range: r},
		&decode.State{Storage: reader}, d.info(e.deployed, keys))
}

// MappingKey resolves path from the state variable to the watched mapping
// keys it goes through. Path elements are mapping keys as native values,
// struct member names or array indexes. Nested mappings yield a key per
// level, outermost first.
func (d *Decoder) MappingKey(name, variable string, path ...interface{}) ([]*storage.Slot, error) {
	alloc, err := d.Layout(name)
	if err != nil {
		return nil, err
	}
	r, ok := alloc.ByName(variable)
	if !ok {
		return nil, format.ErrorCodeNotFoundEntry.Errorf("not found variable %s.%s", name, variable)
	}
	t, slot := r.Type, r.From.Slot
	var keys []*storage.Slot
	for i, p := range path {
		switch x := t.(type) {
		case *format.MappingType:
			k, err := conversion.Wrap(x.KeyType, p, d.table)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid key at %d of %s.%s", i, name, variable)
			}
			keys = append(keys, storage.MappingKeySlot(slot, k))
			vr, err := d.allocator.MappingValueRange(x, slot, k)
			if err != nil {
				return nil, err
			}
			t, slot = x.ValueType, vr.From.Slot
		case *format.StructType:
			member, ok := p.(string)
			if !ok {
				return nil, format.ErrorCodeInvalidValue.Errorf("member name expected at %d, got %T", i, p)
			}
			members, err := d.allocator.AllocateStruct(x.ID, slot)
			if err != nil {
				return nil, err
			}
			mr, ok := members.ByName(member)
			if !ok {
				return nil, format.ErrorCodeNotFoundEntry.Errorf("not found member %s of %s", member, x.TypeName)
			}
			t, slot = mr.Type, mr.From.Slot
		case *format.ArrayType:
			n, err := conversion.BigOf(p)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid index at %d", i)
			}
			index, overflow := uint256.FromBig(n)
			if overflow || n.Sign() < 0 {
				return nil, format.ErrorCodeInvalidValue.Errorf("index out of range at %d", i)
			}
			er, err := d.allocator.ArrayElementRange(x, slot, index)
			if err != nil {
				return nil, err
			}
			t, slot = x.BaseType, er.From.Slot
		default:
			return nil, format.ErrorCodeInvalidValue.Errorf("cannot step into %s at %d", format.TypeString(t), i)
		}
	}
	if len(keys) == 0 {
		return nil, format.ErrorCodeInvalidValue.Errorf("path of %s.%s has no mapping key", name, variable)
	}
	return keys, nil
}

func (d *Decoder) deployedAt(address common.Address) (*contractEntry, bool) {
	d.mtx.RLock()
	defer d.mtx.RUnlock()
	name, ok := d.addresses[address]
	if !ok {
		return nil, false
	}
	return d.contracts[name], true
}

// DecodeCalldata decodes a call to address. Calls to unknown contracts, or
// to functions missing from the ABI, are looked up in the signature
// resolver when there is one.
func (d *Decoder) DecodeCalldata(address common.Address, data []byte) (*codec.CalldataDecoding, error) {
	e, _ := d.deployedAt(address)
	return d.decodeCalldata(e, data)
}

// DecodeContractCalldata decodes data as a call to contract.
func (d *Decoder) DecodeContractCalldata(name string, data []byte) (*codec.CalldataDecoding, error) {
	e, err := d.contract(name)
	if err != nil {
		return nil, err
	}
	return d.decodeCalldata(e, data)
}

func (d *Decoder) decodeCalldata(e *contractEntry, data []byte) (*codec.CalldataDecoding, error) {
	var a abi.ABI
	var current *decode.Context
	if e != nil {
		a, current = e.contract.ABI, e.deployed
	}
	info := d.info(current, nil)
	r, err := codec.DecodeCalldata(a, data, info)
	if err != nil {
		return nil, err
	}
	if r.Kind == codec.CalldataFunction || r.Kind == codec.CalldataReceive || len(data) < abi.SelectorLength {
		return r, nil
	}
	resolver := d.signatureResolver()
	if resolver == nil {
		return r, nil
	}
	entries, err := resolver.Lookup(data[:abi.SelectorLength])
	if err != nil {
		return nil, err
	}
	var first *codec.CalldataDecoding
	for _, entry := range entries {
		c, err := codec.DecodeCalldata(abi.ABI{entry}, data, info)
		if err != nil || c.Kind != codec.CalldataFunction {
			d.l.Debugf("fail to decode with %s err:%v", entry.Signature(), err)
			continue
		}
		if !codec.HasError(c.Arguments) {
			return c, nil
		}
		if first == nil {
			first = c
		}
	}
	if first != nil {
		return first, nil
	}
	return r, nil
}

// DecodeConstructor decodes the constructor arguments of contract.
func (d *Decoder) DecodeConstructor(name string, args []byte) (*codec.CalldataDecoding, error) {
	e, err := d.contract(name)
	if err != nil {
		return nil, err
	}
	return codec.DecodeConstructor(e.contract.ABI, args, d.info(e.constructor, nil))
}

// DecodeLog decodes a log emitted by a registered contract, or with the
// events of every known contract otherwise.
func (d *Decoder) DecodeLog(lg *types.Log) ([]*codec.EventDecoding, error) {
	if lg == nil {
		return nil, format.ErrorCodeInvalidValue.New("nil log")
	}
	if e, ok := d.deployedAt(lg.Address); ok {
		r, err := codec.DecodeEvent(e.contract.ABI, lg.Topics, lg.Data, d.info(e.deployed, nil))
		if err != nil || len(r) > 0 {
			return r, err
		}
	}
	var all abi.ABI
	for _, c := range d.Contracts() {
		all = append(all, c.ABI.Events()...)
	}
	return codec.DecodeEvent(uniqueEvents(all), lg.Topics, lg.Data, d.info(nil, nil))
}

// uniqueEvents drops events declared by more than one contract with the
// same signature and indexing.
func uniqueEvents(l abi.ABI) abi.ABI {
	seen := make(map[string]bool)
	var r abi.ABI
	for _, e := range l {
		k := e.Signature()
		for _, in := range e.Inputs {
			if in.Indexed {
				k += ":i"
			} else {
				k += ":n"
			}
		}
		if e.Anonymous {
			k += ":anonymous"
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		r = append(r, e)
	}
	return r
}

// DecodeReturn decodes the data returned by the call to address with
// calldata.
func (d *Decoder) DecodeReturn(address common.Address, calldata, returndata []byte) ([]format.NameValuePair, error) {
	e, ok := d.deployedAt(address)
	if !ok {
		return nil, format.ErrorCodeNotFoundContract.Errorf("not registered address:%s", address.Hex())
	}
	if len(calldata) < abi.SelectorLength {
		return nil, format.ErrorCodeInvalidValue.New("calldata without selector")
	}
	f := e.contract.ABI.FunctionBySelector(calldata)
	if f == nil {
		return nil, format.ErrorCodeNotFoundEntry.Errorf("not found function selector:%x of %s",
			calldata[:abi.SelectorLength], e.contract.Name)
	}
	return codec.DecodeReturn(f, returndata, d.info(e.deployed, nil))
}

func (d *Decoder) DecodeRevert(address common.Address, data []byte) (*codec.RevertDecoding, error) {
	var a abi.ABI
	var current *decode.Context
	if e, ok := d.deployedAt(address); ok {
		a, current = e.contract.ABI, e.deployed
	}
	return codec.DecodeRevert(data, a, d.info(current, nil))
}
