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

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/icon-project/btp2/common/log"

	"github.com/icon-project/evm-codec/abi"
	"github.com/icon-project/evm-codec/decode"
	"github.com/icon-project/evm-codec/format"
)

type CalldataKind string

const (
	CalldataFunction    CalldataKind = "function"
	CalldataConstructor CalldataKind = "constructor"
	CalldataFallback    CalldataKind = "fallback"
	CalldataReceive     CalldataKind = "receive"
	CalldataUnknown     CalldataKind = "unknown"
)

type CalldataDecoding struct {
	Kind      CalldataKind           `json:"kind"`
	Entry     *abi.Entry             `json:"abi,omitempty"`
	Selector  string                 `json:"selector,omitempty"`
	Arguments []format.NameValuePair `json:"arguments,omitempty"`
	Data      hexutil.Bytes          `json:"data,omitempty"`
}

type RevertKind string

const (
	RevertEmpty   RevertKind = "empty"
	RevertError   RevertKind = "error"
	RevertPanic   RevertKind = "panic"
	RevertCustom  RevertKind = "custom"
	RevertUnknown RevertKind = "unknown"
)

type RevertDecoding struct {
	Kind      RevertKind             `json:"kind"`
	Entry     *abi.Entry             `json:"abi,omitempty"`
	Arguments []format.NameValuePair `json:"arguments,omitempty"`
	// Reason is the message of Error(string) or the description of the
	// panic code.
	Reason    string        `json:"reason,omitempty"`
	PanicCode *big.Int      `json:"panicCode,omitempty"`
	Data      hexutil.Bytes `json:"data,omitempty"`
}

type EventDecoding struct {
	Entry     *abi.Entry             `json:"abi"`
	Anonymous bool                   `json:"anonymous,omitempty"`
	Arguments []format.NameValuePair `json:"arguments"`
}

var (
	errorEntry = mustParseSignature("error Error(string)")
	panicEntry = mustParseSignature("error Panic(uint256)")

	panicReasons = map[uint64]string{
		0x00: "generic compiler panic",
		0x01: "assertion failed",
		0x11: "arithmetic overflow or underflow",
		0x12: "division or modulo by zero",
		0x21: "invalid enum conversion",
		0x22: "invalid encoded storage byte array",
		0x31: "pop on empty array",
		0x32: "array index out of bounds",
		0x41: "too much memory allocated",
		0x51: "call to zero internal function",
	}
)

func mustParseSignature(sig string) *abi.Entry {
	e, err := abi.ParseSignature(sig)
	if err != nil {
		log.Panicf("fail to ParseSignature sig:%s err:%+v", sig, err)
	}
	return e
}

func PanicReason(code *big.Int) string {
	if code.IsUint64() {
		if r, ok := panicReasons[code.Uint64()]; ok {
			return r
		}
	}
	return "unknown panic code " + hexutil.EncodeBig(code)
}

// DecodeTuple decodes members encoded as a tuple at the start of data.
// Values which fail to decode are error results in place; the returned
// error is for types without ABI layout.
func DecodeTuple(members []format.NameTypePair, data []byte, info *decode.Info) ([]format.NameValuePair, error) {
	return decode.DecodeABITuple(members, decode.PointerReturndata, 0,
		&decode.State{Returndata: data}, info)
}

func decodeEntryInputs(e *abi.Entry, src decode.PointerLocation, start int, state *decode.State,
	info *decode.Info) ([]format.NameValuePair, error) {
	members, err := e.InputTypes()
	if err != nil {
		return nil, err
	}
	return decode.DecodeABITuple(members, src, start, state, info)
}

// DecodeCalldata finds the function of a called with data and decodes its
// arguments. Calls which match no function resolve to receive or fallback
// like the contract would.
func DecodeCalldata(a abi.ABI, data []byte, info *decode.Info) (*CalldataDecoding, error) {
	if len(data) == 0 {
		if e := a.Receive(); e != nil {
			return &CalldataDecoding{Kind: CalldataReceive, Entry: e}, nil
		}
	}
	if len(data) >= abi.SelectorLength {
		if e := a.FunctionBySelector(data); e != nil {
			args, err := decodeEntryInputs(e, decode.PointerCalldata, abi.SelectorLength,
				&decode.State{Calldata: data}, info)
			if err != nil {
				return nil, err
			}
			return &CalldataDecoding{
				Kind:      CalldataFunction,
				Entry:     e,
				Selector:  e.SelectorHex(),
				Arguments: args,
			}, nil
		}
	}
	r := &CalldataDecoding{Kind: CalldataUnknown, Data: data}
	if len(data) >= abi.SelectorLength {
		r.Selector = hexutil.Encode(data[:abi.SelectorLength])
	}
	if e := a.Fallback(); e != nil {
		r.Kind, r.Entry = CalldataFallback, e
	}
	codecLogger.Debugf("DecodeCalldata no function kind:%s selector:%s", r.Kind, r.Selector)
	return r, nil
}

// DecodeConstructor decodes the constructor arguments appended to the
// creation bytecode.
func DecodeConstructor(a abi.ABI, args []byte, info *decode.Info) (*CalldataDecoding, error) {
	e := a.Constructor()
	if e == nil {
		var err error
		if e, err = abi.NewEntry(abi.EntryConstructor, "", nil, nil, string(format.MutabilityNonPayable)); err != nil {
			return nil, err
		}
	}
	values, err := decodeEntryInputs(e, decode.PointerCalldata, 0, &decode.State{Calldata: args}, info)
	if err != nil {
		return nil, err
	}
	return &CalldataDecoding{Kind: CalldataConstructor, Entry: e, Arguments: values}, nil
}

func DecodeReturn(e *abi.Entry, data []byte, info *decode.Info) ([]format.NameValuePair, error) {
	members, err := e.OutputTypes()
	if err != nil {
		return nil, err
	}
	return DecodeTuple(members, data, info)
}

// DecodeRevert decodes revert data as Error(string), Panic(uint256) or one
// of the errors declared in a.
func DecodeRevert(data []byte, a abi.ABI, info *decode.Info) (*RevertDecoding, error) {
	if len(data) == 0 {
		return &RevertDecoding{Kind: RevertEmpty}, nil
	}
	r := &RevertDecoding{Kind: RevertUnknown, Data: data}
	if len(data) < abi.SelectorLength {
		return r, nil
	}
	builtin := abi.ABI{errorEntry, panicEntry}
	e := builtin.ErrorBySelector(data)
	if e == nil {
		e = a.ErrorBySelector(data)
	}
	if e == nil {
		return r, nil
	}
	args, err := decodeEntryInputs(e, decode.PointerReturndata, abi.SelectorLength,
		&decode.State{Returndata: data}, info)
	if err != nil {
		return nil, err
	}
	r.Entry, r.Arguments, r.Data = e, args, nil
	switch e {
	case errorEntry:
		r.Kind = RevertError
		if s, ok := args[0].Value.(*format.StringValue); ok && !s.Malformed {
			r.Reason = s.Value
		}
	case panicEntry:
		r.Kind = RevertPanic
		if n, ok := args[0].Value.(*format.UintValue); ok {
			r.PanicCode = n.Value
			r.Reason = PanicReason(n.Value)
		}
	default:
		r.Kind = RevertCustom
	}
	return r, nil
}

// DecodeEvent returns the decodings of the log among the events of a.
// Non-anonymous events are matched by the first topic and anonymous events
// by their count of indexed parameters. Decodings without error values are
// preferred when there is more than one candidate.
func DecodeEvent(a abi.ABI, topics []common.Hash, data []byte, info *decode.Info) ([]*EventDecoding, error) {
	var candidates []*abi.Entry
	if len(topics) > 0 {
		if e := a.EventByTopic(topics[0]); e != nil && e.IndexedCount() == len(topics)-1 {
			candidates = append(candidates, e)
		}
	}
	for _, e := range a.Events() {
		if e.Anonymous && e.IndexedCount() == len(topics) {
			candidates = append(candidates, e)
		}
	}
	state := &decode.State{Eventdata: data, Topics: make([][]byte, len(topics))}
	for i, t := range topics {
		state.Topics[i] = t.Bytes()
	}
	var clean, all []*EventDecoding
	for _, e := range candidates {
		d, err := decodeEvent(e, state, info)
		if err != nil {
			return nil, err
		}
		all = append(all, d)
		if !HasError(d.Arguments) {
			clean = append(clean, d)
		}
	}
	if len(clean) > 0 {
		return clean, nil
	}
	return all, nil
}

func decodeEvent(e *abi.Entry, state *decode.State, info *decode.Info) (*EventDecoding, error) {
	members, err := e.InputTypes()
	if err != nil {
		return nil, err
	}
	var plain []format.NameTypePair
	for i, m := range members {
		if !e.Inputs[i].Indexed {
			plain = append(plain, m)
		}
	}
	values, err := decode.DecodeABITuple(plain, decode.PointerEventdata, 0, state, info)
	if err != nil {
		return nil, err
	}
	topic := 1
	if e.Anonymous {
		topic = 0
	}
	args := make([]format.NameValuePair, len(members))
	for i, m := range members {
		if !e.Inputs[i].Indexed {
			args[i], values = values[0], values[1:]
			continue
		}
		v, err := decode.Decode(m.Type, &decode.TopicPointer{Index: topic}, state, info)
		if err != nil {
			return nil, err
		}
		args[i] = format.NameValuePair{Name: m.Name, Value: v}
		topic++
	}
	return &EventDecoding{Entry: e, Anonymous: e.Anonymous, Arguments: args}, nil
}

// HasError reports whether any of the decoded members carries an error.
func HasError(members []format.NameValuePair) bool {
	for _, m := range members {
		if containsError(m.Value) {
			return true
		}
	}
	return false
}

// containsError ignores IndexedReferenceTypeError which every indexed
// reference type carries.
func containsError(r format.Result) bool {
	switch x := r.(type) {
	case *format.ErrorResult:
		_, indexed := x.Error.(*format.IndexedReferenceTypeError)
		return !indexed
	case *format.ArrayValue:
		for _, e := range x.Value {
			if containsError(e) {
				return true
			}
		}
	case *format.StructValue:
		return HasError(x.Value)
	case *format.TupleValue:
		return HasError(x.Value)
	case *format.MappingValue:
		for _, kv := range x.Value {
			if containsError(kv.Value) {
				return true
			}
		}
	}
	return false
}
