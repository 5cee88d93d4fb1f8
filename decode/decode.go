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

package decode

import (
	"encoding/binary"
	"math/big"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/icon-project/btp2/common/log"

	"github.com/icon-project/evm-codec/conversion"
	"github.com/icon-project/evm-codec/format"
)

const (
	WordSize = conversion.WordSize
	// MaxLength bounds the element count of arrays and the byte length of
	// strings decoded from untrusted length words.
	MaxLength = 1 << 20
	// MaxHeadSize bounds the head of a static ABI value.
	MaxHeadSize = MaxLength * WordSize
	// MaxPointer bounds offsets read from memory, calldata and stack words.
	MaxPointer = 1 << 32
)

var (
	decodeLogger = log.New()

	bigMaxLength  = big.NewInt(MaxLength)
	bigMaxPointer = big.NewInt(MaxPointer)
)

func init() {
	decodeLogger.SetLevel(log.DebugLevel)
}

type paddingMode int

const (
	// paddingStrict requires padding to be zero, or the sign extension for
	// signed integers.
	paddingStrict paddingMode = iota
	// paddingPermissive masks the padding off.
	paddingPermissive
	// paddingExact is used when raw holds exactly the value bytes.
	paddingExact
)

type decoder struct {
	state *State
	info  *Info
}

// Decode decodes the value of type t at p. Failures to decode a value are
// returned as error results in place of the value; the returned error is
// reserved for failures to lay out storage or ABI data.
func Decode(t format.Type, p Pointer, state *State, info *Info) (format.Result, error) {
	if state == nil {
		state = &State{}
	}
	if info == nil {
		info = &Info{}
	}
	d := &decoder{state: state, info: info}
	decodeLogger.Tracef("Decode %s at %s", format.TypeString(t), p.Location())
	switch x := p.(type) {
	case *StoragePointer:
		return d.storage(t, x.Range)
	case *MemoryPointer:
		return d.memory(t, x.Start, nil)
	case *StackPointer:
		return d.stack(t, x)
	case *StackLiteralPointer:
		return d.stackLiteral(t, x.Literal)
	case *ABIPointer:
		return d.abi(t, x)
	case *TopicPointer:
		return d.topic(t, x.Index)
	case *SpecialPointer:
		return d.special(t, x.Name)
	default:
		return nil, format.ErrorCodeUnsupported.Errorf("unsupported pointer %T", p)
	}
}

func (d *decoder) table() format.TypeTable {
	if d.info.UserDefinedTypes != nil {
		return d.info.UserDefinedTypes
	}
	if d.info.Allocator != nil {
		return d.info.Allocator.TypeTable()
	}
	return nil
}

func toHex(b []byte) string {
	return hexutil.Encode(b)
}

func leftValue(raw []byte, size int, mode paddingMode, signed bool) ([]byte, bool) {
	if len(raw) < size {
		return common.LeftPadBytes(raw, size), true
	}
	v := raw[len(raw)-size:]
	if mode != paddingStrict {
		return v, true
	}
	var fill byte
	if signed && size > 0 && v[0]&0x80 != 0 {
		fill = 0xff
	}
	for _, b := range raw[:len(raw)-size] {
		if b != fill {
			return v, false
		}
	}
	return v, true
}

func rightValue(raw []byte, size int, mode paddingMode) ([]byte, bool) {
	if len(raw) < size {
		return common.RightPadBytes(raw, size), true
	}
	v := raw[:size]
	if mode != paddingStrict {
		return v, true
	}
	for _, b := range raw[size:] {
		if b != 0 {
			return v, false
		}
	}
	return v, true
}

func copyBytes(b []byte) []byte {
	c := make([]byte, len(b))
	copy(c, b)
	return c
}

// basic decodes value types held in raw.
func (d *decoder) basic(t format.Type, raw []byte, mode paddingMode) (format.Result, error) {
	switch x := t.(type) {
	case *format.UintType:
		v, ok := leftValue(raw, x.Bits/8, mode, false)
		if !ok {
			return format.NewErrorResult(t, &format.UintPaddingError{Raw: toHex(raw)}), nil
		}
		return &format.UintValue{Type: x, Value: conversion.ToBig(v)}, nil
	case *format.IntType:
		v, ok := leftValue(raw, x.Bits/8, mode, true)
		if !ok {
			return format.NewErrorResult(t, &format.IntPaddingError{Raw: toHex(raw)}), nil
		}
		return &format.IntValue{Type: x, Value: conversion.ToSignedBig(v)}, nil
	case *format.BoolType:
		v, ok := leftValue(raw, 1, mode, false)
		if !ok {
			return format.NewErrorResult(t, &format.BoolPaddingError{Raw: toHex(raw)}), nil
		}
		switch v[0] {
		case 0:
			return &format.BoolValue{Type: x, Value: false}, nil
		case 1:
			return &format.BoolValue{Type: x, Value: true}, nil
		default:
			return format.NewErrorResult(t, &format.BoolOutOfRangeError{
				RawAsBig: conversion.ToBig(v),
			}), nil
		}
	case *format.AddressType:
		v, ok := leftValue(raw, common.AddressLength, mode, false)
		if !ok {
			return format.NewErrorResult(t, &format.AddressPaddingError{Raw: toHex(raw)}), nil
		}
		return &format.AddressValue{Type: x, Address: conversion.ToAddress(v)}, nil
	case *format.ContractType:
		v, ok := leftValue(raw, common.AddressLength, mode, false)
		if !ok {
			return format.NewErrorResult(t, &format.ContractPaddingError{Raw: toHex(raw)}), nil
		}
		return &format.ContractValue{Type: x, Value: d.contractInfo(common.BytesToAddress(v))}, nil
	case *format.BytesType:
		if x.Kind != format.BytesStatic {
			return nil, format.ErrorCodeUnsupported.Errorf("dynamic bytes is not a value type")
		}
		v, ok := rightValue(raw, x.Length, mode)
		if !ok {
			return format.NewErrorResult(t, &format.BytesPaddingError{Raw: toHex(raw)}), nil
		}
		return &format.BytesValue{Type: x, Value: copyBytes(v)}, nil
	case *format.EnumType:
		return d.enum(x, raw, mode), nil
	case *format.FixedType, *format.UfixedType:
		return format.NewErrorResult(t, &format.FixedPointNotYetSupportedError{Type: t}), nil
	case *format.FunctionType:
		if x.Visibility == format.VisibilityExternal {
			v, ok := rightValue(raw, common.AddressLength+4, mode)
			if !ok {
				return format.NewErrorResult(t, &format.FunctionExternalNonStackPaddingError{Raw: toHex(raw)}), nil
			}
			return d.externalFunction(x, v[:common.AddressLength], v[common.AddressLength:]), nil
		}
		v, ok := leftValue(raw, 8, mode, false)
		if !ok {
			return format.NewErrorResult(t, &format.FunctionInternalPaddingError{Raw: toHex(raw)}), nil
		}
		return d.internalFunction(x, int(binary.BigEndian.Uint32(v[4:])), int(binary.BigEndian.Uint32(v[:4]))), nil
	default:
		return nil, format.ErrorCodeUnsupported.Errorf("unsupported value type %s", format.TypeString(t))
	}
}

func (d *decoder) enum(t *format.EnumType, raw []byte, mode paddingMode) format.Result {
	stored, err := d.table().FullEnum(t)
	if err != nil {
		return format.NewErrorResult(t, &format.EnumNotFoundDecodingError{
			Type: t, RawAsBig: conversion.ToBig(raw),
		})
	}
	v, ok := leftValue(raw, format.EnumBytes(len(stored.Options)), mode, false)
	if !ok {
		return format.NewErrorResult(t, &format.EnumPaddingError{Type: t, Raw: toHex(raw)})
	}
	n := conversion.ToBig(v)
	if !n.IsInt64() || n.Int64() >= int64(len(stored.Options)) {
		return format.NewErrorResult(t, &format.EnumOutOfRangeError{Type: t, RawAsBig: n})
	}
	full := stored.EnumType()
	full.Hint = t.Hint
	return &format.EnumValue{Type: full, Name: stored.Options[n.Int64()], Numeric: n}
}

func (d *decoder) contractInfo(addr common.Address) format.ContractInfo {
	ci := format.ContractInfo{Address: addr.Hex()}
	if ctx := d.info.contextOf(addr); ctx != nil {
		ci.Class = ctx.ContractType()
	}
	return ci
}

func (d *decoder) externalFunction(t *format.FunctionType, addr, selector []byte) format.Result {
	a := common.BytesToAddress(addr)
	v := &format.FunctionExternalValue{
		Type:     t,
		Contract: d.contractInfo(a),
		Selector: toHex(selector),
	}
	ctx := d.info.contextOf(a)
	if ctx == nil {
		v.Status = format.ExternalFunctionUnknown
		return v
	}
	e, ok := ctx.ABI[v.Selector]
	if !ok {
		v.Status = format.ExternalFunctionInvalid
		return v
	}
	v.Status = format.ExternalFunctionKnown
	v.Name = e.Name
	v.Signature = e.Signature()
	return v
}

func (d *decoder) internalFunction(t *format.FunctionType, deployedPC, constructorPC int) format.Result {
	ctx := d.info.CurrentContext
	var ct *format.ContractType
	if ctx != nil {
		ct = ctx.ContractType()
	}
	v := &format.FunctionInternalValue{
		Type:                      t,
		Context:                   ct,
		DeployedProgramCounter:    deployedPC,
		ConstructorProgramCounter: constructorPC,
	}
	if deployedPC == 0 && constructorPC == 0 {
		v.Status = format.InternalFunctionException
		v.Name = format.ExceptionZero
		return v
	}
	if deployedPC == 0 {
		return format.NewErrorResult(t, &format.MalformedInternalFunctionError{
			Context: ct, ConstructorProgramCounter: constructorPC,
		})
	}
	if ctx == nil || ctx.InternalFunctions == nil {
		v.Status = format.InternalFunctionUnknown
		return v
	}
	pc := deployedPC
	if ctx.IsConstructor {
		if constructorPC == 0 {
			return format.NewErrorResult(t, &format.DeployedFunctionInConstructorError{
				Context: ct, DeployedProgramCounter: deployedPC, ConstructorProgramCounter: constructorPC,
			})
		}
		pc = constructorPC
	}
	f, ok := ctx.InternalFunctions[pc]
	if !ok {
		return format.NewErrorResult(t, &format.NoSuchInternalFunctionError{
			Context: ct, DeployedProgramCounter: deployedPC, ConstructorProgramCounter: constructorPC,
		})
	}
	if f.IsDesignatedInvalid {
		v.Status = format.InternalFunctionException
		v.Name = format.ExceptionAssert
		return v
	}
	v.Status = format.InternalFunctionFunction
	v.Name = f.Name
	v.DefiningContractName = f.DefiningContractName
	return v
}

func bytesOrString(t format.Type, data []byte) format.Result {
	switch x := t.(type) {
	case *format.StringType:
		if utf8.Valid(data) {
			return &format.StringValue{Type: x, Value: string(data)}
		}
		return &format.StringValue{Type: x, Malformed: true, Raw: copyBytes(data)}
	case *format.BytesType:
		return &format.BytesValue{Type: x, Value: copyBytes(data)}
	default:
		return nil
	}
}

func isBytesOrString(t format.Type) bool {
	switch x := t.(type) {
	case *format.StringType:
		return true
	case *format.BytesType:
		return x.Kind == format.BytesDynamic
	default:
		return false
	}
}

func pointerValue(word []byte) (int, format.DecodingError) {
	n := conversion.ToBig(word)
	if n.Cmp(bigMaxPointer) > 0 {
		return 0, &format.OverlargePointerError{PointerAsBig: n}
	}
	return int(n.Int64()), nil
}

func lengthValue(word []byte) (int, format.DecodingError) {
	n := conversion.ToBig(word)
	if n.Cmp(bigMaxLength) > 0 {
		return 0, &format.OverlongArrayOrStringError{LengthAsBig: n}
	}
	return int(n.Int64()), nil
}

func staticLength(t *format.ArrayType) (int, format.DecodingError) {
	if t.Length == nil || t.Length.Cmp(bigMaxLength) > 0 {
		return 0, &format.OverlongArrayOrStringError{LengthAsBig: t.Length}
	}
	return int(t.Length.Int64()), nil
}

func readBytes(loc PointerLocation, data []byte, start, length int) ([]byte, format.DecodingError) {
	if start < 0 || length < 0 || start > len(data) || length > len(data)-start {
		return nil, &format.ReadErrorBytes{Location: string(loc), Start: start, Length: length}
	}
	return data[start : start+length], nil
}

// referenceResult marks a container already being decoded depth levels up.
func referenceResult(t format.Type, depth int) format.Result {
	switch x := t.(type) {
	case *format.ArrayType:
		return &format.ArrayValue{Type: x, Reference: &depth}
	case *format.StructType:
		return &format.StructValue{Type: x, Reference: &depth}
	default:
		return nil
	}
}
