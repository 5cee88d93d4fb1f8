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

package format

import (
	"math/big"
)

type ResultKind string

const (
	ResultValue ResultKind = "value"
	ResultError ResultKind = "error"
)

// Result is a decoded value or a decoding error in place of the value.
// Results are never mutated once built.
type Result interface {
	DataType() Type
	Kind() ResultKind
}

type UintValue struct {
	Type  *UintType
	Value *big.Int
}

func (v *UintValue) DataType() Type   { return v.Type }
func (v *UintValue) Kind() ResultKind { return ResultValue }

type IntValue struct {
	Type  *IntType
	Value *big.Int
}

func (v *IntValue) DataType() Type   { return v.Type }
func (v *IntValue) Kind() ResultKind { return ResultValue }

type BoolValue struct {
	Type  *BoolType
	Value bool
}

func (v *BoolValue) DataType() Type   { return v.Type }
func (v *BoolValue) Kind() ResultKind { return ResultValue }

type BytesValue struct {
	Type  *BytesType
	Value []byte
}

func (v *BytesValue) DataType() Type   { return v.Type }
func (v *BytesValue) Kind() ResultKind { return ResultValue }

type AddressValue struct {
	Type *AddressType
	// Address is in checksum case.
	Address string
}

func (v *AddressValue) DataType() Type   { return v.Type }
func (v *AddressValue) Kind() ResultKind { return ResultValue }

// StringValue holds Value for valid UTF-8 content, otherwise Malformed is set
// and Raw keeps the undecodable bytes.
type StringValue struct {
	Type      *StringType
	Value     string
	Malformed bool
	Raw       []byte
}

func (v *StringValue) DataType() Type   { return v.Type }
func (v *StringValue) Kind() ResultKind { return ResultValue }

// FixedValue is used by both fixed and ufixed types.
type FixedValue struct {
	Type  Type
	Value *big.Rat
}

func (v *FixedValue) DataType() Type   { return v.Type }
func (v *FixedValue) Kind() ResultKind { return ResultValue }

type EnumValue struct {
	Type    *EnumType
	Name    string
	Numeric *big.Int
}

func (v *EnumValue) DataType() Type   { return v.Type }
func (v *EnumValue) Kind() ResultKind { return ResultValue }

// ContractInfo describes the contract at an address. Class is nil when the
// code at the address is not known.
type ContractInfo struct {
	Address string        `json:"address"`
	Class   *ContractType `json:"class,omitempty"`
}

func (c ContractInfo) Known() bool {
	return c.Class != nil
}

type ContractValue struct {
	Type  *ContractType
	Value ContractInfo
}

func (v *ContractValue) DataType() Type   { return v.Type }
func (v *ContractValue) Kind() ResultKind { return ResultValue }

type ExternalFunctionStatus string

const (
	ExternalFunctionKnown   ExternalFunctionStatus = "known"
	ExternalFunctionInvalid ExternalFunctionStatus = "invalid"
	ExternalFunctionUnknown ExternalFunctionStatus = "unknown"
)

type FunctionExternalValue struct {
	Type     *FunctionType
	Status   ExternalFunctionStatus
	Contract ContractInfo
	Selector string
	// Name and Signature are set when Status is ExternalFunctionKnown.
	Name      string
	Signature string
}

func (v *FunctionExternalValue) DataType() Type   { return v.Type }
func (v *FunctionExternalValue) Kind() ResultKind { return ResultValue }

type InternalFunctionStatus string

const (
	InternalFunctionFunction  InternalFunctionStatus = "function"
	InternalFunctionException InternalFunctionStatus = "exception"
	InternalFunctionUnknown   InternalFunctionStatus = "unknown"
)

const (
	ExceptionZero   = "<zero>"
	ExceptionAssert = "assert(false)"
)

type FunctionInternalValue struct {
	Type                      *FunctionType
	Status                    InternalFunctionStatus
	Context                   *ContractType
	DeployedProgramCounter    int
	ConstructorProgramCounter int
	// Name is the function name, or one of the exception sentinels.
	Name                 string
	DefiningContractName string
}

func (v *FunctionInternalValue) DataType() Type   { return v.Type }
func (v *FunctionInternalValue) Kind() ResultKind { return ResultValue }

type ArrayValue struct {
	Type  *ArrayType
	Value []Result
	// Reference is set instead of Value when the array is an ancestor of
	// itself; it counts the levels up to that ancestor.
	Reference *int
}

func (v *ArrayValue) DataType() Type   { return v.Type }
func (v *ArrayValue) Kind() ResultKind { return ResultValue }

type KeyValuePair struct {
	Key   Result `json:"key"`
	Value Result `json:"value"`
}

type MappingValue struct {
	Type  *MappingType
	Value []KeyValuePair
}

func (v *MappingValue) DataType() Type   { return v.Type }
func (v *MappingValue) Kind() ResultKind { return ResultValue }

type NameValuePair struct {
	Name  string `json:"name"`
	Value Result `json:"value"`
}

type StructValue struct {
	Type      *StructType
	Value     []NameValuePair
	Reference *int
}

func (v *StructValue) DataType() Type   { return v.Type }
func (v *StructValue) Kind() ResultKind { return ResultValue }

type TupleValue struct {
	Type  *TupleType
	Value []NameValuePair
}

func (v *TupleValue) DataType() Type   { return v.Type }
func (v *TupleValue) Kind() ResultKind { return ResultValue }

type MagicValue struct {
	Type  *MagicType
	Value map[string]Result
}

func (v *MagicValue) DataType() Type   { return v.Type }
func (v *MagicValue) Kind() ResultKind { return ResultValue }

// ErrorResult stands in for a value which could not be decoded.
type ErrorResult struct {
	Type  Type
	Error DecodingError
}

func (v *ErrorResult) DataType() Type   { return v.Type }
func (v *ErrorResult) Kind() ResultKind { return ResultError }

func NewErrorResult(t Type, err DecodingError) *ErrorResult {
	return &ErrorResult{Type: t, Error: err}
}

// CleanBool returns r with every BoolOutOfRangeError replaced by a true
// boolean value. The original result is left untouched.
func CleanBool(r Result) Result {
	switch x := r.(type) {
	case *ErrorResult:
		if e, ok := x.Error.(*BoolOutOfRangeError); ok {
			if bt, ok := x.Type.(*BoolType); ok && e.RawAsBig != nil && e.RawAsBig.Sign() != 0 {
				return &BoolValue{Type: bt, Value: true}
			}
		}
		return r
	case *ArrayValue:
		if x.Reference != nil {
			return r
		}
		c := &ArrayValue{Type: x.Type, Value: make([]Result, len(x.Value))}
		for i, e := range x.Value {
			c.Value[i] = CleanBool(e)
		}
		return c
	case *MappingValue:
		c := &MappingValue{Type: x.Type, Value: make([]KeyValuePair, len(x.Value))}
		for i, kv := range x.Value {
			c.Value[i] = KeyValuePair{Key: kv.Key, Value: CleanBool(kv.Value)}
		}
		return c
	case *StructValue:
		if x.Reference != nil {
			return r
		}
		return &StructValue{Type: x.Type, Value: cleanMembers(x.Value)}
	case *TupleValue:
		return &TupleValue{Type: x.Type, Value: cleanMembers(x.Value)}
	default:
		return r
	}
}

func cleanMembers(members []NameValuePair) []NameValuePair {
	r := make([]NameValuePair, len(members))
	for i, m := range members {
		r[i] = NameValuePair{Name: m.Name, Value: CleanBool(m.Value)}
	}
	return r
}

func IsError(r Result) bool {
	return r != nil && r.Kind() == ResultError
}
