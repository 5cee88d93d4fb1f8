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
	"fmt"
	"math/big"
)

// DecodingError is a failure to decode one value. It is carried inside an
// ErrorResult rather than returned.
type DecodingError interface {
	error
	ErrorKind() string
}

type UintPaddingError struct {
	Raw string `json:"raw"`
}

func (e *UintPaddingError) ErrorKind() string { return "UintPaddingError" }
func (e *UintPaddingError) Error() string     { return "uint padding error raw:" + e.Raw }

type IntPaddingError struct {
	Raw string `json:"raw"`
}

func (e *IntPaddingError) ErrorKind() string { return "IntPaddingError" }
func (e *IntPaddingError) Error() string     { return "int padding error raw:" + e.Raw }

type BoolPaddingError struct {
	Raw string `json:"raw"`
}

func (e *BoolPaddingError) ErrorKind() string { return "BoolPaddingError" }
func (e *BoolPaddingError) Error() string     { return "bool padding error raw:" + e.Raw }

type BytesPaddingError struct {
	Raw string `json:"raw"`
}

func (e *BytesPaddingError) ErrorKind() string { return "BytesPaddingError" }
func (e *BytesPaddingError) Error() string     { return "bytes padding error raw:" + e.Raw }

type AddressPaddingError struct {
	Raw string `json:"raw"`
}

func (e *AddressPaddingError) ErrorKind() string { return "AddressPaddingError" }
func (e *AddressPaddingError) Error() string     { return "address padding error raw:" + e.Raw }

type ContractPaddingError struct {
	Raw string `json:"raw"`
}

func (e *ContractPaddingError) ErrorKind() string { return "ContractPaddingError" }
func (e *ContractPaddingError) Error() string     { return "contract padding error raw:" + e.Raw }

type EnumPaddingError struct {
	Type *EnumType `json:"type"`
	Raw  string    `json:"raw"`
}

func (e *EnumPaddingError) ErrorKind() string { return "EnumPaddingError" }
func (e *EnumPaddingError) Error() string     { return "enum padding error raw:" + e.Raw }

type FunctionExternalNonStackPaddingError struct {
	Raw string `json:"raw"`
}

func (e *FunctionExternalNonStackPaddingError) ErrorKind() string {
	return "FunctionExternalNonStackPaddingError"
}
func (e *FunctionExternalNonStackPaddingError) Error() string {
	return "external function padding error raw:" + e.Raw
}

type FunctionExternalStackPaddingError struct {
	RawAddress  string `json:"rawAddress"`
	RawSelector string `json:"rawSelector"`
}

func (e *FunctionExternalStackPaddingError) ErrorKind() string {
	return "FunctionExternalStackPaddingError"
}
func (e *FunctionExternalStackPaddingError) Error() string {
	return fmt.Sprintf("external function stack padding error address:%s selector:%s",
		e.RawAddress, e.RawSelector)
}

type FunctionInternalPaddingError struct {
	Raw string `json:"raw"`
}

func (e *FunctionInternalPaddingError) ErrorKind() string { return "FunctionInternalPaddingError" }
func (e *FunctionInternalPaddingError) Error() string {
	return "internal function padding error raw:" + e.Raw
}

type BoolOutOfRangeError struct {
	RawAsBig *big.Int `json:"rawAsBig"`
}

func (e *BoolOutOfRangeError) ErrorKind() string { return "BoolOutOfRangeError" }
func (e *BoolOutOfRangeError) Error() string {
	return fmt.Sprintf("invalid boolean %v", e.RawAsBig)
}

type EnumOutOfRangeError struct {
	Type     *EnumType `json:"type"`
	RawAsBig *big.Int  `json:"rawAsBig"`
}

func (e *EnumOutOfRangeError) ErrorKind() string { return "EnumOutOfRangeError" }
func (e *EnumOutOfRangeError) Error() string {
	return fmt.Sprintf("invalid %s value %v", TypeString(e.Type), e.RawAsBig)
}

type EnumNotFoundDecodingError struct {
	Type     *EnumType `json:"type"`
	RawAsBig *big.Int  `json:"rawAsBig"`
}

func (e *EnumNotFoundDecodingError) ErrorKind() string { return "EnumNotFoundDecodingError" }
func (e *EnumNotFoundDecodingError) Error() string {
	return fmt.Sprintf("unknown enum type %s value %v", TypeString(e.Type), e.RawAsBig)
}

type FixedPointNotYetSupportedError struct {
	Type Type `json:"type"`
}

func (e *FixedPointNotYetSupportedError) ErrorKind() string { return "FixedPointNotYetSupportedError" }
func (e *FixedPointNotYetSupportedError) Error() string {
	return "fixed point type is not yet supported " + TypeString(e.Type)
}

type UserDefinedTypeNotFoundError struct {
	Type Type `json:"type"`
}

func (e *UserDefinedTypeNotFoundError) ErrorKind() string { return "UserDefinedTypeNotFoundError" }
func (e *UserDefinedTypeNotFoundError) Error() string {
	return "user-defined type not found " + TypeString(e.Type)
}

type NoSuchInternalFunctionError struct {
	Context                   *ContractType `json:"context"`
	DeployedProgramCounter    int           `json:"deployedProgramCounter"`
	ConstructorProgramCounter int           `json:"constructorProgramCounter"`
}

func (e *NoSuchInternalFunctionError) ErrorKind() string { return "NoSuchInternalFunctionError" }
func (e *NoSuchInternalFunctionError) Error() string {
	return fmt.Sprintf("no internal function at pc deployed:%d constructor:%d",
		e.DeployedProgramCounter, e.ConstructorProgramCounter)
}

type DeployedFunctionInConstructorError struct {
	Context                   *ContractType `json:"context"`
	DeployedProgramCounter    int           `json:"deployedProgramCounter"`
	ConstructorProgramCounter int           `json:"constructorProgramCounter"`
}

func (e *DeployedFunctionInConstructorError) ErrorKind() string {
	return "DeployedFunctionInConstructorError"
}
func (e *DeployedFunctionInConstructorError) Error() string {
	return fmt.Sprintf("deployed-only internal function in constructor pc:%d", e.DeployedProgramCounter)
}

type MalformedInternalFunctionError struct {
	Context                   *ContractType `json:"context"`
	ConstructorProgramCounter int           `json:"constructorProgramCounter"`
}

func (e *MalformedInternalFunctionError) ErrorKind() string { return "MalformedInternalFunctionError" }
func (e *MalformedInternalFunctionError) Error() string {
	return fmt.Sprintf("malformed internal function constructor pc:%d", e.ConstructorProgramCounter)
}

type IndexedReferenceTypeError struct {
	Type Type   `json:"type"`
	Raw  string `json:"raw"`
}

func (e *IndexedReferenceTypeError) ErrorKind() string { return "IndexedReferenceTypeError" }
func (e *IndexedReferenceTypeError) Error() string {
	return "indexed reference type holds only its hash " + e.Raw
}

type OverlongArrayOrStringError struct {
	LengthAsBig *big.Int `json:"lengthAsBig"`
}

func (e *OverlongArrayOrStringError) ErrorKind() string { return "OverlongArrayOrStringError" }
func (e *OverlongArrayOrStringError) Error() string {
	return fmt.Sprintf("length %v is too long to decode", e.LengthAsBig)
}

type OverlargePointerError struct {
	PointerAsBig *big.Int `json:"pointerAsBig"`
}

func (e *OverlargePointerError) ErrorKind() string { return "OverlargePointerError" }
func (e *OverlargePointerError) Error() string {
	return fmt.Sprintf("pointer %v is too large", e.PointerAsBig)
}

type ReadErrorStack struct {
	From int `json:"from"`
	To   int `json:"to"`
}

func (e *ReadErrorStack) ErrorKind() string { return "ReadErrorStack" }
func (e *ReadErrorStack) Error() string {
	return fmt.Sprintf("fail to read stack from:%d to:%d", e.From, e.To)
}

type ReadErrorBytes struct {
	Location string `json:"location"`
	Start    int    `json:"start"`
	Length   int    `json:"length"`
}

func (e *ReadErrorBytes) ErrorKind() string { return "ReadErrorBytes" }
func (e *ReadErrorBytes) Error() string {
	return fmt.Sprintf("fail to read %s start:%d length:%d", e.Location, e.Start, e.Length)
}

type ReadErrorStorage struct {
	Slot string `json:"slot"`
	From int    `json:"from"`
	To   int    `json:"to"`
	Err  string `json:"err,omitempty"`
}

func (e *ReadErrorStorage) ErrorKind() string { return "ReadErrorStorage" }
func (e *ReadErrorStorage) Error() string {
	return fmt.Sprintf("fail to read storage slot:%s from:%d to:%d %s", e.Slot, e.From, e.To, e.Err)
}
