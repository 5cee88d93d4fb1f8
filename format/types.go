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

type TypeClass string

const (
	ClassUint     TypeClass = "uint"
	ClassInt      TypeClass = "int"
	ClassBool     TypeClass = "bool"
	ClassBytes    TypeClass = "bytes"
	ClassAddress  TypeClass = "address"
	ClassString   TypeClass = "string"
	ClassFixed    TypeClass = "fixed"
	ClassUfixed   TypeClass = "ufixed"
	ClassArray    TypeClass = "array"
	ClassMapping  TypeClass = "mapping"
	ClassStruct   TypeClass = "struct"
	ClassEnum     TypeClass = "enum"
	ClassContract TypeClass = "contract"
	ClassFunction TypeClass = "function"
	ClassTuple    TypeClass = "tuple"
	ClassMagic    TypeClass = "magic"
)

type Location string

const (
	LocationNone     Location = ""
	LocationStorage  Location = "storage"
	LocationMemory   Location = "memory"
	LocationCalldata Location = "calldata"
)

type BytesKind string

const (
	BytesStatic  BytesKind = "static"
	BytesDynamic BytesKind = "dynamic"
)

type AddressKind string

const (
	AddressGeneral  AddressKind = "general"
	AddressSpecific AddressKind = "specific"
)

type ArrayKind string

const (
	ArrayStatic  ArrayKind = "static"
	ArrayDynamic ArrayKind = "dynamic"
)

// UserDefinedKind tells whether a struct or enum type was resolved against
// known declarations (local) or is only partially specified (global).
type UserDefinedKind string

const (
	KindLocal  UserDefinedKind = "local"
	KindGlobal UserDefinedKind = "global"
)

type ContractTypeKind string

const (
	ContractNative  ContractTypeKind = "native"
	ContractForeign ContractTypeKind = "foreign"
)

type ContractKind string

const (
	ContractKindContract  ContractKind = "contract"
	ContractKindLibrary   ContractKind = "library"
	ContractKindInterface ContractKind = "interface"
)

type Visibility string

const (
	VisibilityInternal Visibility = "internal"
	VisibilityExternal Visibility = "external"
)

type FunctionKind string

const (
	FunctionGeneral  FunctionKind = "general"
	FunctionSpecific FunctionKind = "specific"
)

type Mutability string

const (
	MutabilityPure       Mutability = "pure"
	MutabilityView       Mutability = "view"
	MutabilityNonPayable Mutability = "nonpayable"
	MutabilityPayable    Mutability = "payable"
)

type MagicVariable string

const (
	MagicMessage     MagicVariable = "message"
	MagicTransaction MagicVariable = "transaction"
	MagicBlock       MagicVariable = "block"
)

// Type is the closed set of data types. The class of a type is fixed by its
// concrete Go type.
type Type interface {
	TypeClass() TypeClass
	TypeHint() string
}

// ReferenceType is implemented by types which may carry a data location.
type ReferenceType interface {
	Type
	DataLocation() Location
}

type NameTypePair struct {
	Name string `json:"name"`
	Type Type   `json:"type"`
}

type UintType struct {
	Bits int
	Hint string
}

func (t *UintType) TypeClass() TypeClass { return ClassUint }
func (t *UintType) TypeHint() string     { return t.Hint }

type IntType struct {
	Bits int
	Hint string
}

func (t *IntType) TypeClass() TypeClass { return ClassInt }
func (t *IntType) TypeHint() string     { return t.Hint }

type BoolType struct {
	Hint string
}

func (t *BoolType) TypeClass() TypeClass { return ClassBool }
func (t *BoolType) TypeHint() string     { return t.Hint }

type BytesType struct {
	Kind     BytesKind
	Length   int
	Location Location
	Hint     string
}

func (t *BytesType) TypeClass() TypeClass   { return ClassBytes }
func (t *BytesType) TypeHint() string       { return t.Hint }
func (t *BytesType) DataLocation() Location { return t.Location }

type AddressType struct {
	Kind    AddressKind
	Payable bool
	Hint    string
}

func (t *AddressType) TypeClass() TypeClass { return ClassAddress }
func (t *AddressType) TypeHint() string     { return t.Hint }

type StringType struct {
	Location Location
	Hint     string
}

func (t *StringType) TypeClass() TypeClass   { return ClassString }
func (t *StringType) TypeHint() string       { return t.Hint }
func (t *StringType) DataLocation() Location { return t.Location }

type FixedType struct {
	Bits   int
	Places int
	Hint   string
}

func (t *FixedType) TypeClass() TypeClass { return ClassFixed }
func (t *FixedType) TypeHint() string     { return t.Hint }

type UfixedType struct {
	Bits   int
	Places int
	Hint   string
}

func (t *UfixedType) TypeClass() TypeClass { return ClassUfixed }
func (t *UfixedType) TypeHint() string     { return t.Hint }

type ArrayType struct {
	Kind     ArrayKind
	Length   *big.Int
	BaseType Type
	Location Location
	Hint     string
}

func (t *ArrayType) TypeClass() TypeClass   { return ClassArray }
func (t *ArrayType) TypeHint() string       { return t.Hint }
func (t *ArrayType) DataLocation() Location { return t.Location }

type MappingType struct {
	KeyType   Type
	ValueType Type
	Location  Location
	Hint      string
}

func (t *MappingType) TypeClass() TypeClass   { return ClassMapping }
func (t *MappingType) TypeHint() string       { return t.Hint }
func (t *MappingType) DataLocation() Location { return t.Location }

type StructType struct {
	Kind                 UserDefinedKind
	ID                   int
	TypeName             string
	DefiningContractName string
	Location             Location
	Hint                 string
}

func (t *StructType) TypeClass() TypeClass   { return ClassStruct }
func (t *StructType) TypeHint() string       { return t.Hint }
func (t *StructType) DataLocation() Location { return t.Location }

type EnumType struct {
	Kind                 UserDefinedKind
	ID                   int
	TypeName             string
	DefiningContractName string
	Hint                 string
}

func (t *EnumType) TypeClass() TypeClass { return ClassEnum }
func (t *EnumType) TypeHint() string     { return t.Hint }

type ContractType struct {
	Kind         ContractTypeKind
	ID           int
	TypeName     string
	ContractKind ContractKind
	Payable      bool
	Hint         string
}

func (t *ContractType) TypeClass() TypeClass { return ClassContract }
func (t *ContractType) TypeHint() string     { return t.Hint }

// FunctionType covers internal and external function types. General external
// function types carry no parameter information.
type FunctionType struct {
	Visibility           Visibility
	Kind                 FunctionKind
	Mutability           Mutability
	InputParameterTypes  []Type
	OutputParameterTypes []Type
	Hint                 string
}

func (t *FunctionType) TypeClass() TypeClass { return ClassFunction }
func (t *FunctionType) TypeHint() string     { return t.Hint }

type TupleType struct {
	MemberTypes []NameTypePair
	Hint        string
}

func (t *TupleType) TypeClass() TypeClass { return ClassTuple }
func (t *TupleType) TypeHint() string     { return t.Hint }

type MagicType struct {
	Variable    MagicVariable
	MemberTypes []NameTypePair
	Hint        string
}

func (t *MagicType) TypeClass() TypeClass { return ClassMagic }
func (t *MagicType) TypeHint() string     { return t.Hint }

func IsReferenceType(t Type) bool {
	switch x := t.(type) {
	case *StringType, *ArrayType, *MappingType, *StructType:
		return true
	case *BytesType:
		return x.Kind == BytesDynamic
	default:
		return false
	}
}

// IsElementary reports whether t may serve as a mapping key.
func IsElementary(t Type) bool {
	switch t.(type) {
	case *UintType, *IntType, *BoolType, *AddressType, *StringType, *BytesType,
		*FixedType, *UfixedType, *EnumType, *ContractType:
		return true
	default:
		return false
	}
}

// SpecifyLocation returns a copy of t refined to the given location.
// Mappings only keep a storage location; non-reference types are returned as is.
func SpecifyLocation(t Type, loc Location) Type {
	switch x := t.(type) {
	case *BytesType:
		if x.Kind != BytesDynamic {
			return t
		}
		c := *x
		c.Location = loc
		return &c
	case *StringType:
		c := *x
		c.Location = loc
		return &c
	case *ArrayType:
		c := *x
		c.Location = loc
		c.BaseType = SpecifyLocation(x.BaseType, loc)
		return &c
	case *MappingType:
		nl := LocationNone
		if loc == LocationStorage {
			nl = LocationStorage
		}
		c := *x
		c.Location = nl
		c.ValueType = SpecifyLocation(x.ValueType, nl)
		return &c
	case *StructType:
		c := *x
		c.Location = loc
		return &c
	default:
		return t
	}
}

func Equal(a, b Type) bool {
	return equal(a, b, false)
}

func EqualIgnoringLocation(a, b Type) bool {
	return equal(a, b, true)
}

func equal(a, b Type, ignoreLocation bool) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.TypeClass() != b.TypeClass() {
		return false
	}
	sameLocation := func(x, y Location) bool {
		return ignoreLocation || x == y
	}
	switch x := a.(type) {
	case *UintType:
		return x.Bits == b.(*UintType).Bits
	case *IntType:
		return x.Bits == b.(*IntType).Bits
	case *BoolType:
		return true
	case *BytesType:
		y := b.(*BytesType)
		if x.Kind != y.Kind {
			return false
		}
		if x.Kind == BytesStatic {
			return x.Length == y.Length
		}
		return sameLocation(x.Location, y.Location)
	case *AddressType:
		y := b.(*AddressType)
		return x.Kind == y.Kind && (x.Kind == AddressGeneral || x.Payable == y.Payable)
	case *StringType:
		return sameLocation(x.Location, b.(*StringType).Location)
	case *FixedType:
		y := b.(*FixedType)
		return x.Bits == y.Bits && x.Places == y.Places
	case *UfixedType:
		y := b.(*UfixedType)
		return x.Bits == y.Bits && x.Places == y.Places
	case *ArrayType:
		y := b.(*ArrayType)
		if x.Kind != y.Kind || !sameLocation(x.Location, y.Location) {
			return false
		}
		if x.Kind == ArrayStatic && (x.Length == nil || y.Length == nil || x.Length.Cmp(y.Length) != 0) {
			return false
		}
		return equal(x.BaseType, y.BaseType, ignoreLocation)
	case *MappingType:
		y := b.(*MappingType)
		return equal(x.KeyType, y.KeyType, ignoreLocation) &&
			equal(x.ValueType, y.ValueType, ignoreLocation)
	case *StructType:
		y := b.(*StructType)
		return x.ID == y.ID && sameLocation(x.Location, y.Location)
	case *EnumType:
		return x.ID == b.(*EnumType).ID
	case *ContractType:
		y := b.(*ContractType)
		if x.Kind == ContractNative && y.Kind == ContractNative {
			return x.ID == y.ID
		}
		return x.Kind == y.Kind && x.TypeName == y.TypeName
	case *FunctionType:
		y := b.(*FunctionType)
		if x.Visibility != y.Visibility || x.Kind != y.Kind {
			return false
		}
		if x.Kind == FunctionGeneral && x.Visibility == VisibilityExternal {
			return true
		}
		return x.Mutability == y.Mutability &&
			equalList(x.InputParameterTypes, y.InputParameterTypes, ignoreLocation) &&
			equalList(x.OutputParameterTypes, y.OutputParameterTypes, ignoreLocation)
	case *TupleType:
		return equalMembers(x.MemberTypes, b.(*TupleType).MemberTypes, ignoreLocation)
	case *MagicType:
		return x.Variable == b.(*MagicType).Variable
	default:
		return false
	}
}

func equalList(a, b []Type, ignoreLocation bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !equal(a[i], b[i], ignoreLocation) {
			return false
		}
	}
	return true
}

func equalMembers(a, b []NameTypePair, ignoreLocation bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || !equal(a[i].Type, b[i].Type, ignoreLocation) {
			return false
		}
	}
	return true
}
