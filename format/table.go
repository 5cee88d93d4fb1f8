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

// StoredType is the complete description of a user-defined type kept in a
// TypeTable.
type StoredType interface {
	TypeClass() TypeClass
	StoredID() int
}

type StoredStructType struct {
	ID                   int            `json:"id"`
	TypeName             string         `json:"typeName"`
	DefiningContractName string         `json:"definingContractName,omitempty"`
	MemberTypes          []NameTypePair `json:"memberTypes"`
}

func (t *StoredStructType) TypeClass() TypeClass { return ClassStruct }
func (t *StoredStructType) StoredID() int        { return t.ID }

type StoredEnumType struct {
	ID                   int      `json:"id"`
	TypeName             string   `json:"typeName"`
	DefiningContractName string   `json:"definingContractName,omitempty"`
	Options              []string `json:"options"`
}

func (t *StoredEnumType) TypeClass() TypeClass { return ClassEnum }
func (t *StoredEnumType) StoredID() int        { return t.ID }

// EnumBits returns the width of the smallest whole-byte unsigned integer
// able to hold every option index.
func (t *StoredEnumType) EnumBits() int {
	return EnumBytes(len(t.Options)) * 8
}

func EnumBytes(optionCount int) int {
	bits := 0
	for n := optionCount - 1; n > 0; n >>= 1 {
		bits++
	}
	b := (bits + 7) / 8
	if b == 0 {
		b = 1
	}
	return b
}

type StoredContractType struct {
	ID           int          `json:"id"`
	TypeName     string       `json:"typeName"`
	ContractKind ContractKind `json:"contractKind"`
	Payable      bool         `json:"payable"`
}

func (t *StoredContractType) TypeClass() TypeClass { return ClassContract }
func (t *StoredContractType) StoredID() int        { return t.ID }

// TypeTable maps user-defined type ids to their stored definitions. It is
// built once per compilation and read-only afterwards.
type TypeTable map[int]StoredType

func (tt TypeTable) Struct(id int) (*StoredStructType, bool) {
	s, ok := tt[id].(*StoredStructType)
	return s, ok
}

func (tt TypeTable) Enum(id int) (*StoredEnumType, bool) {
	s, ok := tt[id].(*StoredEnumType)
	return s, ok
}

func (tt TypeTable) Contract(id int) (*StoredContractType, bool) {
	s, ok := tt[id].(*StoredContractType)
	return s, ok
}

func (tt TypeTable) FullStruct(t *StructType) (*StoredStructType, error) {
	if s, ok := tt.Struct(t.ID); ok {
		return s, nil
	}
	return nil, NewUnknownUserDefinedTypeError(t.ID, t)
}

func (tt TypeTable) FullEnum(t *EnumType) (*StoredEnumType, error) {
	if s, ok := tt.Enum(t.ID); ok {
		return s, nil
	}
	return nil, NewUnknownUserDefinedTypeError(t.ID, t)
}

// StructType returns the local type referring to a stored struct.
func (t *StoredStructType) StructType(loc Location) *StructType {
	return &StructType{
		Kind:                 KindLocal,
		ID:                   t.ID,
		TypeName:             t.TypeName,
		DefiningContractName: t.DefiningContractName,
		Location:             loc,
	}
}

func (t *StoredEnumType) EnumType() *EnumType {
	return &EnumType{
		Kind:                 KindLocal,
		ID:                   t.ID,
		TypeName:             t.TypeName,
		DefiningContractName: t.DefiningContractName,
	}
}

func (t *StoredContractType) ContractType() *ContractType {
	return &ContractType{
		Kind:         ContractNative,
		ID:           t.ID,
		TypeName:     t.TypeName,
		ContractKind: t.ContractKind,
		Payable:      t.Payable,
	}
}
