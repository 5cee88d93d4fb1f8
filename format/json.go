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
	"encoding/json"
	"math/big"
	"strconv"

	"github.com/icon-project/btp2/common/errors"
)

type typeJSON struct {
	TypeClass            TypeClass     `json:"typeClass"`
	Kind                 string        `json:"kind,omitempty"`
	Bits                 int           `json:"bits,omitempty"`
	Places               int           `json:"places,omitempty"`
	Length               string        `json:"length,omitempty"`
	Payable              bool          `json:"payable,omitempty"`
	Location             Location      `json:"location,omitempty"`
	BaseType             *typeJSON     `json:"baseType,omitempty"`
	KeyType              *typeJSON     `json:"keyType,omitempty"`
	ValueType            *typeJSON     `json:"valueType,omitempty"`
	ID                   *int          `json:"id,omitempty"`
	TypeName             string        `json:"typeName,omitempty"`
	DefiningContractName string        `json:"definingContractName,omitempty"`
	ContractKind         ContractKind  `json:"contractKind,omitempty"`
	Visibility           Visibility    `json:"visibility,omitempty"`
	Mutability           Mutability    `json:"mutability,omitempty"`
	InputParameterTypes  []*typeJSON   `json:"inputParameterTypes,omitempty"`
	OutputParameterTypes []*typeJSON   `json:"outputParameterTypes,omitempty"`
	MemberTypes          []memberJSON  `json:"memberTypes,omitempty"`
	Variable             MagicVariable `json:"variable,omitempty"`
	TypeHint             string        `json:"typeHint,omitempty"`
}

type memberJSON struct {
	Name string    `json:"name"`
	Type *typeJSON `json:"type"`
}

func intPtr(v int) *int {
	return &v
}

func toWire(t Type) *typeJSON {
	if t == nil {
		return nil
	}
	w := &typeJSON{TypeClass: t.TypeClass(), TypeHint: t.TypeHint()}
	switch x := t.(type) {
	case *UintType:
		w.Bits = x.Bits
	case *IntType:
		w.Bits = x.Bits
	case *BoolType:
	case *BytesType:
		w.Kind = string(x.Kind)
		if x.Kind == BytesStatic {
			w.Length = strconv.Itoa(x.Length)
		}
		w.Location = x.Location
	case *AddressType:
		w.Kind = string(x.Kind)
		w.Payable = x.Payable
	case *StringType:
		w.Location = x.Location
	case *FixedType:
		w.Bits, w.Places = x.Bits, x.Places
	case *UfixedType:
		w.Bits, w.Places = x.Bits, x.Places
	case *ArrayType:
		w.Kind = string(x.Kind)
		if x.Kind == ArrayStatic && x.Length != nil {
			w.Length = x.Length.String()
		}
		w.BaseType = toWire(x.BaseType)
		w.Location = x.Location
	case *MappingType:
		w.KeyType = toWire(x.KeyType)
		w.ValueType = toWire(x.ValueType)
		w.Location = x.Location
	case *StructType:
		w.Kind = string(x.Kind)
		w.ID = intPtr(x.ID)
		w.TypeName = x.TypeName
		w.DefiningContractName = x.DefiningContractName
		w.Location = x.Location
	case *EnumType:
		w.Kind = string(x.Kind)
		w.ID = intPtr(x.ID)
		w.TypeName = x.TypeName
		w.DefiningContractName = x.DefiningContractName
	case *ContractType:
		w.Kind = string(x.Kind)
		if x.Kind == ContractNative {
			w.ID = intPtr(x.ID)
		}
		w.TypeName = x.TypeName
		w.ContractKind = x.ContractKind
		w.Payable = x.Payable
	case *FunctionType:
		w.Kind = string(x.Kind)
		w.Visibility = x.Visibility
		w.Mutability = x.Mutability
		for _, p := range x.InputParameterTypes {
			w.InputParameterTypes = append(w.InputParameterTypes, toWire(p))
		}
		for _, p := range x.OutputParameterTypes {
			w.OutputParameterTypes = append(w.OutputParameterTypes, toWire(p))
		}
	case *TupleType:
		w.MemberTypes = membersToWire(x.MemberTypes)
	case *MagicType:
		w.Variable = x.Variable
		w.MemberTypes = membersToWire(x.MemberTypes)
	}
	return w
}

func membersToWire(members []NameTypePair) []memberJSON {
	if len(members) == 0 {
		return nil
	}
	r := make([]memberJSON, len(members))
	for i, m := range members {
		r[i] = memberJSON{Name: m.Name, Type: toWire(m.Type)}
	}
	return r
}

func fromWire(w *typeJSON) (Type, error) {
	if w == nil {
		return nil, errors.New("missing type")
	}
	id := 0
	if w.ID != nil {
		id = *w.ID
	}
	switch w.TypeClass {
	case ClassUint:
		return &UintType{Bits: w.Bits, Hint: w.TypeHint}, nil
	case ClassInt:
		return &IntType{Bits: w.Bits, Hint: w.TypeHint}, nil
	case ClassBool:
		return &BoolType{Hint: w.TypeHint}, nil
	case ClassBytes:
		t := &BytesType{Kind: BytesKind(w.Kind), Location: w.Location, Hint: w.TypeHint}
		if t.Kind == BytesStatic {
			l, err := strconv.Atoi(w.Length)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid bytes length %s", w.Length)
			}
			t.Length = l
		}
		return t, nil
	case ClassAddress:
		return &AddressType{Kind: AddressKind(w.Kind), Payable: w.Payable, Hint: w.TypeHint}, nil
	case ClassString:
		return &StringType{Location: w.Location, Hint: w.TypeHint}, nil
	case ClassFixed:
		return &FixedType{Bits: w.Bits, Places: w.Places, Hint: w.TypeHint}, nil
	case ClassUfixed:
		return &UfixedType{Bits: w.Bits, Places: w.Places, Hint: w.TypeHint}, nil
	case ClassArray:
		base, err := fromWire(w.BaseType)
		if err != nil {
			return nil, err
		}
		t := &ArrayType{Kind: ArrayKind(w.Kind), BaseType: base, Location: w.Location, Hint: w.TypeHint}
		if t.Kind == ArrayStatic {
			l, ok := new(big.Int).SetString(w.Length, 10)
			if !ok {
				return nil, errors.Errorf("invalid array length %s", w.Length)
			}
			t.Length = l
		}
		return t, nil
	case ClassMapping:
		k, err := fromWire(w.KeyType)
		if err != nil {
			return nil, err
		}
		v, err := fromWire(w.ValueType)
		if err != nil {
			return nil, err
		}
		return &MappingType{KeyType: k, ValueType: v, Location: w.Location, Hint: w.TypeHint}, nil
	case ClassStruct:
		return &StructType{
			Kind:                 UserDefinedKind(w.Kind),
			ID:                   id,
			TypeName:             w.TypeName,
			DefiningContractName: w.DefiningContractName,
			Location:             w.Location,
			Hint:                 w.TypeHint,
		}, nil
	case ClassEnum:
		return &EnumType{
			Kind:                 UserDefinedKind(w.Kind),
			ID:                   id,
			TypeName:             w.TypeName,
			DefiningContractName: w.DefiningContractName,
			Hint:                 w.TypeHint,
		}, nil
	case ClassContract:
		return &ContractType{
			Kind:         ContractTypeKind(w.Kind),
			ID:           id,
			TypeName:     w.TypeName,
			ContractKind: w.ContractKind,
			Payable:      w.Payable,
			Hint:         w.TypeHint,
		}, nil
	case ClassFunction:
		t := &FunctionType{
			Visibility: w.Visibility,
			Kind:       FunctionKind(w.Kind),
			Mutability: w.Mutability,
			Hint:       w.TypeHint,
		}
		for _, p := range w.InputParameterTypes {
			pt, err := fromWire(p)
			if err != nil {
				return nil, err
			}
			t.InputParameterTypes = append(t.InputParameterTypes, pt)
		}
		for _, p := range w.OutputParameterTypes {
			pt, err := fromWire(p)
			if err != nil {
				return nil, err
			}
			t.OutputParameterTypes = append(t.OutputParameterTypes, pt)
		}
		return t, nil
	case ClassTuple:
		members, err := membersFromWire(w.MemberTypes)
		if err != nil {
			return nil, err
		}
		return &TupleType{MemberTypes: members, Hint: w.TypeHint}, nil
	case ClassMagic:
		members, err := membersFromWire(w.MemberTypes)
		if err != nil {
			return nil, err
		}
		return &MagicType{Variable: w.Variable, MemberTypes: members, Hint: w.TypeHint}, nil
	default:
		return nil, errors.Errorf("unknown typeClass %q", w.TypeClass)
	}
}

func membersFromWire(members []memberJSON) ([]NameTypePair, error) {
	if len(members) == 0 {
		return nil, nil
	}
	r := make([]NameTypePair, len(members))
	for i, m := range members {
		t, err := fromWire(m.Type)
		if err != nil {
			return nil, err
		}
		r[i] = NameTypePair{Name: m.Name, Type: t}
	}
	return r, nil
}

// UnmarshalType restores a Type from its JSON form.
func UnmarshalType(b []byte) (Type, error) {
	w := &typeJSON{}
	if err := json.Unmarshal(b, w); err != nil {
		return nil, err
	}
	return fromWire(w)
}

func (p *NameTypePair) UnmarshalJSON(b []byte) error {
	m := &memberJSON{}
	if err := json.Unmarshal(b, m); err != nil {
		return err
	}
	t, err := fromWire(m.Type)
	if err != nil {
		return err
	}
	p.Name, p.Type = m.Name, t
	return nil
}

func marshalType(t Type) ([]byte, error) {
	return json.Marshal(toWire(t))
}

func (t *UintType) MarshalJSON() ([]byte, error)     { return marshalType(t) }
func (t *IntType) MarshalJSON() ([]byte, error)      { return marshalType(t) }
func (t *BoolType) MarshalJSON() ([]byte, error)     { return marshalType(t) }
func (t *BytesType) MarshalJSON() ([]byte, error)    { return marshalType(t) }
func (t *AddressType) MarshalJSON() ([]byte, error)  { return marshalType(t) }
func (t *StringType) MarshalJSON() ([]byte, error)   { return marshalType(t) }
func (t *FixedType) MarshalJSON() ([]byte, error)    { return marshalType(t) }
func (t *UfixedType) MarshalJSON() ([]byte, error)   { return marshalType(t) }
func (t *ArrayType) MarshalJSON() ([]byte, error)    { return marshalType(t) }
func (t *MappingType) MarshalJSON() ([]byte, error)  { return marshalType(t) }
func (t *StructType) MarshalJSON() ([]byte, error)   { return marshalType(t) }
func (t *EnumType) MarshalJSON() ([]byte, error)     { return marshalType(t) }
func (t *ContractType) MarshalJSON() ([]byte, error) { return marshalType(t) }
func (t *FunctionType) MarshalJSON() ([]byte, error) { return marshalType(t) }
func (t *TupleType) MarshalJSON() ([]byte, error)    { return marshalType(t) }
func (t *MagicType) MarshalJSON() ([]byte, error)    { return marshalType(t) }
