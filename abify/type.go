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

// Package abify reduces types and values to what the ABI can represent.
// Mappings, magic variables, internal functions and circular references
// have no ABI representation and become absent, which is a nil result with
// a nil error.
package abify

import (
	"github.com/icon-project/evm-codec/format"
)

func Type(t format.Type, table format.TypeTable) (format.Type, error) {
	switch x := t.(type) {
	case *format.UintType:
		return &format.UintType{Bits: x.Bits, Hint: x.Hint}, nil
	case *format.IntType:
		return &format.IntType{Bits: x.Bits, Hint: x.Hint}, nil
	case *format.BoolType:
		return &format.BoolType{Hint: x.Hint}, nil
	case *format.BytesType:
		return &format.BytesType{Kind: x.Kind, Length: x.Length, Hint: x.Hint}, nil
	case *format.StringType:
		return &format.StringType{Hint: x.Hint}, nil
	case *format.FixedType:
		return &format.FixedType{Bits: x.Bits, Places: x.Places, Hint: x.Hint}, nil
	case *format.UfixedType:
		return &format.UfixedType{Bits: x.Bits, Places: x.Places, Hint: x.Hint}, nil
	case *format.AddressType:
		return &format.AddressType{Kind: format.AddressGeneral, Hint: x.Hint}, nil
	case *format.ContractType:
		return &format.AddressType{Kind: format.AddressGeneral, Hint: hintOf(t)}, nil
	case *format.FunctionType:
		if x.Visibility != format.VisibilityExternal {
			return nil, nil
		}
		return &format.FunctionType{
			Visibility: format.VisibilityExternal,
			Kind:       format.FunctionGeneral,
			Hint:       x.Hint,
		}, nil
	case *format.EnumType:
		stored, err := table.FullEnum(x)
		if err != nil {
			return nil, err
		}
		return &format.UintType{Bits: stored.EnumBits(), Hint: hintOf(stored.EnumType())}, nil
	case *format.StructType:
		stored, err := table.FullStruct(x)
		if err != nil {
			return nil, err
		}
		members, err := memberTypes(stored.MemberTypes, table)
		if err != nil {
			return nil, err
		}
		return &format.TupleType{MemberTypes: members, Hint: hintOf(stored.StructType(format.LocationNone))}, nil
	case *format.TupleType:
		members, err := memberTypes(x.MemberTypes, table)
		if err != nil {
			return nil, err
		}
		return &format.TupleType{MemberTypes: members, Hint: x.Hint}, nil
	case *format.ArrayType:
		base, err := Type(x.BaseType, table)
		if err != nil || base == nil {
			return nil, err
		}
		return &format.ArrayType{Kind: x.Kind, Length: x.Length, BaseType: base, Hint: x.Hint}, nil
	case *format.MappingType, *format.MagicType:
		return nil, nil
	default:
		return nil, format.ErrorCodeUnsupported.Errorf("fail abify.Type, unsupported %T", t)
	}
}

// hintOf keeps the user-defined type name when the type is replaced.
func hintOf(t format.Type) string {
	if h := t.TypeHint(); h != "" {
		return h
	}
	return format.TypeStringWithoutLocation(t)
}

// memberTypes drops the members without ABI representation.
func memberTypes(members []format.NameTypePair, table format.TypeTable) ([]format.NameTypePair, error) {
	r := make([]format.NameTypePair, 0, len(members))
	for _, m := range members {
		t, err := Type(m.Type, table)
		if err != nil {
			return nil, err
		}
		if t == nil {
			continue
		}
		r = append(r, format.NameTypePair{Name: m.Name, Type: t})
	}
	return r, nil
}
