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

package abi

import (
	"fmt"
	"math/big"
	"strings"

	gethabi "github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/icon-project/evm-codec/format"
)

type Parameter struct {
	Name         string      `json:"name"`
	Type         string      `json:"type"`
	InternalType string      `json:"internalType,omitempty"`
	Components   []Parameter `json:"components,omitempty"`
	Indexed      bool        `json:"indexed,omitempty"`
}

var typeAliases = map[string]string{
	"uint": "uint256",
	"int":  "int256",
	"byte": "bytes1",
}

func canonicalType(t string) string {
	base, suffix := t, ""
	if i := strings.Index(t, "["); i >= 0 {
		base, suffix = t[:i], t[i:]
	}
	if alias, ok := typeAliases[base]; ok {
		base = alias
	}
	return base + suffix
}

func parameterOf(m gethabi.ArgumentMarshaling) Parameter {
	return Parameter{
		Name:         m.Name,
		Type:         canonicalType(m.Type),
		InternalType: m.InternalType,
		Components:   parametersOf(m.Components),
		Indexed:      m.Indexed,
	}
}

func parametersOf(l []gethabi.ArgumentMarshaling) []Parameter {
	if l == nil {
		return nil
	}
	r := make([]Parameter, len(l))
	for i, m := range l {
		r[i] = parameterOf(m)
	}
	return r
}

// marshaling converts components for gethabi.NewType, which needs a usable
// field name for every tuple member. Member names never reach signatures, so
// positional names stand in for them.
func marshalings(l []Parameter) []gethabi.ArgumentMarshaling {
	if l == nil {
		return nil
	}
	r := make([]gethabi.ArgumentMarshaling, len(l))
	for i, p := range l {
		r[i] = gethabi.ArgumentMarshaling{
			Name:         fmt.Sprintf("f%d", i),
			Type:         canonicalType(p.Type),
			InternalType: p.InternalType,
			Components:   marshalings(p.Components),
		}
	}
	return r
}

// gethType builds and checks the go-ethereum type of p.
func gethType(p Parameter) (gethabi.Type, format.Type, error) {
	gt, err := gethabi.NewType(canonicalType(p.Type), p.InternalType, marshalings(p.Components))
	if err != nil {
		return gethabi.Type{}, nil, format.ErrorCodeInvalidValue.Wrapf(err, "fail ParameterType, invalid type %s", p.Type)
	}
	t, err := typeOf(gt, p.InternalType, p.Components)
	if err != nil {
		return gethabi.Type{}, nil, err
	}
	return gt, t, nil
}

func ParameterTypes(params []Parameter) ([]format.NameTypePair, error) {
	r := make([]format.NameTypePair, len(params))
	for i, p := range params {
		t, err := ParameterType(p)
		if err != nil {
			return nil, err
		}
		r[i] = format.NameTypePair{Name: p.Name, Type: t}
	}
	return r, nil
}

// ParameterType converts an ABI parameter description into a type. The
// internalType, when present, is kept as the type hint.
func ParameterType(p Parameter) (format.Type, error) {
	_, t, err := gethType(p)
	return t, err
}

func elementHint(hint string) string {
	if strings.HasSuffix(hint, "]") {
		if i := strings.LastIndex(hint, "["); i >= 0 {
			return hint[:i]
		}
	}
	return ""
}

func checkBits(t gethabi.Type) error {
	if t.Size < 8 || t.Size > 256 || t.Size%8 != 0 {
		return format.ErrorCodeInvalidValue.Errorf("fail ParameterType, invalid size %s", t.String())
	}
	return nil
}

// typeOf converts a go-ethereum type. go-ethereum accepts some widths the
// compiler never emits, such as uint7 or bytes0, which are rejected here.
func typeOf(t gethabi.Type, hint string, components []Parameter) (format.Type, error) {
	switch t.T {
	case gethabi.IntTy:
		if err := checkBits(t); err != nil {
			return nil, err
		}
		return &format.IntType{Bits: t.Size, Hint: hint}, nil
	case gethabi.UintTy:
		if err := checkBits(t); err != nil {
			return nil, err
		}
		return &format.UintType{Bits: t.Size, Hint: hint}, nil
	case gethabi.BoolTy:
		return &format.BoolType{Hint: hint}, nil
	case gethabi.AddressTy:
		return &format.AddressType{Kind: format.AddressGeneral, Hint: hint}, nil
	case gethabi.StringTy:
		return &format.StringType{Hint: hint}, nil
	case gethabi.BytesTy:
		if t.String() != "bytes" {
			return nil, format.ErrorCodeInvalidValue.Errorf("fail ParameterType, invalid type %s", t.String())
		}
		return &format.BytesType{Kind: format.BytesDynamic, Hint: hint}, nil
	case gethabi.FixedBytesTy:
		return &format.BytesType{Kind: format.BytesStatic, Length: t.Size, Hint: hint}, nil
	case gethabi.FunctionTy:
		return &format.FunctionType{
			Visibility: format.VisibilityExternal,
			Kind:       format.FunctionGeneral,
			Hint:       hint,
		}, nil
	case gethabi.SliceTy, gethabi.ArrayTy:
		base, err := typeOf(*t.Elem, elementHint(hint), components)
		if err != nil {
			return nil, err
		}
		at := &format.ArrayType{BaseType: base, Kind: format.ArrayDynamic, Hint: hint}
		if t.T == gethabi.ArrayTy {
			if t.Size <= 0 {
				return nil, format.ErrorCodeInvalidValue.Errorf("fail ParameterType, invalid length %s", t.String())
			}
			at.Kind, at.Length = format.ArrayStatic, big.NewInt(int64(t.Size))
		}
		return at, nil
	case gethabi.TupleTy:
		if len(t.TupleElems) != len(components) {
			return nil, format.ErrorCodeInvalidValue.Errorf("fail ParameterType, invalid components %s", t.String())
		}
		members := make([]format.NameTypePair, len(components))
		for i, c := range components {
			mt, err := typeOf(*t.TupleElems[i], c.InternalType, c.Components)
			if err != nil {
				return nil, err
			}
			members[i] = format.NameTypePair{Name: c.Name, Type: mt}
		}
		return &format.TupleType{MemberTypes: members, Hint: hint}, nil
	default:
		return nil, format.ErrorCodeUnsupported.Errorf("fail ParameterType, unsupported type %s", t.String())
	}
}

func parameterList(params []Parameter, f func(p Parameter) string) string {
	s := make([]string, len(params))
	for i, p := range params {
		s[i] = f(p)
	}
	return strings.Join(s, ",")
}

// ParameterTypeString renders the ABI type string, keeping the tuple keyword
// as in "tuple(uint256,address)[]".
func ParameterTypeString(p Parameter) string {
	if strings.HasPrefix(p.Type, "tuple") {
		return "tuple(" + parameterList(p.Components, ParameterTypeString) + ")" + p.Type[len("tuple"):]
	}
	return canonicalType(p.Type)
}
