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

package ast

import (
	"sort"
	"strings"

	"github.com/icon-project/btp2/common/errors"

	"github.com/icon-project/evm-codec/format"
)

// Declarations indexes AST nodes by id. It is read-only once built.
type Declarations map[int]*Node

func Index(roots ...*Node) Declarations {
	d := make(Declarations)
	for _, r := range roots {
		Walk(r, func(n *Node) {
			if n.Synthetic {
				return
			}
			d[n.ID] = n
		})
	}
	return d
}

func (d Declarations) ofType(nodeType string) []*Node {
	var l []*Node
	for _, n := range d {
		if n.NodeType == nodeType {
			l = append(l, n)
		}
	}
	sort.Slice(l, func(i, j int) bool { return l[i].ID < l[j].ID })
	return l
}

func (d Declarations) Contracts() []*Node {
	return d.ofType(NodeContractDefinition)
}

func (d Declarations) Contract(name string) *Node {
	for _, c := range d.Contracts() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// StructMembers returns the member declarations of the struct with the given id.
func (d Declarations) StructMembers(id int) ([]*Node, error) {
	n, ok := d[id]
	if !ok || n.NodeType != NodeStructDefinition {
		return nil, &format.UnknownUserDefinedTypeError{ID: id}
	}
	return n.Members, nil
}

// StateVariables returns the storage variables of contract in allocation
// order: inherited contracts first, most base first.
func StateVariables(contract *Node, d Declarations) ([]*Node, error) {
	bases := contract.LinearizedBaseContracts
	if len(bases) == 0 {
		bases = []int{contract.ID}
	}
	var vars []*Node
	for i := len(bases) - 1; i >= 0; i-- {
		c, ok := d[bases[i]]
		if !ok {
			return nil, errors.Wrapf(&format.UnknownUserDefinedTypeError{ID: bases[i]},
				"base of contract %s", contract.Name)
		}
		for _, n := range c.Nodes {
			if n.IsStateVariable() {
				vars = append(vars, n)
			}
		}
	}
	return vars, nil
}

// ContractPayable reports whether the contract accepts plain ether
// transfers.
func ContractPayable(contract *Node) bool {
	for _, n := range contract.Nodes {
		if n.NodeType != NodeFunctionDefinition {
			continue
		}
		if n.Kind == "receive" || (n.Kind == "fallback" && n.StateMutability == string(format.MutabilityPayable)) {
			return true
		}
	}
	return false
}

// splitCanonicalName splits "C.S" into the defining contract and type name.
func splitCanonicalName(n *Node) (string, string) {
	cn := n.CanonicalName
	if cn == "" {
		return "", n.Name
	}
	if i := strings.LastIndex(cn, "."); i >= 0 {
		return cn[:i], cn[i+1:]
	}
	return "", cn
}

// ToType converts the declared type of n. User-defined types found in d are
// local, others are left partially specified.
func ToType(n *Node, d Declarations) (format.Type, error) {
	id, err := Identify(n)
	if err != nil {
		return nil, err
	}
	return d.identifierType(id, TypeString(n))
}

func (d Declarations) identifierTypes(ids []*Identifier) ([]format.Type, error) {
	l := make([]format.Type, len(ids))
	for i, id := range ids {
		t, err := d.identifierType(id, "")
		if err != nil {
			return nil, err
		}
		l[i] = t
	}
	return l, nil
}

func (d Declarations) identifierType(id *Identifier, hint string) (format.Type, error) {
	switch id.Class {
	case format.ClassUint:
		return &format.UintType{Bits: id.Bits, Hint: hint}, nil
	case format.ClassInt:
		return &format.IntType{Bits: id.Bits, Hint: hint}, nil
	case format.ClassBool:
		return &format.BoolType{Hint: hint}, nil
	case format.ClassBytes:
		if id.Dynamic {
			return &format.BytesType{Kind: format.BytesDynamic, Location: id.Location, Hint: hint}, nil
		}
		return &format.BytesType{Kind: format.BytesStatic, Length: id.Length, Hint: hint}, nil
	case format.ClassAddress:
		return &format.AddressType{Kind: format.AddressSpecific, Payable: id.Payable, Hint: hint}, nil
	case format.ClassString:
		return &format.StringType{Location: id.Location, Hint: hint}, nil
	case format.ClassFixed:
		return &format.FixedType{Bits: id.Bits, Places: id.Places, Hint: hint}, nil
	case format.ClassUfixed:
		return &format.UfixedType{Bits: id.Bits, Places: id.Places, Hint: hint}, nil
	case format.ClassArray:
		base, err := d.identifierType(id.Base, "")
		if err != nil {
			return nil, err
		}
		t := &format.ArrayType{Kind: format.ArrayDynamic, BaseType: base, Location: id.Location, Hint: hint}
		if !id.Dynamic {
			t.Kind = format.ArrayStatic
			t.Length = id.ArrayLength
		}
		return t, nil
	case format.ClassMapping:
		key, err := d.identifierType(id.Key, "")
		if err != nil {
			return nil, err
		}
		value, err := d.identifierType(id.Value, "")
		if err != nil {
			return nil, err
		}
		return &format.MappingType{KeyType: key, ValueType: value, Location: format.LocationStorage, Hint: hint}, nil
	case format.ClassStruct:
		t := &format.StructType{Kind: format.KindGlobal, ID: id.ID, TypeName: id.Name, Location: id.Location, Hint: hint}
		if n, ok := d[id.ID]; ok && n.NodeType == NodeStructDefinition {
			t.Kind = format.KindLocal
			t.DefiningContractName, t.TypeName = splitCanonicalName(n)
		}
		return t, nil
	case format.ClassEnum:
		t := &format.EnumType{Kind: format.KindGlobal, ID: id.ID, TypeName: id.Name, Hint: hint}
		if n, ok := d[id.ID]; ok && n.NodeType == NodeEnumDefinition {
			t.Kind = format.KindLocal
			t.DefiningContractName, t.TypeName = splitCanonicalName(n)
		}
		return t, nil
	case format.ClassContract:
		t := &format.ContractType{Kind: format.ContractForeign, ID: id.ID, TypeName: id.Name, Hint: hint}
		if n, ok := d[id.ID]; ok && n.NodeType == NodeContractDefinition {
			t.Kind = format.ContractNative
			t.ContractKind = format.ContractKind(n.ContractKind)
			t.Payable = ContractPayable(n)
		}
		return t, nil
	case format.ClassFunction:
		params, err := d.identifierTypes(id.Params)
		if err != nil {
			return nil, err
		}
		returns, err := d.identifierTypes(id.Returns)
		if err != nil {
			return nil, err
		}
		return &format.FunctionType{
			Visibility:           id.Visibility,
			Kind:                 format.FunctionSpecific,
			Mutability:           id.Mutability,
			InputParameterTypes:  params,
			OutputParameterTypes: returns,
			Hint:                 hint,
		}, nil
	case format.ClassMagic:
		return &format.MagicType{Variable: id.Magic, Hint: hint}, nil
	default:
		return nil, format.ErrorCodeUnsupported.Errorf("unsupported type class %s", id.Class)
	}
}

// BuildTypeTable collects every struct, enum and contract definition of d.
func BuildTypeTable(d Declarations) (format.TypeTable, error) {
	tt := make(format.TypeTable)
	for _, n := range d.ofType(NodeStructDefinition) {
		st := &format.StoredStructType{ID: n.ID}
		st.DefiningContractName, st.TypeName = splitCanonicalName(n)
		for _, m := range n.Members {
			t, err := ToType(m, d)
			if err != nil {
				return nil, errors.Wrapf(err, "member %s of struct %s", m.Name, st.TypeName)
			}
			st.MemberTypes = append(st.MemberTypes, format.NameTypePair{Name: m.Name, Type: t})
		}
		tt[n.ID] = st
	}
	for _, n := range d.ofType(NodeEnumDefinition) {
		et := &format.StoredEnumType{ID: n.ID}
		et.DefiningContractName, et.TypeName = splitCanonicalName(n)
		for _, m := range n.Members {
			et.Options = append(et.Options, m.Name)
		}
		tt[n.ID] = et
	}
	for _, n := range d.Contracts() {
		tt[n.ID] = &format.StoredContractType{
			ID:           n.ID,
			TypeName:     n.Name,
			ContractKind: format.ContractKind(n.ContractKind),
			Payable:      ContractPayable(n),
		}
	}
	astLogger.Debugf("BuildTypeTable declarations:%d types:%d", len(d), len(tt))
	return tt, nil
}
