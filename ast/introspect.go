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
	"math/big"

	"github.com/icon-project/btp2/common/errors"

	"github.com/icon-project/evm-codec/format"
)

// typeNameOf returns the type name node describing n: n itself when n is a
// type name, otherwise its typeName child.
func typeNameOf(n *Node) *Node {
	switch n.NodeType {
	case NodeElementaryTypeName, NodeUserDefinedTypeName, NodeArrayTypeName,
		NodeMapping, NodeFunctionTypeName:
		return n
	default:
		return n.TypeName
	}
}

func TypeIdentifier(n *Node) string {
	if n == nil {
		return ""
	}
	if id := n.TypeDescriptions.TypeIdentifier; id != "" {
		return id
	}
	if tn := typeNameOf(n); tn != nil && tn != n {
		return tn.TypeDescriptions.TypeIdentifier
	}
	return ""
}

func TypeString(n *Node) string {
	if n == nil {
		return ""
	}
	if s := n.TypeDescriptions.TypeString; s != "" {
		return s
	}
	if tn := typeNameOf(n); tn != nil && tn != n {
		return tn.TypeDescriptions.TypeString
	}
	return ""
}

// Identify parses the type identifier of n.
func Identify(n *Node) (*Identifier, error) {
	s := TypeIdentifier(n)
	if s == "" {
		return nil, errors.Wrapf(&IdentifierError{Msg: "missing type identifier"}, "node id:%d", nodeID(n))
	}
	return ParseTypeIdentifier(s)
}

func nodeID(n *Node) int {
	if n == nil {
		return 0
	}
	return n.ID
}

func identify(n *Node) *Identifier {
	id, err := Identify(n)
	if err != nil {
		astLogger.Tracef("identify node id:%d err:%+v", nodeID(n), err)
		return nil
	}
	return id
}

// TypeClass returns the class of n or "" when it cannot be determined.
func TypeClass(n *Node) format.TypeClass {
	if id := identify(n); id != nil {
		return id.Class
	}
	return ""
}

// SpecifiedSize returns the size in bytes of sized types: integers, fixed
// point types and bytesN.
func SpecifiedSize(n *Node) (int, bool) {
	id := identify(n)
	if id == nil {
		return 0, false
	}
	switch id.Class {
	case format.ClassUint, format.ClassInt, format.ClassFixed, format.ClassUfixed:
		return id.Bits / 8, true
	case format.ClassBytes:
		if !id.Dynamic {
			return id.Length, true
		}
	}
	return 0, false
}

func DecimalPlaces(n *Node) (int, bool) {
	id := identify(n)
	if id == nil || (id.Class != format.ClassFixed && id.Class != format.ClassUfixed) {
		return 0, false
	}
	return id.Places, true
}

func isClass(n *Node, c format.TypeClass) bool {
	id := identify(n)
	return id != nil && id.Class == c
}

func IsArray(n *Node) bool   { return isClass(n, format.ClassArray) }
func IsStruct(n *Node) bool  { return isClass(n, format.ClassStruct) }
func IsMapping(n *Node) bool { return isClass(n, format.ClassMapping) }
func IsEnum(n *Node) bool    { return isClass(n, format.ClassEnum) }

func IsContract(n *Node) bool { return isClass(n, format.ClassContract) }

func IsDynamicArray(n *Node) bool {
	id := identify(n)
	return id != nil && id.Class == format.ClassArray && id.Dynamic
}

func StaticLength(n *Node) (*big.Int, bool) {
	id := identify(n)
	if id == nil || id.Class != format.ClassArray || id.Dynamic {
		return nil, false
	}
	return new(big.Int).Set(id.ArrayLength), true
}

func IsReference(n *Node) bool {
	id := identify(n)
	if id == nil {
		return false
	}
	switch id.Class {
	case format.ClassString, format.ClassArray, format.ClassStruct, format.ClassMapping:
		return true
	case format.ClassBytes:
		return id.Dynamic
	default:
		return false
	}
}

// IsDynamic reports whether n occupies a single word in storage with its
// contents relocated by hashing.
func IsDynamic(n *Node) bool {
	id := identify(n)
	if id == nil {
		return false
	}
	switch id.Class {
	case format.ClassString, format.ClassMapping:
		return true
	case format.ClassBytes, format.ClassArray:
		return id.Dynamic
	default:
		return false
	}
}

// Location returns the data location of n, preferring an explicit storage
// location on the declaration.
func Location(n *Node) format.Location {
	if n == nil {
		return format.LocationNone
	}
	switch loc := format.Location(n.StorageLocation); loc {
	case format.LocationStorage, format.LocationMemory, format.LocationCalldata:
		return loc
	}
	if id := identify(n); id != nil {
		return id.Location
	}
	return format.LocationNone
}

// ReferencedTypeID returns the id of the struct, enum or contract n refers to.
func ReferencedTypeID(n *Node) (int, bool) {
	id := identify(n)
	if id == nil {
		return 0, false
	}
	switch id.Class {
	case format.ClassStruct, format.ClassEnum, format.ClassContract:
		return id.ID, true
	default:
		return 0, false
	}
}

// BaseDefinition returns the declaration of the element type of array n.
func BaseDefinition(n *Node) *Node {
	id := identify(n)
	if id == nil || id.Class != format.ClassArray {
		return nil
	}
	if tn := typeNameOf(n); tn != nil && tn.BaseType != nil {
		return tn.BaseType
	}
	return NewSyntheticDeclaration(n.Name+"[]", id.Base, "")
}

// KeyDefinition returns the key declaration of mapping n, or a uint256
// index declaration for an array.
func KeyDefinition(n *Node) *Node {
	id := identify(n)
	if id == nil {
		return nil
	}
	switch id.Class {
	case format.ClassMapping:
		if tn := typeNameOf(n); tn != nil && tn.KeyType != nil {
			return tn.KeyType
		}
		return NewSyntheticDeclaration(n.Name+"[key]", id.Key, "")
	case format.ClassArray:
		return NewSyntheticDeclaration(n.Name+"[index]",
			&Identifier{Class: format.ClassUint, Bits: 256}, "uint256")
	default:
		return nil
	}
}

func ValueDefinition(n *Node) *Node {
	id := identify(n)
	if id == nil || id.Class != format.ClassMapping {
		return nil
	}
	if tn := typeNameOf(n); tn != nil && tn.ValueType != nil {
		return tn.ValueType
	}
	return NewSyntheticDeclaration(n.Name+"[value]", id.Value, "")
}

// NewSyntheticDeclaration builds a fresh declaration of the given type which
// is not part of any compiler output.
func NewSyntheticDeclaration(name string, id *Identifier, typeString string) *Node {
	return &Node{
		NodeType: NodeSyntheticDeclaration,
		Name:     name,
		TypeDescriptions: TypeDescriptions{
			TypeIdentifier: id.String(),
			TypeString:     typeString,
		},
		Synthetic: true,
	}
}

// GlobalDefinition returns the declaration of a builtin variable. contract
// is required for "this".
func GlobalDefinition(name string, contract *Node) (*Node, error) {
	switch name {
	case "now":
		return NewSyntheticDeclaration(name, &Identifier{Class: format.ClassUint, Bits: 256}, "uint256"), nil
	case "msg":
		return NewSyntheticDeclaration(name, &Identifier{Class: format.ClassMagic, Magic: format.MagicMessage}, "msg"), nil
	case "tx":
		return NewSyntheticDeclaration(name, &Identifier{Class: format.ClassMagic, Magic: format.MagicTransaction}, "tx"), nil
	case "block":
		return NewSyntheticDeclaration(name, &Identifier{Class: format.ClassMagic, Magic: format.MagicBlock}, "block"), nil
	case "this":
		if contract == nil {
			return nil, errors.New("contract required for this")
		}
		id := &Identifier{Class: format.ClassContract, Name: contract.Name, ID: contract.ID}
		return NewSyntheticDeclaration(name, id, "contract "+contract.Name), nil
	default:
		return nil, format.ErrorCodeUnsupported.Errorf("unknown global %s", name)
	}
}
