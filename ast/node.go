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
	"bytes"
	"encoding/json"

	"github.com/icon-project/btp2/common/log"
)

const (
	NodeSourceUnit           = "SourceUnit"
	NodeContractDefinition   = "ContractDefinition"
	NodeStructDefinition     = "StructDefinition"
	NodeEnumDefinition       = "EnumDefinition"
	NodeEnumValue            = "EnumValue"
	NodeVariableDeclaration  = "VariableDeclaration"
	NodeFunctionDefinition   = "FunctionDefinition"
	NodeModifierDefinition   = "ModifierDefinition"
	NodeEventDefinition      = "EventDefinition"
	NodeErrorDefinition      = "ErrorDefinition"
	NodeParameterList        = "ParameterList"
	NodeElementaryTypeName   = "ElementaryTypeName"
	NodeUserDefinedTypeName  = "UserDefinedTypeName"
	NodeArrayTypeName        = "ArrayTypeName"
	NodeMapping              = "Mapping"
	NodeFunctionTypeName     = "FunctionTypeName"
	NodeSyntheticDeclaration = "SyntheticDeclaration"
)

var (
	astLogger = log.New()
)

func init() {
	astLogger.SetLevel(log.DebugLevel)
}

type TypeDescriptions struct {
	TypeIdentifier string `json:"typeIdentifier"`
	TypeString     string `json:"typeString"`
}

// Node is the subset of the compiler's JSON AST used for decoding. A
// ParameterList keeps its entries in ParameterList, while function-like
// nodes refer to their ParameterList through Parameters.
type Node struct {
	ID       int    `json:"id"`
	NodeType string `json:"nodeType"`
	Name     string `json:"name,omitempty"`
	Src      string `json:"src,omitempty"`

	TypeDescriptions TypeDescriptions `json:"typeDescriptions"`
	TypeName         *Node            `json:"typeName,omitempty"`
	KeyType          *Node            `json:"keyType,omitempty"`
	ValueType        *Node            `json:"valueType,omitempty"`
	BaseType         *Node            `json:"baseType,omitempty"`

	StateVariable   bool   `json:"stateVariable,omitempty"`
	Constant        bool   `json:"constant,omitempty"`
	Mutability      string `json:"mutability,omitempty"`
	StorageLocation string `json:"storageLocation,omitempty"`
	Visibility      string `json:"visibility,omitempty"`
	StateMutability string `json:"stateMutability,omitempty"`
	Indexed         bool   `json:"indexed,omitempty"`

	Members []*Node `json:"members,omitempty"`
	Nodes   []*Node `json:"nodes,omitempty"`

	ContractKind            string `json:"contractKind,omitempty"`
	LinearizedBaseContracts []int  `json:"linearizedBaseContracts,omitempty"`
	CanonicalName           string `json:"canonicalName,omitempty"`
	Scope                   int    `json:"scope,omitempty"`
	ReferencedDeclaration   int    `json:"referencedDeclaration,omitempty"`

	Kind                 string  `json:"kind,omitempty"`
	FunctionSelector     string  `json:"functionSelector,omitempty"`
	Parameters           *Node   `json:"-"`
	ParameterList        []*Node `json:"-"`
	ReturnParameters     *Node   `json:"returnParameters,omitempty"`
	ParameterTypes       *Node   `json:"parameterTypes,omitempty"`
	ReturnParameterTypes *Node   `json:"returnParameterTypes,omitempty"`

	// Synthetic marks declarations built here rather than parsed from
	// compiler output.
	Synthetic bool `json:"-"`
}

func (n *Node) UnmarshalJSON(b []byte) error {
	type tNode Node
	aux := &struct {
		*tNode
		Parameters json.RawMessage `json:"parameters,omitempty"`
	}{tNode: (*tNode)(n)}
	if err := json.Unmarshal(b, aux); err != nil {
		return err
	}
	raw := bytes.TrimSpace(aux.Parameters)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
	case raw[0] == '[':
		if err := json.Unmarshal(raw, &n.ParameterList); err != nil {
			return err
		}
	default:
		n.Parameters = &Node{}
		if err := json.Unmarshal(raw, n.Parameters); err != nil {
			return err
		}
	}
	return nil
}

func (n *Node) MarshalJSON() ([]byte, error) {
	type tNode Node
	aux := &struct {
		*tNode
		Parameters interface{} `json:"parameters,omitempty"`
	}{tNode: (*tNode)(n)}
	if n.Parameters != nil {
		aux.Parameters = n.Parameters
	} else if n.ParameterList != nil {
		aux.Parameters = n.ParameterList
	}
	return json.Marshal(aux)
}

func ParseNode(b []byte) (*Node, error) {
	n := &Node{}
	if err := json.Unmarshal(b, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Walk visits n and all of its descendants in pre-order.
func Walk(n *Node, f func(n *Node)) {
	if n == nil {
		return
	}
	f(n)
	for _, c := range n.children() {
		Walk(c, f)
	}
}

func (n *Node) children() []*Node {
	var r []*Node
	add := func(c *Node) {
		if c != nil {
			r = append(r, c)
		}
	}
	add(n.TypeName)
	add(n.KeyType)
	add(n.ValueType)
	add(n.BaseType)
	add(n.Parameters)
	add(n.ReturnParameters)
	add(n.ParameterTypes)
	add(n.ReturnParameterTypes)
	r = append(r, n.Members...)
	r = append(r, n.Nodes...)
	r = append(r, n.ParameterList...)
	return r
}

// IsStateVariable reports whether n occupies storage: a state variable which
// is neither constant nor immutable.
func (n *Node) IsStateVariable() bool {
	return n.NodeType == NodeVariableDeclaration && n.StateVariable &&
		!n.Constant && n.Mutability != "constant" && n.Mutability != "immutable"
}
