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
	"strings"
)

var magicVariableNames = map[MagicVariable]string{
	MagicMessage:     "msg",
	MagicTransaction: "tx",
	MagicBlock:       "block",
}

// TypeString renders t the way the compiler prints it, with the data
// location of reference types appended.
func TypeString(t Type) string {
	s := TypeStringWithoutLocation(t)
	if t == nil || t.TypeClass() == ClassMapping || !IsReferenceType(t) {
		return s
	}
	if loc := t.(ReferenceType).DataLocation(); loc != LocationNone {
		s += " " + string(loc)
	}
	return s
}

func TypeStringWithoutLocation(t Type) string {
	switch x := t.(type) {
	case nil:
		return ""
	case *UintType:
		return fmt.Sprintf("uint%d", x.Bits)
	case *IntType:
		return fmt.Sprintf("int%d", x.Bits)
	case *BoolType:
		return "bool"
	case *BytesType:
		if x.Kind == BytesStatic {
			return fmt.Sprintf("bytes%d", x.Length)
		}
		return "bytes"
	case *AddressType:
		if x.Kind == AddressSpecific && x.Payable {
			return "address payable"
		}
		return "address"
	case *StringType:
		return "string"
	case *FixedType:
		return fmt.Sprintf("fixed%dx%d", x.Bits, x.Places)
	case *UfixedType:
		return fmt.Sprintf("ufixed%dx%d", x.Bits, x.Places)
	case *ArrayType:
		l := ""
		if x.Kind == ArrayStatic && x.Length != nil {
			l = x.Length.String()
		}
		return TypeStringWithoutLocation(x.BaseType) + "[" + l + "]"
	case *MappingType:
		return "mapping(" + TypeStringWithoutLocation(x.KeyType) + " => " +
			TypeStringWithoutLocation(x.ValueType) + ")"
	case *StructType:
		return "struct " + qualifiedName(x.DefiningContractName, x.TypeName)
	case *EnumType:
		return "enum " + qualifiedName(x.DefiningContractName, x.TypeName)
	case *ContractType:
		kind := x.ContractKind
		if kind == "" {
			kind = ContractKindContract
		}
		return string(kind) + " " + x.TypeName
	case *FunctionType:
		return functionTypeString(x)
	case *TupleType:
		members := make([]string, len(x.MemberTypes))
		for i, m := range x.MemberTypes {
			members[i] = TypeStringWithoutLocation(m.Type)
		}
		return "tuple(" + strings.Join(members, ",") + ")"
	case *MagicType:
		return magicVariableNames[x.Variable]
	default:
		return fmt.Sprintf("%T", t)
	}
}

func qualifiedName(contract, name string) string {
	if contract == "" {
		return name
	}
	return contract + "." + name
}

func functionTypeString(t *FunctionType) string {
	if t.Visibility == VisibilityExternal && t.Kind == FunctionGeneral {
		return "function external"
	}
	sb := strings.Builder{}
	sb.WriteString("function(")
	sb.WriteString(typeList(t.InputParameterTypes))
	sb.WriteString(") ")
	sb.WriteString(string(t.Visibility))
	if t.Mutability != "" && t.Mutability != MutabilityNonPayable {
		sb.WriteString(" ")
		sb.WriteString(string(t.Mutability))
	}
	if len(t.OutputParameterTypes) > 0 {
		sb.WriteString(" returns (")
		sb.WriteString(typeList(t.OutputParameterTypes))
		sb.WriteString(")")
	}
	return sb.String()
}

func typeList(types []Type) string {
	s := make([]string, len(types))
	for i, t := range types {
		s[i] = TypeString(t)
	}
	return strings.Join(s, ",")
}
