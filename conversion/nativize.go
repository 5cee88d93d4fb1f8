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

package conversion

import (
	"fmt"
	"math/big"

	"golang.org/x/text/encoding/unicode"

	"github.com/icon-project/evm-codec/format"
)

// Nativize converts a decoded value into plain Go values for display.
// It is lossy: errors become nil, integers outside int64 become float64.
func Nativize(r format.Result) interface{} {
	switch v := r.(type) {
	case nil, *format.ErrorResult:
		return nil
	case *format.UintValue:
		return nativeNumber(v.Value)
	case *format.IntValue:
		return nativeNumber(v.Value)
	case *format.BoolValue:
		return v.Value
	case *format.BytesValue:
		return ToHexString(v.Value)
	case *format.AddressValue:
		return v.Address
	case *format.StringValue:
		if v.Malformed {
			return replaceInvalid(v.Raw)
		}
		return v.Value
	case *format.FixedValue:
		f, _ := v.Value.Float64()
		return f
	case *format.EnumValue:
		name := v.Name
		if name == "" {
			name = v.Numeric.String()
		}
		if v.Type.DefiningContractName != "" {
			return v.Type.DefiningContractName + "." + v.Type.TypeName + "." + name
		}
		return v.Type.TypeName + "." + name
	case *format.ContractValue:
		return v.Value.Address
	case *format.FunctionExternalValue:
		if v.Status == format.ExternalFunctionKnown && v.Contract.Known() {
			return v.Contract.Class.TypeName + "(" + v.Contract.Address + ")." + v.Name
		}
		return v.Contract.Address + ":" + v.Selector
	case *format.FunctionInternalValue:
		switch v.Status {
		case format.InternalFunctionFunction:
			if v.DefiningContractName != "" {
				return v.DefiningContractName + "." + v.Name
			}
			return v.Name
		case format.InternalFunctionException:
			return v.Name
		default:
			return fmt.Sprintf("<pc %d/%d>", v.DeployedProgramCounter, v.ConstructorProgramCounter)
		}
	case *format.ArrayValue:
		if v.Reference != nil {
			return nil
		}
		l := make([]interface{}, len(v.Value))
		for i, e := range v.Value {
			l[i] = Nativize(e)
		}
		return l
	case *format.MappingValue:
		m := make(map[string]interface{}, len(v.Value))
		for _, kv := range v.Value {
			m[fmt.Sprint(Nativize(kv.Key))] = Nativize(kv.Value)
		}
		return m
	case *format.StructValue:
		if v.Reference != nil {
			return nil
		}
		return nativeMembers(v.Value)
	case *format.TupleValue:
		for _, m := range v.Value {
			if m.Name == "" {
				l := make([]interface{}, len(v.Value))
				for i, e := range v.Value {
					l[i] = Nativize(e.Value)
				}
				return l
			}
		}
		return nativeMembers(v.Value)
	case *format.MagicValue:
		m := make(map[string]interface{}, len(v.Value))
		for k, e := range v.Value {
			m[k] = Nativize(e)
		}
		return m
	default:
		return nil
	}
}

func nativeNumber(n *big.Int) interface{} {
	if n.IsInt64() {
		return n.Int64()
	}
	f, _ := new(big.Float).SetInt(n).Float64()
	return f
}

func nativeMembers(members []format.NameValuePair) map[string]interface{} {
	m := make(map[string]interface{}, len(members))
	for _, e := range members {
		m[e.Name] = Nativize(e.Value)
	}
	return m
}

// replaceInvalid substitutes U+FFFD for every invalid UTF-8 sequence.
func replaceInvalid(b []byte) string {
	r, err := unicode.UTF8.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(r)
}
