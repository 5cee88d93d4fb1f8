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

	"github.com/ethereum/go-ethereum/common/hexutil"
)

type resultJSON struct {
	Type      Type            `json:"type"`
	Kind      ResultKind      `json:"kind"`
	Value     interface{}     `json:"value,omitempty"`
	Reference *int            `json:"reference,omitempty"`
	Error     json.RawMessage `json:"error,omitempty"`
}

func marshalValue(t Type, v interface{}) ([]byte, error) {
	return json.Marshal(&resultJSON{Type: t, Kind: ResultValue, Value: v})
}

func (v *UintValue) MarshalJSON() ([]byte, error) {
	return marshalValue(v.Type, map[string]string{"asBig": v.Value.String()})
}

func (v *IntValue) MarshalJSON() ([]byte, error) {
	return marshalValue(v.Type, map[string]string{"asBig": v.Value.String()})
}

func (v *BoolValue) MarshalJSON() ([]byte, error) {
	return marshalValue(v.Type, map[string]bool{"asBoolean": v.Value})
}

func (v *BytesValue) MarshalJSON() ([]byte, error) {
	return marshalValue(v.Type, map[string]string{"asHex": hexutil.Encode(v.Value)})
}

func (v *AddressValue) MarshalJSON() ([]byte, error) {
	return marshalValue(v.Type, map[string]string{"asAddress": v.Address})
}

func (v *StringValue) MarshalJSON() ([]byte, error) {
	if v.Malformed {
		return marshalValue(v.Type, map[string]string{"kind": "malformed", "asHex": hexutil.Encode(v.Raw)})
	}
	return marshalValue(v.Type, map[string]string{"kind": "valid", "asString": v.Value})
}

func (v *FixedValue) MarshalJSON() ([]byte, error) {
	places := 0
	switch t := v.Type.(type) {
	case *FixedType:
		places = t.Places
	case *UfixedType:
		places = t.Places
	}
	return marshalValue(v.Type, map[string]string{"asDecimal": v.Value.FloatString(places)})
}

func (v *EnumValue) MarshalJSON() ([]byte, error) {
	return marshalValue(v.Type, map[string]string{"name": v.Name, "numericAsBig": v.Numeric.String()})
}

func (v *ContractValue) MarshalJSON() ([]byte, error) {
	return marshalValue(v.Type, contractInfoJSON(v.Value))
}

func contractInfoJSON(c ContractInfo) map[string]interface{} {
	m := map[string]interface{}{"address": c.Address}
	if c.Known() {
		m["kind"] = "known"
		m["class"] = c.Class
	} else {
		m["kind"] = "unknown"
	}
	return m
}

func (v *FunctionExternalValue) MarshalJSON() ([]byte, error) {
	m := map[string]interface{}{
		"kind":     v.Status,
		"contract": contractInfoJSON(v.Contract),
		"selector": v.Selector,
	}
	if v.Status == ExternalFunctionKnown {
		m["name"] = v.Name
		m["signature"] = v.Signature
	}
	return marshalValue(v.Type, m)
}

func (v *FunctionInternalValue) MarshalJSON() ([]byte, error) {
	m := map[string]interface{}{
		"kind":                      v.Status,
		"deployedProgramCounter":    v.DeployedProgramCounter,
		"constructorProgramCounter": v.ConstructorProgramCounter,
	}
	if v.Context != nil {
		m["context"] = v.Context
	}
	if v.Status != InternalFunctionUnknown {
		m["name"] = v.Name
	}
	if v.Status == InternalFunctionFunction {
		m["definedIn"] = v.DefiningContractName
	}
	return marshalValue(v.Type, m)
}

func (v *ArrayValue) MarshalJSON() ([]byte, error) {
	r := &resultJSON{Type: v.Type, Kind: ResultValue, Reference: v.Reference}
	if v.Reference == nil {
		r.Value = v.Value
	}
	return json.Marshal(r)
}

func (v *MappingValue) MarshalJSON() ([]byte, error) {
	return marshalValue(v.Type, v.Value)
}

func (v *StructValue) MarshalJSON() ([]byte, error) {
	r := &resultJSON{Type: v.Type, Kind: ResultValue, Reference: v.Reference}
	if v.Reference == nil {
		r.Value = v.Value
	}
	return json.Marshal(r)
}

func (v *TupleValue) MarshalJSON() ([]byte, error) {
	return marshalValue(v.Type, v.Value)
}

func (v *MagicValue) MarshalJSON() ([]byte, error) {
	return marshalValue(v.Type, v.Value)
}

func (v *ErrorResult) MarshalJSON() ([]byte, error) {
	e, err := MarshalDecodingError(v.Error)
	if err != nil {
		return nil, err
	}
	return json.Marshal(&resultJSON{Type: v.Type, Kind: ResultError, Error: e})
}

// MarshalDecodingError renders the error fields with its kind name added.
func MarshalDecodingError(e DecodingError) ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	m := make(map[string]interface{})
	if err = json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	m["kind"] = e.ErrorKind()
	m["message"] = e.Error()
	return json.Marshal(m)
}
