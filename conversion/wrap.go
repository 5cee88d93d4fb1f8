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
	"encoding/json"
	stdmath "math"
	"math/big"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
	"github.com/icon-project/btp2/common/log"

	"github.com/icon-project/evm-codec/format"
)

func MustBigOf(value interface{}) *big.Int {
	ret, err := BigOf(value)
	if err != nil {
		log.Panicf("fail to BigOf err:%v", err)
	}
	return ret
}

// BigOf accepts Go integers, big integers, decimal or 0x-prefixed hex strings
// (optionally negative), json.Number and integral float64.
func BigOf(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		if v == nil {
			return nil, format.ErrorCodeInvalidValue.New("fail BigOf, nil")
		}
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case string:
		s := strings.TrimSpace(v)
		neg := strings.HasPrefix(s, "-")
		s = strings.TrimPrefix(s, "-")
		base := 10
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			s, base = s[2:], 16
		}
		n, ok := new(big.Int).SetString(s, base)
		if !ok {
			return nil, format.ErrorCodeInvalidValue.Errorf("fail BigOf, invalid integer %q", v)
		}
		if neg {
			n.Neg(n)
		}
		return n, nil
	case json.Number:
		return BigOf(string(v))
	case float64:
		if v != stdmath.Trunc(v) {
			return nil, format.ErrorCodeInvalidValue.Errorf("fail BigOf, not integral %v", v)
		}
		n, _ := big.NewFloat(v).Int(nil)
		return n, nil
	case []byte:
		return ToBig(v), nil
	default:
		rv := reflect.ValueOf(value)
		if rv.CanInt() {
			return big.NewInt(rv.Int()), nil
		} else if rv.CanUint() {
			return new(big.Int).SetUint64(rv.Uint()), nil
		}
		return nil, format.ErrorCodeInvalidValue.Errorf("fail BigOf, not supported type %T", value)
	}
}

func BoolOf(value interface{}) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "0x1", "1":
			return true, nil
		case "false", "0x0", "0":
			return false, nil
		}
	}
	return false, format.ErrorCodeInvalidValue.Errorf("fail BoolOf, invalid value %v", value)
}

// BytesOf accepts []byte or hex strings.
func BytesOf(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return HexToBytes(v)
	case common.Hash:
		return v.Bytes(), nil
	case common.Address:
		return v.Bytes(), nil
	default:
		return nil, format.ErrorCodeInvalidValue.Errorf("fail BytesOf, not supported type %T", value)
	}
}

func AddressOf(value interface{}) (string, error) {
	switch v := value.(type) {
	case common.Address:
		return v.Hex(), nil
	case string:
		return ToChecksumAddress(v)
	case []byte:
		if len(v) != common.AddressLength {
			return "", format.ErrorCodeInvalidValue.Errorf("fail AddressOf, invalid length %d", len(v))
		}
		return ToAddress(v), nil
	default:
		return "", format.ErrorCodeInvalidValue.Errorf("fail AddressOf, not supported type %T", value)
	}
}

func MustWrap(t format.Type, value interface{}, table format.TypeTable) format.Result {
	r, err := Wrap(t, value, table)
	if err != nil {
		log.Panicf("fail to Wrap err:%v", err)
	}
	return r
}

// Wrap builds a typed value from a native Go value, checking it against the
// range of t. table is needed for enum names and struct members and may be nil.
func Wrap(t format.Type, value interface{}, table format.TypeTable) (format.Result, error) {
	if r, ok := value.(format.Result); ok {
		if !format.EqualIgnoringLocation(r.DataType(), t) {
			return nil, format.ErrorCodeInvalidValue.Errorf("fail Wrap, type mismatch %s and %s",
				format.TypeString(r.DataType()), format.TypeString(t))
		}
		return r, nil
	}
	switch x := t.(type) {
	case *format.UintType:
		n, err := BigOf(value)
		if err != nil {
			return nil, err
		}
		if n.Sign() < 0 || n.BitLen() > x.Bits {
			return nil, format.ErrorCodeInvalidValue.Errorf("fail Wrap, %v out of range for uint%d", n, x.Bits)
		}
		return &format.UintValue{Type: x, Value: n}, nil
	case *format.IntType:
		n, err := BigOf(value)
		if err != nil {
			return nil, err
		}
		limit := new(big.Int).Lsh(big1, uint(x.Bits-1))
		if n.Cmp(limit) >= 0 || n.Cmp(new(big.Int).Neg(limit)) < 0 {
			return nil, format.ErrorCodeInvalidValue.Errorf("fail Wrap, %v out of range for int%d", n, x.Bits)
		}
		return &format.IntValue{Type: x, Value: n}, nil
	case *format.BoolType:
		b, err := BoolOf(value)
		if err != nil {
			return nil, err
		}
		return &format.BoolValue{Type: x, Value: b}, nil
	case *format.BytesType:
		b, err := BytesOf(value)
		if err != nil {
			return nil, err
		}
		if x.Kind == format.BytesStatic && len(b) != x.Length {
			return nil, format.ErrorCodeInvalidValue.Errorf("fail Wrap, bytes%d with %d bytes", x.Length, len(b))
		}
		return &format.BytesValue{Type: x, Value: b}, nil
	case *format.AddressType:
		a, err := AddressOf(value)
		if err != nil {
			return nil, err
		}
		return &format.AddressValue{Type: x, Address: a}, nil
	case *format.ContractType:
		a, err := AddressOf(value)
		if err != nil {
			return nil, err
		}
		return &format.ContractValue{Type: x, Value: format.ContractInfo{Address: a}}, nil
	case *format.StringType:
		switch v := value.(type) {
		case string:
			if !utf8.ValidString(v) {
				return &format.StringValue{Type: x, Malformed: true, Raw: []byte(v)}, nil
			}
			return &format.StringValue{Type: x, Value: v}, nil
		case []byte:
			if !utf8.Valid(v) {
				return &format.StringValue{Type: x, Malformed: true, Raw: v}, nil
			}
			return &format.StringValue{Type: x, Value: string(v)}, nil
		}
		return nil, format.ErrorCodeInvalidValue.Errorf("fail Wrap, not supported type %T for string", value)
	case *format.EnumType:
		return wrapEnum(x, value, table)
	case *format.FunctionType:
		if x.Visibility != format.VisibilityExternal {
			return nil, format.ErrorCodeUnsupported.New("fail Wrap, internal function")
		}
		b, err := BytesOf(value)
		if err != nil {
			return nil, err
		}
		if len(b) != 24 {
			return nil, format.ErrorCodeInvalidValue.Errorf("fail Wrap, external function with %d bytes", len(b))
		}
		return &format.FunctionExternalValue{
			Type:     x,
			Status:   format.ExternalFunctionUnknown,
			Contract: format.ContractInfo{Address: ToAddress(b[:20])},
			Selector: ToHexString(b[20:24]),
		}, nil
	case *format.ArrayType:
		return wrapArray(x, value, table)
	case *format.TupleType:
		members, err := wrapMembers(x.MemberTypes, value, table)
		if err != nil {
			return nil, err
		}
		return &format.TupleValue{Type: x, Value: members}, nil
	case *format.StructType:
		if table == nil {
			return nil, format.NewUnknownUserDefinedTypeError(x.ID, x)
		}
		st, err := table.FullStruct(x)
		if err != nil {
			return nil, err
		}
		memberTypes := make([]format.NameTypePair, len(st.MemberTypes))
		for i, m := range st.MemberTypes {
			memberTypes[i] = format.NameTypePair{Name: m.Name, Type: format.SpecifyLocation(m.Type, x.Location)}
		}
		members, err := wrapMembers(memberTypes, value, table)
		if err != nil {
			return nil, err
		}
		return &format.StructValue{Type: x, Value: members}, nil
	default:
		return nil, format.ErrorCodeUnsupported.Errorf("fail Wrap, not supported type %s", format.TypeString(t))
	}
}

func wrapEnum(t *format.EnumType, value interface{}, table format.TypeTable) (format.Result, error) {
	var options []string
	if table != nil {
		if et, ok := table.Enum(t.ID); ok {
			options = et.Options
		}
	}
	if s, ok := value.(string); ok && options != nil {
		name := s
		if idx := strings.LastIndex(s, "."); idx >= 0 {
			name = s[idx+1:]
		}
		for i, o := range options {
			if o == name {
				return &format.EnumValue{Type: t, Name: o, Numeric: big.NewInt(int64(i))}, nil
			}
		}
	}
	n, err := BigOf(value)
	if err != nil {
		return nil, err
	}
	if options == nil {
		if n.Sign() < 0 {
			return nil, format.ErrorCodeInvalidValue.Errorf("fail Wrap, negative enum value %v", n)
		}
		return &format.EnumValue{Type: t, Numeric: n}, nil
	}
	if n.Sign() < 0 || !n.IsInt64() || n.Int64() >= int64(len(options)) {
		return nil, format.ErrorCodeInvalidValue.Errorf("fail Wrap, %v out of range for %s",
			n, format.TypeString(t))
	}
	return &format.EnumValue{Type: t, Name: options[n.Int64()], Numeric: n}, nil
}

func wrapArray(t *format.ArrayType, value interface{}, table format.TypeTable) (format.Result, error) {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, format.ErrorCodeInvalidValue.Errorf("fail Wrap, not supported type %T for array", value)
	}
	if t.Kind == format.ArrayStatic && (t.Length == nil || !t.Length.IsInt64() || t.Length.Int64() != int64(rv.Len())) {
		return nil, format.ErrorCodeInvalidValue.Errorf("fail Wrap, %d elements for %s",
			rv.Len(), format.TypeString(t))
	}
	elements := make([]format.Result, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		e, err := Wrap(t.BaseType, rv.Index(i).Interface(), table)
		if err != nil {
			return nil, err
		}
		elements[i] = e
	}
	return &format.ArrayValue{Type: t, Value: elements}, nil
}

func wrapMembers(memberTypes []format.NameTypePair, value interface{}, table format.TypeTable) ([]format.NameValuePair, error) {
	members := make([]format.NameValuePair, len(memberTypes))
	if m, ok := value.(map[string]interface{}); ok {
		for i, mt := range memberTypes {
			v, ok := m[mt.Name]
			if !ok {
				return nil, format.ErrorCodeInvalidValue.Errorf("fail Wrap, missing member %s", mt.Name)
			}
			r, err := Wrap(mt.Type, v, table)
			if err != nil {
				return nil, err
			}
			members[i] = format.NameValuePair{Name: mt.Name, Value: r}
		}
		return members, nil
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, format.ErrorCodeInvalidValue.Errorf("fail Wrap, not supported type %T for tuple", value)
	}
	if rv.Len() != len(memberTypes) {
		return nil, format.ErrorCodeInvalidValue.Errorf("fail Wrap, %d values for %d members",
			rv.Len(), len(memberTypes))
	}
	for i, mt := range memberTypes {
		r, err := Wrap(mt.Type, rv.Index(i).Interface(), table)
		if err != nil {
			return nil, err
		}
		members[i] = format.NameValuePair{Name: mt.Name, Value: r}
	}
	return members, nil
}
