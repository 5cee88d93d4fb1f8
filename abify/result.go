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

package abify

import (
	"math/big"

	"github.com/icon-project/evm-codec/conversion"
	"github.com/icon-project/evm-codec/format"
)

// Result abifies a decoded result. Enum values, and the enum errors which
// still carry the raw number, become uint values of the enum width; a raw
// number wider than that is a UintPaddingError.
func Result(r format.Result, table format.TypeTable) (format.Result, error) {
	if r == nil {
		return nil, nil
	}
	t, err := Type(r.DataType(), table)
	if err != nil || t == nil {
		return nil, err
	}
	if _, ok := r.DataType().(*format.EnumType); ok {
		return enum(r, t.(*format.UintType)), nil
	}
	switch x := r.(type) {
	case *format.ErrorResult:
		return format.NewErrorResult(t, x.Error), nil
	case *format.UintValue:
		return &format.UintValue{Type: t.(*format.UintType), Value: x.Value}, nil
	case *format.IntValue:
		return &format.IntValue{Type: t.(*format.IntType), Value: x.Value}, nil
	case *format.BoolValue:
		return &format.BoolValue{Type: t.(*format.BoolType), Value: x.Value}, nil
	case *format.BytesValue:
		return &format.BytesValue{Type: t.(*format.BytesType), Value: x.Value}, nil
	case *format.StringValue:
		return &format.StringValue{Type: t.(*format.StringType), Value: x.Value, Malformed: x.Malformed, Raw: x.Raw}, nil
	case *format.FixedValue:
		return &format.FixedValue{Type: t, Value: x.Value}, nil
	case *format.AddressValue:
		return &format.AddressValue{Type: t.(*format.AddressType), Address: x.Address}, nil
	case *format.ContractValue:
		return &format.AddressValue{Type: t.(*format.AddressType), Address: x.Value.Address}, nil
	case *format.FunctionExternalValue:
		c := *x
		c.Type = t.(*format.FunctionType)
		return &c, nil
	case *format.ArrayValue:
		if x.Reference != nil {
			return nil, nil
		}
		values := make([]format.Result, 0, len(x.Value))
		for _, e := range x.Value {
			v, err := Result(e, table)
			if err != nil {
				return nil, err
			}
			if v == nil {
				return nil, nil
			}
			values = append(values, v)
		}
		return &format.ArrayValue{Type: t.(*format.ArrayType), Value: values}, nil
	case *format.StructValue:
		if x.Reference != nil {
			return nil, nil
		}
		members, err := abifyMembers(x.Value, table)
		if err != nil || members == nil {
			return nil, err
		}
		return &format.TupleValue{Type: t.(*format.TupleType), Value: members}, nil
	case *format.TupleValue:
		members, err := abifyMembers(x.Value, table)
		if err != nil || members == nil {
			return nil, err
		}
		return &format.TupleValue{Type: t.(*format.TupleType), Value: members}, nil
	default:
		return nil, format.ErrorCodeUnsupported.Errorf("fail abify.Result, unsupported %T", r)
	}
}

// abifyMembers drops the members without ABI representation. It returns nil
// when a member has a representable type but an absent value, since the
// tuple could not keep its shape.
func abifyMembers(values []format.NameValuePair, table format.TypeTable) ([]format.NameValuePair, error) {
	r := make([]format.NameValuePair, 0, len(values))
	for _, m := range values {
		t, err := Type(m.Value.DataType(), table)
		if err != nil {
			return nil, err
		}
		if t == nil {
			continue
		}
		v, err := Result(m.Value, table)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, nil
		}
		r = append(r, format.NameValuePair{Name: m.Name, Value: v})
	}
	return r, nil
}

func enum(r format.Result, t *format.UintType) format.Result {
	var n *big.Int
	switch x := r.(type) {
	case *format.EnumValue:
		n = x.Numeric
	case *format.ErrorResult:
		switch e := x.Error.(type) {
		case *format.EnumOutOfRangeError:
			n = e.RawAsBig
		case *format.EnumNotFoundDecodingError:
			n = e.RawAsBig
		default:
			return format.NewErrorResult(t, x.Error)
		}
	}
	if n == nil || n.Sign() < 0 || n.BitLen() > t.Bits {
		raw := "0x"
		if n != nil && n.Sign() >= 0 {
			raw = conversion.BigToHexString(n)
		}
		return format.NewErrorResult(t, &format.UintPaddingError{Raw: raw})
	}
	return &format.UintValue{Type: t, Value: new(big.Int).Set(n)}
}
