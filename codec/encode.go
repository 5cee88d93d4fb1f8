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

package codec

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"

	"github.com/icon-project/evm-codec/abi"
	"github.com/icon-project/evm-codec/abify"
	"github.com/icon-project/evm-codec/conversion"
	"github.com/icon-project/evm-codec/decode"
	"github.com/icon-project/evm-codec/format"
)

const WordSize = conversion.WordSize

var (
	codecLogger = log.New()
)

func init() {
	codecLogger.SetLevel(log.DebugLevel)
}

// EncodeTuple abifies values and encodes them as a tuple: a head of one
// slot per value, holding static values in place and offsets for dynamic
// values, followed by the tail of dynamic contents.
func EncodeTuple(values []format.Result, table format.TypeTable) ([]byte, error) {
	abified := make([]format.Result, len(values))
	for i, v := range values {
		av, err := abify.Result(v, table)
		if err != nil {
			return nil, errors.Wrapf(err, "fail EncodeTuple, index:%d err:%s", i, err.Error())
		}
		if av == nil {
			return nil, format.ErrorCodeEncode.Errorf("fail EncodeTuple, index:%d %s has no ABI representation",
				i, format.TypeString(v.DataType()))
		}
		abified[i] = av
	}
	return encodeTuple(abified)
}

// EncodeCalldata encodes values as the arguments of e, prefixed with the
// selector for functions.
func EncodeCalldata(e *abi.Entry, values []format.Result, table format.TypeTable) ([]byte, error) {
	if len(values) != len(e.Inputs) {
		return nil, format.ErrorCodeEncode.Errorf("fail EncodeCalldata, %s expects %d arguments, got %d",
			e.Signature(), len(e.Inputs), len(values))
	}
	args, err := EncodeTuple(values, table)
	if err != nil {
		return nil, err
	}
	if e.Type != abi.EntryFunction {
		return args, nil
	}
	selector := e.Selector()
	return append(selector[:], args...), nil
}

func encodeTuple(values []format.Result) ([]byte, error) {
	heads := make([][]byte, len(values))
	var tail []byte
	headSize := 0
	dynamics := make([]bool, len(values))
	for i, v := range values {
		size, dynamic, err := decode.ABISize(v.DataType(), nil)
		if err != nil {
			return nil, err
		}
		dynamics[i] = dynamic
		headSize += size
	}
	for i, v := range values {
		b, err := encode(v)
		if err != nil {
			return nil, err
		}
		if dynamics[i] {
			heads[i] = offsetWord(headSize + len(tail))
			tail = append(tail, b...)
		} else {
			heads[i] = b
		}
	}
	r := make([]byte, 0, headSize+len(tail))
	for _, h := range heads {
		r = append(r, h...)
	}
	return append(r, tail...), nil
}

func offsetWord(n int) []byte {
	return common.LeftPadBytes(big.NewInt(int64(n)).Bytes(), WordSize)
}

func padRight(b []byte) []byte {
	n := (len(b) + WordSize - 1) / WordSize * WordSize
	return common.RightPadBytes(b, n)
}

func encodeInteger(n *big.Int, bits int, signed bool) ([]byte, error) {
	if n == nil {
		return nil, format.ErrorCodeEncode.Errorf("fail encodeInteger, nil value")
	}
	limit := bits
	if signed {
		limit--
	} else if n.Sign() < 0 {
		return nil, format.ErrorCodeEncode.Errorf("fail encodeInteger, negative value %v for uint%d", n, bits)
	}
	m := n
	if n.Sign() < 0 {
		m = new(big.Int).Not(n)
	}
	if m.BitLen() > limit {
		return nil, format.ErrorCodeEncode.Errorf("fail encodeInteger, %v overflows %d bits", n, bits)
	}
	return conversion.ToBytes(n, WordSize)
}

func encode(v format.Result) ([]byte, error) {
	codecLogger.Tracef("encode %s", format.TypeString(v.DataType()))
	switch x := v.(type) {
	case *format.ErrorResult:
		return nil, format.ErrorCodeEncode.Errorf("fail encode, error value %s", x.Error.Error())
	case *format.UintValue:
		return encodeInteger(x.Value, x.Type.Bits, false)
	case *format.IntValue:
		return encodeInteger(x.Value, x.Type.Bits, true)
	case *format.BoolValue:
		if x.Value {
			return offsetWord(1), nil
		}
		return offsetWord(0), nil
	case *format.AddressValue:
		if !common.IsHexAddress(x.Address) {
			return nil, format.ErrorCodeEncode.Errorf("fail encode, invalid address %s", x.Address)
		}
		return common.LeftPadBytes(common.HexToAddress(x.Address).Bytes(), WordSize), nil
	case *format.BytesValue:
		if x.Type.Kind == format.BytesStatic {
			if len(x.Value) != x.Type.Length {
				return nil, format.ErrorCodeEncode.Errorf("fail encode, bytes%d with %d bytes",
					x.Type.Length, len(x.Value))
			}
			return common.RightPadBytes(x.Value, WordSize), nil
		}
		return encodeBytes(x.Value), nil
	case *format.StringValue:
		if x.Malformed {
			return encodeBytes(x.Raw), nil
		}
		return encodeBytes([]byte(x.Value)), nil
	case *format.FixedValue:
		return encodeFixed(x)
	case *format.FunctionExternalValue:
		sel, err := conversion.HexToBytes(x.Selector)
		if err != nil {
			return nil, err
		}
		if len(sel) != abi.SelectorLength || !common.IsHexAddress(x.Contract.Address) {
			return nil, format.ErrorCodeEncode.Errorf("fail encode, invalid function %s:%s",
				x.Contract.Address, x.Selector)
		}
		return common.RightPadBytes(append(common.HexToAddress(x.Contract.Address).Bytes(), sel...), WordSize), nil
	case *format.ArrayValue:
		b, err := encodeTuple(x.Value)
		if err != nil {
			return nil, err
		}
		if x.Type.Kind == format.ArrayDynamic {
			return append(offsetWord(len(x.Value)), b...), nil
		}
		if x.Type.Length == nil || x.Type.Length.Cmp(big.NewInt(int64(len(x.Value)))) != 0 {
			return nil, format.ErrorCodeEncode.Errorf("fail encode, %s with %d elements",
				format.TypeString(x.Type), len(x.Value))
		}
		return b, nil
	case *format.TupleValue:
		values := make([]format.Result, len(x.Value))
		for i, m := range x.Value {
			values[i] = m.Value
		}
		return encodeTuple(values)
	default:
		return nil, format.ErrorCodeEncode.Errorf("fail encode, unsupported %T", v)
	}
}

func encodeBytes(b []byte) []byte {
	return append(offsetWord(len(b)), padRight(b)...)
}

func encodeFixed(v *format.FixedValue) ([]byte, error) {
	var bits, places int
	signed := false
	switch t := v.Type.(type) {
	case *format.FixedType:
		bits, places, signed = t.Bits, t.Places, true
	case *format.UfixedType:
		bits, places = t.Bits, t.Places
	default:
		return nil, format.ErrorCodeEncode.Errorf("fail encodeFixed, invalid type %T", v.Type)
	}
	n, err := conversion.FromDecimal(v.Value, places)
	if err != nil {
		return nil, err
	}
	return encodeInteger(n, bits, signed)
}
