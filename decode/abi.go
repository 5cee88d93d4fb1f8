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

package decode

import (
	"github.com/icon-project/evm-codec/format"
)

// ABISize returns the size of the head of t in an ABI tuple and whether t
// is dynamic. The head of a dynamic type is a single offset word.
func ABISize(t format.Type, table format.TypeTable) (int, bool, error) {
	switch x := t.(type) {
	case *format.UintType, *format.IntType, *format.BoolType, *format.AddressType,
		*format.ContractType, *format.EnumType, *format.FixedType, *format.UfixedType:
		return WordSize, false, nil
	case *format.BytesType:
		return WordSize, x.Kind == format.BytesDynamic, nil
	case *format.StringType:
		return WordSize, true, nil
	case *format.FunctionType:
		if x.Visibility != format.VisibilityExternal {
			return 0, false, format.ErrorCodeUnsupported.Errorf("no ABI encoding for internal function")
		}
		return WordSize, false, nil
	case *format.ArrayType:
		if x.Kind == format.ArrayDynamic {
			return WordSize, true, nil
		}
		size, dynamic, err := ABISize(x.BaseType, table)
		if err != nil {
			return 0, false, err
		}
		if dynamic {
			return WordSize, true, nil
		}
		if x.Length == nil || x.Length.Cmp(bigMaxLength) > 0 {
			return 0, false, format.ErrorCodeUnsupported.Errorf("array too large %s", format.TypeString(t))
		}
		length := int(x.Length.Int64())
		if length != 0 && size > MaxHeadSize/length {
			return 0, false, format.ErrorCodeUnsupported.Errorf("array too large %s", format.TypeString(t))
		}
		return size * length, false, nil
	case *format.StructType:
		stored, err := table.FullStruct(x)
		if err != nil {
			return 0, false, err
		}
		return membersSize(stored.MemberTypes, table)
	case *format.TupleType:
		return membersSize(x.MemberTypes, table)
	default:
		return 0, false, format.ErrorCodeUnsupported.Errorf("no ABI encoding for %s", format.TypeString(t))
	}
}

func membersSize(members []format.NameTypePair, table format.TypeTable) (int, bool, error) {
	total := 0
	for _, m := range members {
		size, dynamic, err := ABISize(m.Type, table)
		if err != nil {
			return 0, false, err
		}
		if dynamic {
			return WordSize, true, nil
		}
		total += size
		if total > MaxHeadSize {
			return 0, false, format.ErrorCodeUnsupported.Errorf("tuple too large")
		}
	}
	return total, false, nil
}

func IsDynamicABI(t format.Type, table format.TypeTable) (bool, error) {
	_, dynamic, err := ABISize(t, table)
	return dynamic, err
}

func (d *decoder) source(loc PointerLocation) []byte {
	switch loc {
	case PointerCalldata:
		return d.state.Calldata
	case PointerReturndata:
		return d.state.Returndata
	case PointerEventdata:
		return d.state.Eventdata
	case PointerMemory:
		return d.state.Memory
	default:
		return nil
	}
}

func (d *decoder) word(loc PointerLocation, start int) ([]byte, format.DecodingError) {
	return readBytes(loc, d.source(loc), start, WordSize)
}

// abi decodes the value whose head is at p.Start.
func (d *decoder) abi(t format.Type, p *ABIPointer) (format.Result, error) {
	_, dynamic, err := ABISize(t, d.table())
	if err != nil {
		if _, ok := err.(*format.UnknownUserDefinedTypeError); ok {
			return format.NewErrorResult(t, &format.UserDefinedTypeNotFoundError{Type: t}), nil
		}
		return nil, err
	}
	if !dynamic {
		return d.abiStatic(t, p.Source, p.Start)
	}
	w, derr := d.word(p.Source, p.Start)
	if derr != nil {
		return format.NewErrorResult(t, derr), nil
	}
	offset, derr := pointerValue(w)
	if derr != nil {
		return format.NewErrorResult(t, derr), nil
	}
	return d.abiDynamic(t, p.Source, p.Base+offset, -1)
}

// abiStatic decodes a static value encoded in place at start.
func (d *decoder) abiStatic(t format.Type, src PointerLocation, start int) (format.Result, error) {
	switch x := t.(type) {
	case *format.ArrayType:
		length, derr := staticLength(x)
		if derr != nil {
			return format.NewErrorResult(t, derr), nil
		}
		return d.abiElements(x, src, start, length)
	case *format.StructType, *format.TupleType:
		return d.abiMembers(t, src, start)
	}
	w, derr := d.word(src, start)
	if derr != nil {
		return format.NewErrorResult(t, derr), nil
	}
	return d.basic(t, w, paddingStrict)
}

// abiDynamic decodes the content of a dynamic value at start. A length of
// -1 means it is read from the first word where the encoding has one.
func (d *decoder) abiDynamic(t format.Type, src PointerLocation, start int, length int) (format.Result, error) {
	data := d.source(src)
	if isBytesOrString(t) || isDynamicArray(t) {
		if length < 0 {
			w, derr := d.word(src, start)
			if derr != nil {
				return format.NewErrorResult(t, derr), nil
			}
			if length, derr = lengthValue(w); derr != nil {
				return format.NewErrorResult(t, derr), nil
			}
			start += WordSize
		} else if length > MaxLength {
			return format.NewErrorResult(t, &format.OverlongArrayOrStringError{
				LengthAsBig: bigInt(length),
			}), nil
		}
		if at, ok := t.(*format.ArrayType); ok {
			return d.abiElements(at, src, start, length)
		}
		b, derr := readBytes(src, data, start, length)
		if derr != nil {
			return format.NewErrorResult(t, derr), nil
		}
		return bytesOrString(t, b), nil
	}
	switch x := t.(type) {
	case *format.ArrayType:
		length, derr := staticLength(x)
		if derr != nil {
			return format.NewErrorResult(t, derr), nil
		}
		return d.abiElements(x, src, start, length)
	case *format.StructType, *format.TupleType:
		return d.abiMembers(t, src, start)
	default:
		return nil, format.ErrorCodeUnsupported.Errorf("%s is not dynamic", format.TypeString(t))
	}
}

func isDynamicArray(t format.Type) bool {
	at, ok := t.(*format.ArrayType)
	return ok && at.Kind == format.ArrayDynamic
}

// abiElements decodes length elements forming a tuple at start.
func (d *decoder) abiElements(t *format.ArrayType, src PointerLocation, start, length int) (format.Result, error) {
	size, _, err := ABISize(t.BaseType, d.table())
	if err != nil {
		return nil, err
	}
	values := make([]format.Result, length)
	for i := 0; i < length; i++ {
		v, err := d.abi(t.BaseType, &ABIPointer{Source: src, Start: start + i*size, Base: start})
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return &format.ArrayValue{Type: t, Value: values}, nil
}

func (d *decoder) abiMembers(t format.Type, src PointerLocation, start int) (format.Result, error) {
	switch x := t.(type) {
	case *format.StructType:
		stored, err := d.table().FullStruct(x)
		if err != nil {
			return format.NewErrorResult(t, &format.UserDefinedTypeNotFoundError{Type: t}), nil
		}
		values, err := d.abiTuple(stored.MemberTypes, src, start)
		if err != nil {
			return nil, err
		}
		return &format.StructValue{Type: x, Value: values}, nil
	case *format.TupleType:
		values, err := d.abiTuple(x.MemberTypes, src, start)
		if err != nil {
			return nil, err
		}
		return &format.TupleValue{Type: x, Value: values}, nil
	default:
		return nil, format.ErrorCodeUnsupported.Errorf("%s has no members", format.TypeString(t))
	}
}

// abiTuple decodes members whose heads start at start. Offsets of dynamic
// members are relative to start.
func (d *decoder) abiTuple(members []format.NameTypePair, src PointerLocation, start int) ([]format.NameValuePair, error) {
	values := make([]format.NameValuePair, len(members))
	pos := start
	for i, m := range members {
		size, _, err := ABISize(m.Type, d.table())
		if err != nil {
			return nil, err
		}
		v, err := d.abi(m.Type, &ABIPointer{Source: src, Start: pos, Base: start})
		if err != nil {
			return nil, err
		}
		values[i] = format.NameValuePair{Name: m.Name, Value: v}
		pos += size
	}
	return values, nil
}

// DecodeABITuple decodes members ABI-encoded as a tuple at start of the
// given source of state.
func DecodeABITuple(members []format.NameTypePair, src PointerLocation, start int, state *State, info *Info) ([]format.NameValuePair, error) {
	if info == nil {
		info = &Info{}
	}
	d := &decoder{state: state, info: info}
	return d.abiTuple(members, src, start)
}
