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

func (d *decoder) memoryWord(start int) ([]byte, format.DecodingError) {
	return readBytes(PointerMemory, d.state.Memory, start, WordSize)
}

func contains(seen []int, p int) (int, bool) {
	for i := len(seen) - 1; i >= 0; i-- {
		if seen[i] == p {
			return len(seen) - i, true
		}
	}
	return 0, false
}

func visit(seen []int, p int) []int {
	l := make([]int, len(seen), len(seen)+1)
	copy(l, seen)
	return append(l, p)
}

// memory decodes the value laid out at start. seen holds the starts of the
// containers being decoded.
func (d *decoder) memory(t format.Type, start int, seen []int) (format.Result, error) {
	if isBytesOrString(t) {
		w, derr := d.memoryWord(start)
		if derr != nil {
			return format.NewErrorResult(t, derr), nil
		}
		length, derr := lengthValue(w)
		if derr != nil {
			return format.NewErrorResult(t, derr), nil
		}
		data, derr := readBytes(PointerMemory, d.state.Memory, start+WordSize, length)
		if derr != nil {
			return format.NewErrorResult(t, derr), nil
		}
		return bytesOrString(t, data), nil
	}
	switch x := t.(type) {
	case *format.ArrayType:
		return d.memoryArray(x, start, seen)
	case *format.StructType:
		return d.memoryStruct(x, start, seen)
	case *format.MappingType:
		return nil, format.ErrorCodeUnsupported.Errorf("mapping in memory")
	}
	w, derr := d.memoryWord(start)
	if derr != nil {
		return format.NewErrorResult(t, derr), nil
	}
	return d.basic(t, w, paddingStrict)
}

// memoryElement decodes an element or member word at pos, following it as a
// pointer for reference types.
func (d *decoder) memoryElement(t format.Type, pos int, seen []int) (format.Result, error) {
	if !format.IsReferenceType(t) {
		return d.memory(t, pos, seen)
	}
	w, derr := d.memoryWord(pos)
	if derr != nil {
		return format.NewErrorResult(t, derr), nil
	}
	p, derr := pointerValue(w)
	if derr != nil {
		return format.NewErrorResult(t, derr), nil
	}
	if depth, ok := contains(seen, p); ok {
		if r := referenceResult(t, depth); r != nil {
			decodeLogger.Tracef("memory reference %s at %d depth:%d", format.TypeString(t), p, depth)
			return r, nil
		}
	}
	return d.memory(t, p, seen)
}

func (d *decoder) memoryArray(t *format.ArrayType, start int, seen []int) (format.Result, error) {
	var length int
	var derr format.DecodingError
	first := start
	if t.Kind == format.ArrayDynamic {
		var w []byte
		if w, derr = d.memoryWord(start); derr == nil {
			length, derr = lengthValue(w)
		}
		first += WordSize
	} else {
		length, derr = staticLength(t)
	}
	if derr != nil {
		return format.NewErrorResult(t, derr), nil
	}
	seen = visit(seen, start)
	base := format.SpecifyLocation(t.BaseType, format.LocationMemory)
	values := make([]format.Result, length)
	for i := 0; i < length; i++ {
		v, err := d.memoryElement(base, first+i*WordSize, seen)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return &format.ArrayValue{Type: t, Value: values}, nil
}

// memoryStruct decodes a struct whose members take one word each. Mappings
// are left out of structs in memory.
func (d *decoder) memoryStruct(t *format.StructType, start int, seen []int) (format.Result, error) {
	stored, err := d.table().FullStruct(t)
	if err != nil {
		return format.NewErrorResult(t, &format.UserDefinedTypeNotFoundError{Type: t}), nil
	}
	seen = visit(seen, start)
	values := make([]format.NameValuePair, 0, len(stored.MemberTypes))
	pos := start
	for _, m := range stored.MemberTypes {
		if m.Type.TypeClass() == format.ClassMapping {
			continue
		}
		v, err := d.memoryElement(format.SpecifyLocation(m.Type, format.LocationMemory), pos, seen)
		if err != nil {
			return nil, err
		}
		values = append(values, format.NameValuePair{Name: m.Name, Value: v})
		pos += WordSize
	}
	return &format.StructValue{Type: t, Value: values}, nil
}
