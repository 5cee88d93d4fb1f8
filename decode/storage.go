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
	"github.com/holiman/uint256"
	"github.com/icon-project/btp2/common/errors"

	"github.com/icon-project/evm-codec/conversion"
	"github.com/icon-project/evm-codec/format"
	"github.com/icon-project/evm-codec/storage"
)

func (d *decoder) allocator() (*storage.Allocator, error) {
	if d.info.Allocator == nil {
		return nil, errors.New("no storage allocator")
	}
	return d.info.Allocator, nil
}

func (d *decoder) readWord(slot *storage.Slot) ([]byte, format.DecodingError) {
	rerr := func(msg string) format.DecodingError {
		return &format.ReadErrorStorage{Slot: slot.String(), From: 0, To: storage.LastIndex, Err: msg}
	}
	if d.state.Storage == nil {
		return nil, rerr("no storage")
	}
	addr, err := slot.Address()
	if err != nil {
		return nil, rerr(err.Error())
	}
	w, err := d.state.Storage.StorageAt(addr)
	if err != nil {
		return nil, rerr(err.Error())
	}
	if len(w) != storage.WordSize {
		return nil, rerr("invalid word size")
	}
	return w, nil
}

// readStorage returns the bytes between from and to which must be in the
// same word.
func (d *decoder) readStorage(from, to storage.Position) ([]byte, format.DecodingError) {
	if !from.Slot.Equal(to.Slot) || from.Index < 0 || to.Index > storage.LastIndex || from.Index > to.Index {
		return nil, &format.ReadErrorStorage{Slot: from.Slot.String(), From: from.Index, To: to.Index,
			Err: "invalid range"}
	}
	w, derr := d.readWord(from.Slot)
	if derr != nil {
		if re, ok := derr.(*format.ReadErrorStorage); ok {
			re.From, re.To = from.Index, to.Index
		}
		return nil, derr
	}
	return w[from.Index : to.Index+1], nil
}

func (d *decoder) storage(t format.Type, r *storage.Range) (format.Result, error) {
	switch x := t.(type) {
	case *format.StringType:
		return d.storageBytes(t, r.From.Slot), nil
	case *format.BytesType:
		if x.Kind == format.BytesDynamic {
			return d.storageBytes(t, r.From.Slot), nil
		}
	case *format.ArrayType:
		return d.storageArray(x, r)
	case *format.StructType:
		return d.storageStruct(x, r)
	case *format.MappingType:
		return d.storageMapping(x, r)
	}
	raw, derr := d.readStorage(r.From, r.To)
	if derr != nil {
		return format.NewErrorResult(t, derr), nil
	}
	return d.basic(t, raw, paddingExact)
}

// storageBytes decodes a string or bytes kept inline in its slot when
// shorter than a word, otherwise at keccak(slot).
func (d *decoder) storageBytes(t format.Type, slot *storage.Slot) format.Result {
	w, derr := d.readWord(slot)
	if derr != nil {
		return format.NewErrorResult(t, derr)
	}
	last := w[storage.LastIndex]
	if last&1 == 0 {
		length := int(last / 2)
		if length > storage.LastIndex {
			return format.NewErrorResult(t, &format.OverlongArrayOrStringError{
				LengthAsBig: conversion.ToBig([]byte{last / 2}),
			})
		}
		return bytesOrString(t, w[:length])
	}
	n := conversion.ToBig(w)
	n.Rsh(n, 1)
	if n.Cmp(bigMaxLength) > 0 {
		return format.NewErrorResult(t, &format.OverlongArrayOrStringError{LengthAsBig: n})
	}
	length := int(n.Int64())
	data := make([]byte, 0, length+storage.WordSize)
	first := storage.ArrayDataSlot(slot)
	for i := 0; len(data) < length; i++ {
		w, derr = d.readWord(first.Add(uint64(i)))
		if derr != nil {
			return format.NewErrorResult(t, derr)
		}
		data = append(data, w...)
	}
	return bytesOrString(t, data[:length])
}

func (d *decoder) storageArray(t *format.ArrayType, r *storage.Range) (format.Result, error) {
	a, err := d.allocator()
	if err != nil {
		return nil, err
	}
	var length int
	var derr format.DecodingError
	if t.Kind == format.ArrayDynamic {
		var w []byte
		if w, derr = d.readWord(r.From.Slot); derr == nil {
			length, derr = lengthValue(w)
		}
	} else {
		length, derr = staticLength(t)
	}
	if derr != nil {
		return format.NewErrorResult(t, derr), nil
	}
	base := format.SpecifyLocation(t.BaseType, format.LocationStorage)
	values := make([]format.Result, length)
	for i := 0; i < length; i++ {
		er, err := a.ArrayElementRange(t, r.From.Slot, uint256.NewInt(uint64(i)))
		if err != nil {
			return nil, err
		}
		if values[i], err = d.storage(base, er); err != nil {
			return nil, err
		}
	}
	return &format.ArrayValue{Type: t, Value: values}, nil
}

func (d *decoder) storageStruct(t *format.StructType, r *storage.Range) (format.Result, error) {
	stored, err := d.table().FullStruct(t)
	if err != nil {
		return format.NewErrorResult(t, &format.UserDefinedTypeNotFoundError{Type: t}), nil
	}
	members := r.Members
	if members == nil {
		a, err := d.allocator()
		if err != nil {
			return nil, err
		}
		if members, err = a.AllocateStruct(t.ID, r.From.Slot); err != nil {
			return nil, err
		}
	}
	if len(members.Ranges) != len(stored.MemberTypes) {
		return nil, errors.Errorf("member count mismatch struct:%s allocated:%d declared:%d",
			stored.TypeName, len(members.Ranges), len(stored.MemberTypes))
	}
	values := make([]format.NameValuePair, len(stored.MemberTypes))
	for i, m := range stored.MemberTypes {
		v, err := d.storage(format.SpecifyLocation(m.Type, format.LocationStorage), members.Ranges[i])
		if err != nil {
			return nil, err
		}
		values[i] = format.NameValuePair{Name: m.Name, Value: v}
	}
	return &format.StructValue{Type: t, Value: values}, nil
}

// storageMapping decodes the entries of the watched keys of the mapping.
func (d *decoder) storageMapping(t *format.MappingType, r *storage.Range) (format.Result, error) {
	a, err := d.allocator()
	if err != nil {
		return nil, err
	}
	value := format.SpecifyLocation(t.ValueType, format.LocationStorage)
	pairs := make([]format.KeyValuePair, 0)
	for _, k := range d.info.MappingKeys {
		if k == nil || k.Key == nil || !k.Path.Equal(r.From.Slot) {
			continue
		}
		vr, err := a.MappingValueRange(t, r.From.Slot, k.Key)
		if err != nil {
			return nil, err
		}
		v, err := d.storage(value, vr)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, format.KeyValuePair{Key: k.Key, Value: v})
	}
	return &format.MappingValue{Type: t, Value: pairs}, nil
}
