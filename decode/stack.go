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
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/icon-project/evm-codec/format"
	"github.com/icon-project/evm-codec/storage"
)

func bigInt(n int) *big.Int {
	return big.NewInt(int64(n))
}

func (d *decoder) stackWords(from, to int) ([][]byte, format.DecodingError) {
	if from < 0 || from > to || to >= len(d.state.Stack) {
		return nil, &format.ReadErrorStack{From: from, To: to}
	}
	words := make([][]byte, 0, to-from+1)
	for _, w := range d.state.Stack[from : to+1] {
		words = append(words, common.LeftPadBytes(w, WordSize))
	}
	return words, nil
}

func (d *decoder) stack(t format.Type, p *StackPointer) (format.Result, error) {
	words, derr := d.stackWords(p.From, p.To)
	if derr != nil {
		return format.NewErrorResult(t, derr), nil
	}
	return d.stackValue(t, words, paddingPermissive)
}

// stackLiteral decodes a constant pushed on the stack; its padding is
// checked strictly.
func (d *decoder) stackLiteral(t format.Type, literal []byte) (format.Result, error) {
	var words [][]byte
	for len(literal) > WordSize {
		words = append(words, literal[:WordSize])
		literal = literal[WordSize:]
	}
	words = append(words, common.LeftPadBytes(literal, WordSize))
	return d.stackValue(t, words, paddingStrict)
}

func (d *decoder) stackValue(t format.Type, words [][]byte, mode paddingMode) (format.Result, error) {
	if format.IsReferenceType(t) {
		return d.stackReference(t, words)
	}
	if ft, ok := t.(*format.FunctionType); ok && ft.Visibility == format.VisibilityExternal && len(words) == 2 {
		addr, aok := leftValue(words[0], common.AddressLength, mode, false)
		sel, sok := leftValue(words[1], 4, mode, false)
		if !aok || !sok {
			return format.NewErrorResult(t, &format.FunctionExternalStackPaddingError{
				RawAddress: toHex(words[0]), RawSelector: toHex(words[1]),
			}), nil
		}
		return d.externalFunction(ft, addr, sel), nil
	}
	return d.basic(t, words[len(words)-1], mode)
}

// stackReference follows a stack word pointing into the location of t.
// Calldata pointers to dynamic types take a second word with the length.
func (d *decoder) stackReference(t format.Type, words [][]byte) (format.Result, error) {
	loc := format.LocationNone
	if rt, ok := t.(format.ReferenceType); ok {
		loc = rt.DataLocation()
	}
	switch loc {
	case format.LocationMemory:
		p, derr := pointerValue(words[0])
		if derr != nil {
			return format.NewErrorResult(t, derr), nil
		}
		return d.memory(t, p, nil)
	case format.LocationStorage:
		slot := &storage.Slot{Offset: new(uint256.Int).SetBytes(words[0])}
		r := &storage.Range{
			ID:   -1,
			Type: t,
			From: storage.Position{Slot: slot, Index: 0},
			To:   storage.Position{Slot: slot, Index: storage.LastIndex},
		}
		return d.storage(t, r)
	case format.LocationCalldata:
		p, derr := pointerValue(words[0])
		if derr != nil {
			return format.NewErrorResult(t, derr), nil
		}
		if isBytesOrString(t) || isDynamicArray(t) {
			if len(words) < 2 {
				return format.NewErrorResult(t, &format.ReadErrorStack{From: 0, To: 1}), nil
			}
			length, derr := lengthValue(words[1])
			if derr != nil {
				return format.NewErrorResult(t, derr), nil
			}
			return d.abiDynamic(t, PointerCalldata, p, length)
		}
		_, dynamic, err := ABISize(t, d.table())
		if err != nil {
			if _, ok := err.(*format.UnknownUserDefinedTypeError); ok {
				return format.NewErrorResult(t, &format.UserDefinedTypeNotFoundError{Type: t}), nil
			}
			return nil, err
		}
		if dynamic {
			return d.abiDynamic(t, PointerCalldata, p, -1)
		}
		return d.abiStatic(t, PointerCalldata, p)
	default:
		return nil, format.ErrorCodeUnsupported.Errorf("no location for %s on stack", format.TypeString(t))
	}
}

// topic decodes an indexed event parameter. Reference types are only
// present as their hash.
func (d *decoder) topic(t format.Type, i int) (format.Result, error) {
	if i < 0 || i >= len(d.state.Topics) {
		return format.NewErrorResult(t, &format.ReadErrorBytes{
			Location: string(PointerEventTopic), Start: i * WordSize, Length: WordSize,
		}), nil
	}
	raw := common.LeftPadBytes(d.state.Topics[i], WordSize)
	if format.IsReferenceType(t) || t.TypeClass() == format.ClassTuple {
		return format.NewErrorResult(t, &format.IndexedReferenceTypeError{Type: t, Raw: toHex(raw)}), nil
	}
	return d.basic(t, raw, paddingStrict)
}

var magicMembers = map[format.MagicVariable][]format.NameTypePair{
	format.MagicMessage: {
		{Name: "data", Type: &format.BytesType{Kind: format.BytesDynamic, Location: format.LocationCalldata}},
		{Name: "sender", Type: &format.AddressType{Kind: format.AddressSpecific}},
		{Name: "sig", Type: &format.BytesType{Kind: format.BytesStatic, Length: 4}},
		{Name: "value", Type: &format.UintType{Bits: 256}},
	},
	format.MagicTransaction: {
		{Name: "origin", Type: &format.AddressType{Kind: format.AddressSpecific}},
		{Name: "gasprice", Type: &format.UintType{Bits: 256}},
	},
	format.MagicBlock: {
		{Name: "coinbase", Type: &format.AddressType{Kind: format.AddressSpecific, Payable: true}},
		{Name: "difficulty", Type: &format.UintType{Bits: 256}},
		{Name: "gaslimit", Type: &format.UintType{Bits: 256}},
		{Name: "number", Type: &format.UintType{Bits: 256}},
		{Name: "timestamp", Type: &format.UintType{Bits: 256}},
		{Name: "chainid", Type: &format.UintType{Bits: 256}},
	},
}

// MagicMemberTypes returns the members of a builtin variable.
func MagicMemberTypes(v format.MagicVariable) []format.NameTypePair {
	return magicMembers[v]
}

// special decodes builtin variables from State.Specials; msg.data and
// msg.sig come from the calldata.
func (d *decoder) special(t format.Type, name string) (format.Result, error) {
	mt, ok := t.(*format.MagicType)
	if !ok {
		return d.specialWord(t, name)
	}
	values := make(map[string]format.Result)
	for _, m := range magicMembers[mt.Variable] {
		switch m.Name {
		case "data":
			values[m.Name] = bytesOrString(m.Type, d.state.Calldata)
		case "sig":
			sig, derr := readBytes(PointerCalldata, d.state.Calldata, 0, 4)
			if derr != nil {
				values[m.Name] = format.NewErrorResult(m.Type, derr)
				continue
			}
			values[m.Name] = &format.BytesValue{Type: m.Type.(*format.BytesType), Value: copyBytes(sig)}
		default:
			v, err := d.specialWord(m.Type, m.Name)
			if err != nil {
				return nil, err
			}
			values[m.Name] = v
		}
	}
	return &format.MagicValue{Type: mt, Value: values}, nil
}

func (d *decoder) specialWord(t format.Type, name string) (format.Result, error) {
	w, ok := d.state.Specials[name]
	if !ok {
		return format.NewErrorResult(t, &format.ReadErrorBytes{
			Location: string(PointerSpecial) + ":" + name, Length: WordSize,
		}), nil
	}
	return d.basic(t, common.LeftPadBytes(w, WordSize), paddingStrict)
}
