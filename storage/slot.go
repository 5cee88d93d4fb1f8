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

package storage

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/icon-project/evm-codec/conversion"
	"github.com/icon-project/evm-codec/format"
)

const (
	WordSize  = 32
	LastIndex = WordSize - 1
)

// Slot is a storage word address relative to Path. With Key set, the address
// is keccak(key ++ address(Path)) + Offset; with HashPath it is
// keccak(address(Path)) + Offset, otherwise address(Path) + Offset.
type Slot struct {
	Path     *Slot
	Offset   *uint256.Int
	HashPath bool
	Key      format.Result
}

func NewSlot(offset uint64) *Slot {
	return &Slot{Offset: uint256.NewInt(offset)}
}

func (s *Slot) offset() *uint256.Int {
	if s.Offset == nil {
		return new(uint256.Int)
	}
	return s.Offset
}

// Add returns a copy of s moved n words forward, wrapping modulo 2^256.
func (s *Slot) Add(n uint64) *Slot {
	c := *s
	c.Offset = new(uint256.Int).Add(s.offset(), uint256.NewInt(n))
	return &c
}

func (s *Slot) AddWords(n *uint256.Int) *Slot {
	c := *s
	c.Offset = new(uint256.Int).Add(s.offset(), n)
	return &c
}

func (s *Slot) Address() (common.Hash, error) {
	a, err := s.address()
	if err != nil {
		return common.Hash{}, err
	}
	return a.Bytes32(), nil
}

func (s *Slot) address() (*uint256.Int, error) {
	if s.Path == nil {
		return new(uint256.Int).Set(s.offset()), nil
	}
	p, err := s.Path.address()
	if err != nil {
		return nil, err
	}
	pb := p.Bytes32()
	var base *uint256.Int
	switch {
	case s.Key != nil:
		kb, err := conversion.MappingKeyBytes(s.Key)
		if err != nil {
			return nil, err
		}
		h := conversion.Keccak256(kb, pb[:])
		base = new(uint256.Int).SetBytes(h[:])
	case s.HashPath:
		h := conversion.Keccak256(pb[:])
		base = new(uint256.Int).SetBytes(h[:])
	default:
		base = p
	}
	return new(uint256.Int).Add(base, s.offset()), nil
}

// Equal compares slots structurally rather than by resolved address.
func (s *Slot) Equal(o *Slot) bool {
	if s == nil || o == nil {
		return s == nil && o == nil
	}
	if !s.offset().Eq(o.offset()) || s.HashPath != o.HashPath {
		return false
	}
	if (s.Key == nil) != (o.Key == nil) {
		return false
	}
	if s.Key != nil {
		kb1, err1 := conversion.MappingKeyBytes(s.Key)
		kb2, err2 := conversion.MappingKeyBytes(o.Key)
		if err1 != nil || err2 != nil || !bytes.Equal(kb1, kb2) {
			return false
		}
	}
	return s.Path.Equal(o.Path)
}

func (s *Slot) String() string {
	if s == nil {
		return "<nil>"
	}
	if s.Path == nil {
		return s.offset().Hex()
	}
	p := s.Path.String()
	switch {
	case s.Key != nil:
		kb, _ := conversion.MappingKeyBytes(s.Key)
		p = fmt.Sprintf("keccak(%s,%s)", conversion.ToHexString(kb), p)
	case s.HashPath:
		p = fmt.Sprintf("keccak(%s)", p)
	}
	if s.offset().IsZero() {
		return p
	}
	return p + "+" + s.offset().Hex()
}

type slotJSON struct {
	Path     *Slot         `json:"path,omitempty"`
	Offset   string        `json:"offset"`
	HashPath bool          `json:"hashPath,omitempty"`
	Key      format.Result `json:"key,omitempty"`
	Address  string        `json:"address,omitempty"`
}

func (s *Slot) MarshalJSON() ([]byte, error) {
	j := &slotJSON{
		Path:     s.Path,
		Offset:   s.offset().Hex(),
		HashPath: s.HashPath,
		Key:      s.Key,
	}
	if a, err := s.Address(); err == nil {
		j.Address = a.Hex()
	}
	return json.Marshal(j)
}

// MappingKeySlot returns the slot holding the value of key in the mapping
// at mapSlot.
func MappingKeySlot(mapSlot *Slot, key format.Result) *Slot {
	return &Slot{Path: mapSlot, Key: key, Offset: new(uint256.Int)}
}

// ArrayDataSlot returns the first slot of the elements of a dynamic array
// whose length is kept at arraySlot.
func ArrayDataSlot(arraySlot *Slot) *Slot {
	return &Slot{Path: arraySlot, HashPath: true, Offset: new(uint256.Int)}
}

// Position addresses a byte within a storage word. Index counts from the
// most significant byte.
type Position struct {
	Slot  *Slot `json:"slot"`
	Index int   `json:"index"`
}
