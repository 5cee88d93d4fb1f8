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
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"

	"github.com/icon-project/evm-codec/format"
)

const WordSize = 32

var (
	big1 = big.NewInt(1)
)

// ToBig interprets b as an unsigned big-endian integer.
func ToBig(b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}

// ToSignedBig interprets b as a two's-complement big-endian integer of
// len(b)*8 bits.
func ToSignedBig(b []byte) *big.Int {
	n := new(big.Int).SetBytes(b)
	if len(b) > 0 && b[0]&0x80 != 0 {
		n.Sub(n, new(big.Int).Lsh(big1, uint(len(b)*8)))
	}
	return n
}

// ToBytes renders n big-endian in exactly length bytes, using two's
// complement for negative values. Zero length means the minimal length.
func ToBytes(n *big.Int, length int) ([]byte, error) {
	if n.Sign() >= 0 {
		if length == 0 {
			return n.Bytes(), nil
		}
		if n.BitLen() > length*8 {
			return nil, format.ErrorCodeInvalidValue.Errorf(
				"fail ToBytes, %v does not fit in %d bytes", n, length)
		}
		return math.PaddedBigBytes(n, length), nil
	}
	if length == 0 {
		m := new(big.Int).Neg(n)
		m.Sub(m, big1)
		length = m.BitLen()/8 + 1
	}
	limit := new(big.Int).Lsh(big1, uint(length*8-1))
	if n.Cmp(limit.Neg(limit)) < 0 {
		return nil, format.ErrorCodeInvalidValue.Errorf(
			"fail ToBytes, %v does not fit in %d bytes", n, length)
	}
	v := new(big.Int).Add(n, new(big.Int).Lsh(big1, uint(length*8)))
	return math.PaddedBigBytes(v, length), nil
}

func MustToBytes(n *big.Int, length int) []byte {
	b, err := ToBytes(n, length)
	if err != nil {
		log.Panicf("fail to ToBytes err:%v", err)
	}
	return b
}

func ToHexString(b []byte) string {
	return hexutil.Encode(b)
}

func BigToHexString(n *big.Int) string {
	return hexutil.EncodeBig(n)
}

// HexToBytes accepts hex with or without prefix and with odd length.
func HexToBytes(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, err := hexutil.Decode("0x" + s)
	if err != nil {
		return nil, format.ErrorCodeInvalidValue.Wrapf(err, "fail HexToBytes, invalid hex %s", s)
	}
	return b, nil
}

// ToAddress formats the last 20 bytes of b as a checksum address.
func ToAddress(b []byte) string {
	return common.BytesToAddress(b).Hex()
}

func ToChecksumAddress(s string) (string, error) {
	if !common.IsHexAddress(s) {
		return "", format.ErrorCodeInvalidValue.Errorf("fail ToChecksumAddress, invalid address %s", s)
	}
	return common.HexToAddress(s).Hex(), nil
}

func Keccak256(data ...[]byte) common.Hash {
	return crypto.Keccak256Hash(data...)
}

func pow10(places int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(places)), nil)
}

// ToDecimal shifts the decimal point of n left by places.
func ToDecimal(n *big.Int, places int) *big.Rat {
	return new(big.Rat).SetFrac(n, pow10(places))
}

// FromDecimal shifts the decimal point of r right by places, failing when
// the result is not an integer.
func FromDecimal(r *big.Rat, places int) (*big.Int, error) {
	v := new(big.Rat).Mul(r, new(big.Rat).SetInt(pow10(places)))
	if !v.IsInt() {
		return nil, format.ErrorCodeInvalidValue.Errorf(
			"fail FromDecimal, %s has more than %d decimal places", r.RatString(), places)
	}
	return new(big.Int).Set(v.Num()), nil
}

// MappingKeyBytes returns the bytes hashed with the mapping slot to locate
// the value of key: value types are padded to a word, string and bytes keys
// are used unpadded.
func MappingKeyBytes(key format.Result) ([]byte, error) {
	switch v := key.(type) {
	case *format.UintValue:
		return ToBytes(v.Value, WordSize)
	case *format.IntValue:
		return ToBytes(v.Value, WordSize)
	case *format.EnumValue:
		return ToBytes(v.Numeric, WordSize)
	case *format.BoolValue:
		b := make([]byte, WordSize)
		if v.Value {
			b[WordSize-1] = 1
		}
		return b, nil
	case *format.AddressValue:
		return common.LeftPadBytes(common.HexToAddress(v.Address).Bytes(), WordSize), nil
	case *format.ContractValue:
		return common.LeftPadBytes(common.HexToAddress(v.Value.Address).Bytes(), WordSize), nil
	case *format.BytesValue:
		if v.Type.Kind == format.BytesStatic {
			return common.RightPadBytes(v.Value, WordSize), nil
		}
		return v.Value, nil
	case *format.StringValue:
		if v.Malformed {
			return v.Raw, nil
		}
		return []byte(v.Value), nil
	case nil:
		return nil, errors.New("fail MappingKeyBytes, nil key")
	default:
		return nil, format.ErrorCodeInvalidValue.Errorf(
			"fail MappingKeyBytes, invalid key %T", key)
	}
}
