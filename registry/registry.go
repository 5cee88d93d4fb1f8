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

package registry

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
	lru "github.com/hashicorp/golang-lru"
	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"
	"gorm.io/gorm"

	"github.com/icon-project/evm-codec/abi"
	"github.com/icon-project/evm-codec/database"
	"github.com/icon-project/evm-codec/format"
)

const (
	TableSignature   = "signature"
	DefaultCacheSize = 1024
)

// Signature is a known canonical signature. Selector is the 4-byte selector
// of functions and errors, or the topic of events, in hex.
type Signature struct {
	database.Model
	Selector string        `json:"selector" gorm:"index;size:66"`
	Kind     abi.EntryType `json:"kind" gorm:"size:16"`
	Text     string        `json:"text" gorm:"size:1024"`
}

func (s *Signature) Entry() (*abi.Entry, error) {
	e, err := abi.ParseSignature(s.Text)
	if err != nil {
		return nil, err
	}
	return e.As(s.Kind)
}

func selectorOf(e *abi.Entry) (string, error) {
	switch e.Type {
	case abi.EntryFunction, abi.EntryError:
		return e.SelectorHex(), nil
	case abi.EntryEvent:
		return e.Topic().Hex(), nil
	default:
		return "", format.ErrorCodeInvalidValue.Errorf("not registrable entry type:%s", e.Type)
	}
}

// Registry resolves selectors of contracts whose ABI is unknown.
type Registry struct {
	r     *database.Repository[Signature]
	cache *lru.Cache
	l     log.Logger
}

func NewRegistry(db *gorm.DB, l log.Logger) (*Registry, error) {
	r, err := database.NewRepository[Signature](db, TableSignature)
	if err != nil {
		return nil, errors.Wrapf(err, "fail to NewRepository err:%s", err.Error())
	}
	c, err := lru.New(DefaultCacheSize)
	if err != nil {
		return nil, err
	}
	return &Registry{
		r:     r,
		cache: c,
		l:     l.WithFields(log.Fields{log.FieldKeyModule: "registry"}),
	}, nil
}

// Register parses text, such as "transfer(address,uint256)", and stores it
// as kind. An empty kind takes the keyword of text, function by default.
func (r *Registry) Register(text string, kind abi.EntryType) (*Signature, bool, error) {
	e, err := abi.ParseSignature(text)
	if err != nil {
		return nil, false, err
	}
	if kind != "" && kind != e.Type {
		if e, err = e.As(kind); err != nil {
			return nil, false, err
		}
	}
	return r.RegisterEntry(e)
}

func (r *Registry) RegisterEntry(e *abi.Entry) (*Signature, bool, error) {
	selector, err := selectorOf(e)
	if err != nil {
		return nil, false, err
	}
	s := &Signature{Selector: selector, Kind: e.Type, Text: e.Signature()}
	saved, err := r.r.SaveIfAbsent(s, "selector = ? AND kind = ? AND text = ?", s.Selector, s.Kind, s.Text)
	if err != nil {
		return nil, false, errors.Wrapf(err, "fail to save signature err:%s", err.Error())
	}
	if saved {
		r.cache.Remove(s.Selector)
		r.l.Debugf("Register %s %s selector:%s", s.Kind, s.Text, s.Selector)
	}
	return s, saved, nil
}

// RegisterABI stores every function, error and event of a, returning the
// number of newly stored signatures.
func (r *Registry) RegisterABI(a abi.ABI) (int, error) {
	n := 0
	for _, e := range a {
		if _, err := selectorOf(e); err != nil {
			continue
		}
		_, saved, err := r.RegisterEntry(e)
		if err != nil {
			return n, err
		}
		if saved {
			n++
		}
	}
	return n, nil
}

// Lookup returns the entries whose selector, or topic for events, is
// selector, oldest first.
func (r *Registry) Lookup(selector []byte) ([]*abi.Entry, error) {
	key := hexutil.Encode(selector)
	if v, ok := r.cache.Get(key); ok {
		return v.([]*abi.Entry), nil
	}
	l, err := r.r.Find("id", "selector = ?", key)
	if err != nil {
		return nil, errors.Wrapf(err, "fail to find selector:%s err:%s", key, err.Error())
	}
	entries := make([]*abi.Entry, 0, len(l))
	for i := range l {
		e, err := l[i].Entry()
		if err != nil {
			r.l.Warnf("invalid stored signature id:%d text:%s err:%v", l[i].ID, l[i].Text, err)
			continue
		}
		entries = append(entries, e)
	}
	r.cache.Add(key, entries)
	return entries, nil
}

func (r *Registry) Signatures(p database.Pageable, kind abi.EntryType) (*database.Page[Signature], error) {
	if kind == "" {
		return r.r.Page(p, nil)
	}
	return r.r.Page(p, "kind = ?", kind)
}
