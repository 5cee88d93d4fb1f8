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

package database

import (
	"math"
	"sync"
	"time"

	"gorm.io/gorm"
)

type Model struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Pageable struct {
	// Page 0-indexed
	Page uint `json:"page" query:"page"`
	// Size zero for unlimited
	Size uint `json:"size" query:"size"`
	// Sort for example "FIELD desc,FIELD"
	Sort string `json:"sort,omitempty" query:"sort"`
}

type Page[T any] struct {
	Content       []T      `json:"content"`
	TotalElements int      `json:"total_elements"`
	TotalPages    int      `json:"total_pages"`
	Pageable      Pageable `json:"pageable"`
}

// Repository stores rows of T in the table name. A nil query matches every
// row.
type Repository[T any] struct {
	db   *gorm.DB
	name string
	mtx  sync.Mutex
}

func NewRepository[T any](db *gorm.DB, name string) (*Repository[T], error) {
	if err := db.Table(name).AutoMigrate(new(T)); err != nil {
		return nil, err
	}
	return &Repository[T]{db: db, name: name}, nil
}

func (r *Repository[T]) where(db *gorm.DB, query interface{}, conds ...interface{}) *gorm.DB {
	ret := db.Table(r.name)
	if query != nil {
		ret = ret.Where(query, conds...)
	}
	return ret
}

func filterError(err error) error {
	if err != nil && err != gorm.ErrRecordNotFound {
		return err
	}
	return nil
}

func (r *Repository[T]) Save(v *T) error {
	return r.db.Table(r.name).Save(v).Error
}

// SaveIfAbsent saves v unless a row matches query, and reports whether v
// was saved.
func (r *Repository[T]) SaveIfAbsent(v *T, query interface{}, conds ...interface{}) (saved bool, err error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	err = r.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := r.where(tx, query, conds...).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		saved = true
		return tx.Table(r.name).Save(v).Error
	})
	return
}

func (r *Repository[T]) Delete(query interface{}, conds ...interface{}) error {
	return r.db.Table(r.name).Delete(query, conds...).Error
}

func (r *Repository[T]) Exists(query interface{}, conds ...interface{}) (bool, error) {
	count, err := r.Count(query, conds...)
	return count > 0, err
}

func (r *Repository[T]) Count(query interface{}, conds ...interface{}) (int64, error) {
	var count int64
	if err := r.where(r.db, query, conds...).Count(&count).Error; err != nil {
		return -1, err
	}
	return count, nil
}

func (r *Repository[T]) FindOne(query interface{}, conds ...interface{}) (*T, error) {
	v := new(T)
	if err := r.where(r.db, query, conds...).First(v).Error; err != nil {
		return nil, filterError(err)
	}
	return v, nil
}

func (r *Repository[T]) Find(order string, query interface{}, conds ...interface{}) ([]T, error) {
	var l []T
	ret := r.where(r.db, query, conds...)
	if len(order) > 0 {
		ret = ret.Order(order)
	}
	if err := ret.Find(&l).Error; err != nil {
		return nil, filterError(err)
	}
	return l, nil
}

func (r *Repository[T]) Page(p Pageable, query interface{}, conds ...interface{}) (*Page[T], error) {
	var count int64
	if err := r.where(r.db, query, conds...).Count(&count).Error; err != nil {
		return nil, err
	}
	ret := r.where(r.db, query, conds...)
	if p.Size > 0 {
		ret = ret.Offset(int(p.Page * p.Size)).Limit(int(p.Size))
	}
	if len(p.Sort) > 0 {
		ret = ret.Order(p.Sort)
	}
	l := make([]T, 0)
	if err := ret.Find(&l).Error; err != nil {
		return nil, filterError(err)
	}
	totalPages := 0
	if count > 0 {
		totalPages = 1
		if p.Size > 0 {
			totalPages = int(math.Ceil(float64(count) / float64(p.Size)))
		}
	}
	return &Page[T]{
		Pageable:      p,
		TotalElements: int(count),
		TotalPages:    totalPages,
		Content:       l,
	}, nil
}
