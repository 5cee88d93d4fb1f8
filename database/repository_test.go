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
	"fmt"
	"testing"

	"github.com/icon-project/btp2/common/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	dbConfig = Config{
		Driver: DriverSQLite,
		DBName: ":memory:",
	}
)

type Entry struct {
	Model
	Key   string `gorm:"index"`
	Value string
}

func Test_DSN(t *testing.T) {
	dsn, err := Config{Driver: DriverMysql, User: "u", Password: "p", Host: "h", Port: 3306, DBName: "d"}.DSN()
	assert.NoError(t, err)
	assert.Equal(t, "u:p@tcp(h:3306)/d?charset=utf8mb4&parseTime=True", dsn)

	dsn, err = Config{Driver: DriverSQLite, DBName: "a.db", User: "u", Password: "p"}.DSN()
	assert.NoError(t, err)
	assert.Equal(t, "file:a.db?_auth&_auth_user=u&_auth_pass=p", dsn)

	_, err = Config{Driver: "oracle"}.DSN()
	assert.Error(t, err)
	_, err = OpenDatabase(Config{Driver: "oracle"}, log.GlobalLogger())
	assert.Error(t, err)
}

func Test_Repository(t *testing.T) {
	db, err := OpenDatabase(dbConfig, log.GlobalLogger())
	require.NoError(t, err)
	r, err := NewRepository[Entry](db, "entry")
	require.NoError(t, err)

	count, err := r.Count(nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), count)

	var l []*Entry
	for i := 0; i < 3; i++ {
		e := &Entry{Key: fmt.Sprintf("key_%d", i), Value: fmt.Sprintf("value_%d", i)}
		saved, err := r.SaveIfAbsent(e, "key = ?", e.Key)
		assert.NoError(t, err)
		assert.True(t, saved)
		assert.True(t, e.ID > 0)
		l = append(l, e)
	}
	saved, err := r.SaveIfAbsent(&Entry{Key: "key_0"}, "key = ?", "key_0")
	assert.NoError(t, err)
	assert.False(t, saved)

	found, err := r.FindOne(&Entry{Key: "key_1"})
	assert.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "value_1", found.Value)

	found, err = r.FindOne("key = ?", "missing")
	assert.NoError(t, err)
	assert.Nil(t, found)

	rl, err := r.Find("key desc", nil)
	assert.NoError(t, err)
	require.Len(t, rl, 3)
	assert.Equal(t, "key_2", rl[0].Key)

	page, err := r.Page(Pageable{Page: 1, Size: 2, Sort: "key"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, 3, page.TotalElements)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Content, 1)
	assert.Equal(t, "key_2", page.Content[0].Key)

	l[0].Value = "changed"
	assert.NoError(t, r.Save(l[0]))
	found, err = r.FindOne("key = ?", "key_0")
	assert.NoError(t, err)
	assert.Equal(t, "changed", found.Value)

	for _, e := range l {
		assert.NoError(t, r.Delete(e))
		exists, err := r.Exists("key = ?", e.Key)
		assert.NoError(t, err)
		assert.False(t, exists)
	}
}
