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
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	DriverMysql    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Driver   string `json:"driver"`
	User     string `json:"user,omitempty"`
	Password string `json:"password,omitempty"`
	Host     string `json:"host,omitempty"`
	Port     uint   `json:"port,omitempty"`
	DBName   string `json:"dbname"`

	// LogLevel of SQL statements, warn by default.
	LogLevel string `json:"log_level,omitempty"`
	// SlowThreshold in milliseconds above which a statement is logged as slow.
	SlowThreshold uint `json:"slow_threshold,omitempty"`
}

// DSN returns the data source name of cfg for its driver.
func (cfg Config) DSN() (string, error) {
	switch cfg.Driver {
	case DriverMysql:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName), nil
	case DriverPostgres:
		return fmt.Sprintf("user=%s password=%s host=%s port=%d dbname=%s sslmode=disable",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName), nil
	case DriverSQLite:
		dsn := fmt.Sprintf("file:%s", cfg.DBName)
		if len(cfg.User) > 0 {
			auth := fmt.Sprintf("_auth&_auth_user=%s&_auth_pass=%s", cfg.User, cfg.Password)
			if !strings.Contains(dsn, "?") {
				auth = "?" + auth
			}
			dsn = dsn + auth
		}
		return dsn, nil
	default:
		return "", errors.Errorf("not support db type:%s", cfg.Driver)
	}
}

var zeroDefaultDatetimePrecision = 0

func dialector(cfg Config) (gorm.Dialector, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}
	switch cfg.Driver {
	case DriverMysql:
		return mysql.New(mysql.Config{
			DSN:                      dsn,
			DefaultStringSize:        256,
			DisableDatetimePrecision: true,
			DefaultDatetimePrecision: &zeroDefaultDatetimePrecision,
			DontSupportRenameIndex:   true,
			DontSupportRenameColumn:  true,
		}), nil
	case DriverPostgres:
		return postgres.Open(dsn), nil
	default:
		return sqlite.Open(dsn), nil
	}
}

func OpenDatabase(cfg Config, l log.Logger) (*gorm.DB, error) {
	d, err := dialector(cfg)
	if err != nil {
		return nil, err
	}
	dl, err := newDatabaseLogger(cfg, l)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(d, &gorm.Config{Logger: dl})
	if err != nil {
		return nil, errors.Wrapf(err, "fail to open database driver:%s err:%s", cfg.Driver, err.Error())
	}
	if cfg.Driver == DriverSQLite {
		// in-memory databases are per connection
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}
