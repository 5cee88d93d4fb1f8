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
	"context"
	"errors"
	"time"

	"github.com/icon-project/btp2/common/log"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DefaultLogSlowThreshold = time.Millisecond * 200
)

// databaseLogger bridges gorm to a btp2 logger. Its level is kept apart from
// the wrapped logger so LogMode never changes the level of a shared logger.
type databaseLogger struct {
	l             log.Logger
	level         log.Level
	slowThreshold time.Duration
}

func newDatabaseLogger(cfg Config, l log.Logger) (*databaseLogger, error) {
	dl := &databaseLogger{
		l:             l.WithFields(log.Fields{log.FieldKeyModule: "database", "driver": cfg.Driver}),
		level:         log.WarnLevel,
		slowThreshold: DefaultLogSlowThreshold,
	}
	if cfg.LogLevel != "" {
		lv, err := log.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		dl.level = lv
	}
	if cfg.SlowThreshold > 0 {
		dl.slowThreshold = time.Duration(cfg.SlowThreshold) * time.Millisecond
	}
	return dl, nil
}

func levelOf(level logger.LogLevel) log.Level {
	switch level {
	case logger.Silent:
		return log.PanicLevel
	case logger.Error:
		return log.ErrorLevel
	case logger.Warn:
		return log.WarnLevel
	case logger.Info:
		return log.InfoLevel
	default:
		return log.TraceLevel
	}
}

func (l *databaseLogger) enabled(lv log.Level) bool {
	return l.level > log.PanicLevel && l.level >= lv
}

func (l *databaseLogger) LogMode(level logger.LogLevel) logger.Interface {
	c := *l
	c.level = levelOf(level)
	return &c
}

func (l *databaseLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.enabled(log.InfoLevel) {
		l.l.Logf(log.InfoLevel, msg, data...)
	}
}

func (l *databaseLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.enabled(log.WarnLevel) {
		l.l.Logf(log.WarnLevel, msg, data...)
	}
}

func (l *databaseLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.enabled(log.ErrorLevel) {
		l.l.Logf(log.ErrorLevel, msg, data...)
	}
}

// traceLevel returns the level a finished statement is logged at. A missing
// record is a regular miss for signature lookups, so it is only traced.
func (l *databaseLogger) traceLevel(elapsed time.Duration, err error) log.Level {
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return log.ErrorLevel
	case elapsed > l.slowThreshold:
		return log.WarnLevel
	default:
		return log.TraceLevel
	}
}

func (l *databaseLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	lv := l.traceLevel(elapsed, err)
	if !l.enabled(lv) {
		return
	}
	sql, rows := fc()
	ms := float64(elapsed.Nanoseconds()) / 1e6
	switch {
	case lv == log.ErrorLevel:
		l.l.Logf(lv, "err:%s [%.3fms] [rows:%v] %s", err, ms, rows, sql)
	case lv == log.WarnLevel:
		l.l.Logf(lv, "slow sql >= %v [%.3fms] [rows:%v] %s", l.slowThreshold, ms, rows, sql)
	case err != nil:
		l.l.Logf(lv, "not found [%.3fms] %s", ms, sql)
	default:
		l.l.Logf(lv, "[%.3fms] [rows:%v] %s", ms, rows, sql)
	}
}
