package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// QueryLogger routes GORM's log output to slog. Query errors and slow queries
// are reported at Warn level or above; every statement is only reported at
// Info level.
type QueryLogger struct {
	log   *slog.Logger
	level logger.LogLevel
	slow  time.Duration
}

// NewGormLogger returns a QueryLogger at Warn level.
func NewGormLogger(l *slog.Logger) *QueryLogger {
	return &QueryLogger{log: l, level: logger.Warn, slow: slowQueryThreshold}
}

// LogMode returns a copy of the logger at the given level.
func (q *QueryLogger) LogMode(level logger.LogLevel) logger.Interface {
	c := *q
	c.level = level
	return &c
}

func (q *QueryLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	q.printf(ctx, logger.Info, slog.LevelInfo, msg, data)
}

func (q *QueryLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	q.printf(ctx, logger.Warn, slog.LevelWarn, msg, data)
}

func (q *QueryLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	q.printf(ctx, logger.Error, slog.LevelError, msg, data)
}

func (q *QueryLogger) printf(ctx context.Context, min logger.LogLevel, lvl slog.Level, msg string, data []interface{}) {
	if q.level >= min {
		q.log.Log(ctx, lvl, fmt.Sprintf(msg, data...))
	}
}

// Trace reports one executed statement. gorm.ErrRecordNotFound is an
// expected outcome for lookups and is never logged as an error.
func (q *QueryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if q.level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	slow := q.slow > 0 && elapsed > q.slow

	var (
		lvl slog.Level
		msg string
	)
	switch {
	case failed && q.level >= logger.Error:
		lvl, msg = slog.LevelError, "GORM query error"
	case slow && q.level >= logger.Warn:
		lvl, msg = slog.LevelWarn, "GORM slow query"
	case q.level >= logger.Info:
		lvl, msg = slog.LevelInfo, "GORM query"
	default:
		return
	}

	sql, rows := fc()
	attrs := []slog.Attr{
		slog.String("sql", sql),
		slog.Int64("rows", rows),
		slog.Duration("elapsed", elapsed),
	}
	if failed {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	q.log.LogAttrs(ctx, lvl, msg, attrs...)
}
