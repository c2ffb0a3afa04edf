package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const defaultSlowQueryThreshold = 200 * time.Millisecond

// queryLogger sends GORM's statement log through the service logger so query
// failures and slow statements carry the request's context fields.
type queryLogger struct {
	logg          *logger.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

func newQueryLogger(logg *logger.Logger, level string, slow time.Duration) *queryLogger {
	if slow <= 0 {
		slow = defaultSlowQueryThreshold
	}
	return &queryLogger{logg: logg, level: parseQueryLogLevel(level), slowThreshold: slow}
}

// parseQueryLogLevel maps silent|error|warn|info; anything else is warn.
func parseQueryLogLevel(value string) gormlogger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

func (q *queryLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *q
	clone.level = level
	return &clone
}

func (q *queryLogger) Info(ctx context.Context, msg string, args ...any) {
	if q.level >= gormlogger.Info {
		q.logg.Info(ctx, fmt.Sprintf(msg, args...))
	}
}

func (q *queryLogger) Warn(ctx context.Context, msg string, args ...any) {
	if q.level >= gormlogger.Warn {
		q.logg.Warn(ctx, fmt.Sprintf(msg, args...))
	}
}

func (q *queryLogger) Error(ctx context.Context, msg string, args ...any) {
	if q.level >= gormlogger.Error {
		q.logg.Error(ctx, fmt.Sprintf(msg, args...), nil)
	}
}

// Trace logs failed statements at error, slow ones at warn, and everything
// else at debug when the level is info. Missing rows are not failures.
func (q *queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if q.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	slow := elapsed > q.slowThreshold

	switch {
	case failed && q.level >= gormlogger.Error:
		q.logg.Error(q.statementContext(ctx, fc, elapsed), "db.query.failed", err)
	case slow && q.level >= gormlogger.Warn:
		q.logg.Warn(q.logg.WithField(q.statementContext(ctx, fc, elapsed), "slow_threshold_ms", q.slowThreshold.Milliseconds()), "db.query.slow")
	case q.level >= gormlogger.Info:
		q.logg.Debug(q.statementContext(ctx, fc, elapsed), "db.query")
	}
}

func (q *queryLogger) statementContext(ctx context.Context, fc func() (string, int64), elapsed time.Duration) context.Context {
	sql, rows := fc()
	return q.logg.WithFields(ctx, map[string]any{
		"sql":        sql,
		"rows":       rows,
		"elapsed_ms": float64(elapsed.Microseconds()) / 1000,
	})
}
