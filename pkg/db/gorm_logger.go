package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tapify/tapify-backend/pkg/logger"
)

const defaultSlowQueryThreshold = 200 * time.Millisecond

// GormLogger routes gorm's query log through the service logger so SQL
// errors and slow queries carry the request's context fields.
type GormLogger struct {
	logg          *logger.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

func NewGormLogger(logg *logger.Logger, level gormlogger.LogLevel, slowThreshold time.Duration) *GormLogger {
	if slowThreshold <= 0 {
		slowThreshold = defaultSlowQueryThreshold
	}
	return &GormLogger{logg: logg, level: level, slowThreshold: slowThreshold}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.logg == nil || l.level < gormlogger.Info {
		return
	}
	l.logg.Info(ctx, fmt.Sprintf(msg, data...))
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.logg == nil || l.level < gormlogger.Warn {
		return
	}
	l.logg.Warn(ctx, fmt.Sprintf(msg, data...))
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.logg == nil || l.level < gormlogger.Error {
		return
	}
	l.logg.Error(ctx, "db.error", fmt.Errorf(msg, data...))
}

// Trace logs failed statements at error, slow ones at warn and everything
// else at debug when the level is Info. Record-not-found is not a failure.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.logg == nil || l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	slow := elapsed > l.slowThreshold

	switch {
	case failed && l.level >= gormlogger.Error:
		l.logg.Error(l.fields(ctx, fc, elapsed), "db.query_failed", err)
	case slow && l.level >= gormlogger.Warn:
		l.logg.Warn(l.fields(ctx, fc, elapsed), "db.slow_query")
	case l.level >= gormlogger.Info:
		l.logg.Debug(l.fields(ctx, fc, elapsed), "db.query")
	}
}

func (l *GormLogger) fields(ctx context.Context, fc func() (string, int64), elapsed time.Duration) context.Context {
	sql, rows := fc()
	return l.logg.WithFields(ctx, map[string]any{
		"sql":         sql,
		"rows":        rows,
		"duration_ms": elapsed.Milliseconds(),
	})
}
