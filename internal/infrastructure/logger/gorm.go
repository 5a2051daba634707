package logger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

const defaultSlowQueryThreshold = 200 * time.Millisecond

// GormLogger adapts zap to GORM's logger interface so query logs share the
// application's encoder and carry the request context fields.
type GormLogger struct {
	log              *zap.Logger
	level            gormlogger.LogLevel
	slowThreshold    time.Duration
	skipNotFoundErrs bool
}

// NewGormLogger wraps a zap logger for GORM. Record-not-found errors are
// skipped: repositories translate them to nil results, they are not faults.
func NewGormLogger(log *zap.Logger, level gormlogger.LogLevel) *GormLogger {
	return &GormLogger{
		log:              log.Named("gorm"),
		level:            level,
		slowThreshold:    defaultSlowQueryThreshold,
		skipNotFoundErrs: true,
	}
}

// SetSlowThreshold overrides the slow query warning threshold
func (l *GormLogger) SetSlowThreshold(d time.Duration) {
	l.slowThreshold = d
}

// LogMode implements gormlogger.Interface
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

// Info implements gormlogger.Interface
func (l *GormLogger) Info(_ context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		l.log.Sugar().Infof(msg, data...)
	}
}

// Warn implements gormlogger.Interface
func (l *GormLogger) Warn(_ context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		l.log.Sugar().Warnf(msg, data...)
	}
}

// Error implements gormlogger.Interface
func (l *GormLogger) Error(_ context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		l.log.Sugar().Errorf(msg, data...)
	}
}

// Trace logs each statement with its duration and row count. Errors log at
// error level, slow statements at warn, the rest at debug.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	}
	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if companyID := GetCompanyID(ctx); companyID != "" {
		fields = append(fields, zap.String("company_id", companyID))
	}

	switch {
	case err != nil && l.level >= gormlogger.Error:
		if l.skipNotFoundErrs && errors.Is(err, gormlogger.ErrRecordNotFound) {
			return
		}
		l.log.Error("sql error", append(fields, zap.Error(err))...)

	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		l.log.Warn("slow sql", append(fields, zap.Duration("threshold", l.slowThreshold))...)

	case l.level >= gormlogger.Info:
		l.log.Debug("sql query", fields...)
	}
}

// MapGormLogLevel maps the application log level to GORM's levels
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "warn":
		return gormlogger.Warn
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
