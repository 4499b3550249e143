package logger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// SQLLogger routes gorm statement logs through zap. Each statement carries its
// verb and target table, and row-locking reads are flagged with locking=true
// so contention on document and bank account rows is visible in slow logs.
type SQLLogger struct {
	base          *zap.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
	logNotFound   bool
}

// SQLLoggerOption configures an SQLLogger
type SQLLoggerOption func(*SQLLogger)

// WithSlowThreshold sets the duration above which statements log at warn.
// Zero disables slow statement reporting.
func WithSlowThreshold(threshold time.Duration) SQLLoggerOption {
	return func(l *SQLLogger) {
		l.slowThreshold = threshold
	}
}

// WithRecordNotFound makes lookups that find no row log as errors
func WithRecordNotFound(enabled bool) SQLLoggerOption {
	return func(l *SQLLogger) {
		l.logNotFound = enabled
	}
}

func NewSQLLogger(base *zap.Logger, level gormlogger.LogLevel, opts ...SQLLoggerOption) *SQLLogger {
	l := &SQLLogger{
		base:          base.Named("sql"),
		level:         level,
		slowThreshold: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LogMode returns a copy at the given level
func (l *SQLLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *SQLLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		WithTraceContext(ctx, l.base).Info(fmt.Sprintf(msg, data...))
	}
}

func (l *SQLLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		WithTraceContext(ctx, l.base).Warn(fmt.Sprintf(msg, data...))
	}
}

func (l *SQLLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		WithTraceContext(ctx, l.base).Error(fmt.Sprintf(msg, data...))
	}
}

// Trace logs one executed statement
func (l *SQLLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	failed := err != nil && (l.logNotFound || !errors.Is(err, gormlogger.ErrRecordNotFound))
	slow := l.slowThreshold > 0 && elapsed > l.slowThreshold

	switch {
	case failed && l.level >= gormlogger.Error:
	case slow && l.level >= gormlogger.Warn:
	case !failed && l.level >= gormlogger.Info:
	default:
		return
	}

	sql, rows := fc()
	stmt := classifyStatement(sql)
	fields := []zap.Field{
		zap.String("verb", stmt.verb),
		zap.String("table", stmt.table),
		zap.Bool("locking", stmt.locking),
		zap.Int64("rows", rows),
		zap.Duration("elapsed", elapsed),
		zap.String("sql", sql),
	}
	log := WithTraceContext(ctx, l.base)

	switch {
	case failed:
		log.Error("sql failed", append(fields, zap.Error(err))...)
	case slow:
		log.Warn("slow sql", append(fields, zap.Duration("threshold", l.slowThreshold))...)
	default:
		log.Debug("sql", fields...)
	}
}

type statementInfo struct {
	verb    string
	table   string
	locking bool
}

// classifyStatement extracts the leading verb and first target table from a
// rendered statement. Unknown shapes yield empty fields.
func classifyStatement(sql string) statementInfo {
	words := strings.Fields(sql)
	if len(words) == 0 {
		return statementInfo{}
	}

	info := statementInfo{verb: strings.ToUpper(words[0])}
	anchor := ""
	switch info.verb {
	case "SELECT", "DELETE":
		anchor = "FROM"
	case "INSERT":
		anchor = "INTO"
	case "UPDATE":
		if len(words) > 1 {
			info.table = unquoteIdent(words[1])
		}
	}
	for i, w := range words {
		upper := strings.ToUpper(w)
		if anchor != "" && info.table == "" && upper == anchor && i+1 < len(words) {
			info.table = unquoteIdent(words[i+1])
		}
		if upper == "FOR" && i+1 < len(words) {
			next := strings.ToUpper(words[i+1])
			if next == "UPDATE" || next == "SHARE" {
				info.locking = true
			}
		}
	}
	return info
}

func unquoteIdent(s string) string {
	s = strings.TrimSuffix(s, ",")
	return strings.Trim(s, "\"`(")
}

// ParseSQLLevel maps a configured level name to gorm's log level.
// "debug" enables per-statement logging; unknown names fall back to warn.
func ParseSQLLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
