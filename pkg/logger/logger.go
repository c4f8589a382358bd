// Package logger is a thin wrapper around zap that gives every component a
// named, structured logger without importing zap directly.
package logger

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Field is a structured logging field.
type Field = zap.Field

// Config controls logger construction.
type Config struct {
	// Level is one of "debug", "info", "warn" or "error" (default: "info")
	Level string

	// Format is "json" or "console" (default: "console")
	Format string

	// Output is a file path to log to instead of stderr. The file is
	// rotated once it reaches MaxSizeMB.
	Output string

	// MaxSizeMB is the rotation size for Output (default: 32)
	MaxSizeMB int
}

// Logger is a named structured logger.
type Logger struct {
	zl *zap.Logger
}

// New creates a logger writing to stderr, or to cfg.Output when set.
func New(cfg Config) (*Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var zc zap.Config
	switch strings.ToLower(cfg.Format) {
	case "json":
		zc = zap.NewProductionConfig()
	case "", "console":
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.DisableStacktrace = level > zapcore.DebugLevel
	if cfg.Output != "" {
		return newFileLogger(zc, cfg), nil
	}

	zl, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return &Logger{zl: zl}, nil
}

func newFileLogger(zc zap.Config, cfg Config) *Logger {
	maxSize := cfg.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 32
	}
	w := &lumberjack.Logger{
		Filename:   cfg.Output,
		MaxSize:    maxSize, // MB
		MaxBackups: 1,
	}

	// No color escapes in files
	if zc.EncoderConfig.EncodeLevel != nil {
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	var enc zapcore.Encoder
	if zc.Encoding == "json" {
		enc = zapcore.NewJSONEncoder(zc.EncoderConfig)
	} else {
		enc = zapcore.NewConsoleEncoder(zc.EncoderConfig)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(w), zc.Level)
	return &Logger{zl: zap.New(core, zap.AddCaller())}
}

// NewNop returns a logger that discards everything. Used by tests.
func NewNop() *Logger {
	return &Logger{zl: zap.NewNop()}
}

// FromZap wraps an existing zap logger (e.g. an observer core in tests).
func FromZap(zl *zap.Logger) *Logger {
	return &Logger{zl: zl}
}

func parseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// Named returns a child logger with the given name appended.
func (l *Logger) Named(name string) *Logger {
	return &Logger{zl: l.zl.Named(name)}
}

// With returns a child logger carrying the given fields.
func (l *Logger) With(fields ...Field) *Logger {
	return &Logger{zl: l.zl.With(fields...)}
}

func (l *Logger) Debug(msg string, fields ...Field) { l.zl.Debug(msg, fields...) }
func (l *Logger) Info(msg string, fields ...Field)  { l.zl.Info(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.zl.Warn(msg, fields...) }
func (l *Logger) Error(msg string, fields ...Field) { l.zl.Error(msg, fields...) }
func (l *Logger) Fatal(msg string, fields ...Field) { l.zl.Fatal(msg, fields...) }

// Sync flushes buffered log entries.
func (l *Logger) Sync() error {
	return l.zl.Sync()
}

// Zap exposes the underlying zap logger.
func (l *Logger) Zap() *zap.Logger {
	return l.zl
}

func String(key, val string) Field                 { return zap.String(key, val) }
func Strings(key string, val []string) Field       { return zap.Strings(key, val) }
func Int(key string, val int) Field                { return zap.Int(key, val) }
func Int64(key string, val int64) Field            { return zap.Int64(key, val) }
func Float64(key string, val float64) Field        { return zap.Float64(key, val) }
func Bool(key string, val bool) Field              { return zap.Bool(key, val) }
func Duration(key string, val time.Duration) Field { return zap.Duration(key, val) }
func Time(key string, val time.Time) Field         { return zap.Time(key, val) }
func Any(key string, val any) Field                { return zap.Any(key, val) }

// Error returns a field for an error under the "error" key.
func Error(err error) Field {
	return zap.Error(err)
}
