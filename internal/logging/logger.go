// Package logging wraps go.uber.org/zap the way the teacher's
// internal/common/logger package does: a chainable Logger with a
// process-wide default instance, console text for local development and
// JSON for anything that looks like production.
package logging

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls encoder/level selection. Empty Format triggers
// auto-detection.
type Config struct {
	Level  string // debug|info|warn|error, default info
	Format string // console|json, default auto
}

// Logger is a thin wrapper adding fluent field/context helpers over *zap.Logger.
type Logger struct {
	z *zap.Logger
}

var (
	defaultOnce sync.Once
	defaultLog  *Logger
)

// Default returns the process-wide logger, building it from environment-
// driven defaults on first use.
func Default() *Logger {
	defaultOnce.Do(func() {
		defaultLog = New(Config{})
	})
	return defaultLog
}

// SetDefault overrides the process-wide logger, used once at startup after
// config has been loaded.
func SetDefault(l *Logger) {
	defaultOnce.Do(func() {})
	defaultLog = l
}

// New builds a Logger from Config, applying the teacher's auto-detect
// heuristic when Format is unset: JSON when running under Kubernetes or when
// TERM is unset or "dumb", console text otherwise.
func New(cfg Config) *Logger {
	level := parseLevel(cfg.Level)
	format := cfg.Format
	if format == "" {
		format = detectDefaultFormat()
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.LowercaseLevelEncoder

	var encoder zapcore.Encoder
	if format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	} else {
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level)
	return &Logger{z: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))}
}

func detectDefaultFormat() string {
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return "json"
	}
	if term := os.Getenv("TERM"); term == "" || term == "dumb" {
		return "json"
	}
	return "console"
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{z: l.z.With(fields...)}
}

func (l *Logger) WithComponent(name string) *Logger {
	return l.With(zap.String("component", name))
}

func (l *Logger) WithError(err error) *Logger {
	return l.With(zap.Error(err))
}

func (l *Logger) Debug(msg string, fields ...zap.Field) { l.z.Debug(msg, fields...) }
func (l *Logger) Info(msg string, fields ...zap.Field)  { l.z.Info(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...zap.Field)  { l.z.Warn(msg, fields...) }
func (l *Logger) Error(msg string, fields ...zap.Field) { l.z.Error(msg, fields...) }

// Sync flushes buffered log entries; call before process exit.
func (l *Logger) Sync() error { return l.z.Sync() }

// Raw exposes the underlying *zap.Logger for call sites that want zap's
// typed field constructors directly.
func (l *Logger) Raw() *zap.Logger { return l.z }
