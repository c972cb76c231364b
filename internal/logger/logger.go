package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// L is the process-wide logger. It is replaced by Init once configuration
// has been loaded; until then it logs at info level.
var L *zap.SugaredLogger

func init() {
	L, _ = New("info")
	if L == nil {
		L = zap.NewNop().Sugar()
	}
}

// New builds a sugared logger for level ("debug", "info", "warn", "error").
// Debug switches to zap's human readable development encoder.
func New(level string) (*zap.SugaredLogger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	if lvl == zapcore.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true

	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return z.Sugar(), nil
}

// Init replaces L with a logger at level.
func Init(level string) error {
	l, err := New(level)
	if err != nil {
		return err
	}
	L = l
	return nil
}

// Sync flushes buffered log entries.
func Sync() {
	_ = L.Sync()
}
