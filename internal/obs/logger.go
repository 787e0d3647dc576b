// Package obs builds the process-wide structured logger.
package obs

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a *zap.Logger from a RUST_LOG-style level string
// ("trace", "debug", "info", "warn", "error"). json selects JSON encoding
// for production deployments; console encoding is used otherwise.
func NewLogger(level string, json bool) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "trace", "debug":
		zapLevel = zapcore.DebugLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	if !json {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	return cfg.Build()
}

// Nop returns a no-op logger, used by components under test that don't
// construct one via NewLogger.
func Nop() *zap.Logger { return zap.NewNop() }
