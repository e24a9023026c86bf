// Package observability provides structured logging and weapon metrics.
package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/armory/internal/config"
)

// NewLogger creates a structured logger from the given logging configuration.
// Every entry carries the simulation role so server and client logs can be
// told apart when they are interleaved.
//
// Precondition: cfg.Level must be one of "debug", "info", "warn", "error".
// Precondition: cfg.Format must be "json" or "console".
// Postcondition: Returns a configured zap.Logger or a non-nil error.
func NewLogger(cfg config.LoggingConfig, role string) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}

	var zapCfg zap.Config
	switch cfg.Format {
	case "json":
		zapCfg = zap.NewProductionConfig()
	case "console":
		zapCfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if role != "" {
		zapCfg.InitialFields = map[string]interface{}{"role": role}
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}

// WeaponLogger scopes logger to one owner's weapon.
//
// Precondition: logger must be non-nil.
func WeaponLogger(logger *zap.Logger, owner, weapon string) *zap.Logger {
	return logger.Named("weapon").With(
		zap.String("owner", owner),
		zap.String("weapon", weapon),
	)
}
