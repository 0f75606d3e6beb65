package app

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"pysnip/internal/domain"
)

// LoggingConfig carries a logger built by the caller into the injectors.
type LoggingConfig struct {
	Logger *zap.Logger
}

// NewLogger returns the application logger from a LoggingConfig.
func NewLogger(cfg LoggingConfig) *zap.Logger {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger.Named("app")
}

// BuildLogger builds the process logger from the logging configuration.
func BuildLogger(cfg domain.LoggingConfig) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if strings.EqualFold(cfg.Format, "console") {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.Development = false
	}
	levelText := cfg.Level
	if levelText == "" {
		levelText = domain.DefaultLogLevel
	}
	level, err := zapcore.ParseLevel(levelText)
	if err != nil {
		return nil, err
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapCfg.Build()
}
