// Package logger builds the structured loggers threaded through every
// Config in this module.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production zap logger tagged with a "service" field, the
// same field every Config in this module threads a *zap.SugaredLogger
// through.
func New(service string) *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	log, err := cfg.Build()
	if err != nil {
		// Config.Build only fails on a broken encoder/sink configuration,
		// which NewProductionConfig never produces; fall back rather than
		// leave callers with a nil logger.
		log = zap.NewNop()
	}

	return log.Sugar().With("service", service)
}

// NewDevelopment builds a development zap logger (console-friendly,
// colorized level names, caller info) for the CLI front ends where a
// human is reading stderr directly rather than a log aggregator.
func NewDevelopment(service string) *zap.SugaredLogger {
	log, err := zap.NewDevelopment()
	if err != nil {
		log = zap.NewNop()
	}

	return log.Sugar().With("service", service)
}
