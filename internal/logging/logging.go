// pgsource: PostgreSQL bulk-read source for heterogeneous data federation
// SPDX-License-Identifier: MIT
//
// Structured logging setup shared by the pgxtract CLI.

package logging

import (
	"fmt"

	"github.com/dataxfer/pgsource/internal/safety"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger constructs a zap logger with the provided level (default info).
// It uses console encoding and ISO8601 timestamps.
func NewLogger(level string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.Encoding = "console"
	lvl := level
	if lvl == "" {
		lvl = "info"
	}
	l, err := zapcore.ParseLevel(lvl)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	zcfg.Level = zap.NewAtomicLevelAt(l)
	zcfg.EncoderConfig.TimeKey = "ts"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zcfg.EncoderConfig.CallerKey = "caller"
	return zcfg.Build()
}

// Fields bundles common structured fields attached to extraction logs.
type Fields struct {
	Component string
	Protocol  string
	Partition int
}

// WithFields attaches standard fields to the logger.
func WithFields(logger *zap.Logger, f Fields) *zap.Logger {
	fields := make([]zap.Field, 0, 3)
	if f.Component != "" {
		fields = append(fields, zap.String("component", f.Component))
	}
	if f.Protocol != "" {
		fields = append(fields, zap.String("protocol", f.Protocol))
	}
	if f.Partition != 0 {
		fields = append(fields, zap.Int("partition", f.Partition))
	}
	return logger.With(fields...)
}

// WithComponent attaches a component field.
func WithComponent(logger *zap.Logger, component string) *zap.Logger {
	if component == "" {
		return logger
	}
	return logger.With(zap.String("component", component))
}

// WithPartition attaches a partition index field.
func WithPartition(logger *zap.Logger, idx int) *zap.Logger {
	return logger.With(zap.Int("partition", idx))
}

// RedactDSN safely redacts DSNs by masking the password; the user name is kept.
func RedactDSN(dsn string) string { return safety.RedactDSN(dsn) }

// FieldDSN returns a zap field with a redacted DSN.
func FieldDSN(key, dsn string) zap.Field {
	return zap.String(key, RedactDSN(dsn))
}

// FieldSecret masks secret values.
func FieldSecret(key string) zap.Field {
	return zap.String(key, "***")
}
