// Package observability wires structured logging and tracing into the
// HTTP stack.
package observability

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "lijid-dotcom"

// NewLogger returns a JSON logger whose field names match what Cloud
// Logging parses: severity, message and timestamp. level defaults to
// LOG_LEVEL and then to info. SITE_ENVIRONMENT=local switches to a
// coloured console encoder for development.
func NewLogger(level string) (*zap.Logger, error) {
	lvl := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if level = strings.TrimSpace(level); level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	if level != "" {
		if parsed, err := zapcore.ParseLevel(strings.ToLower(level)); err == nil {
			lvl.SetLevel(parsed)
		}
	}

	enc := zap.NewProductionEncoderConfig()
	enc.MessageKey = "message"
	enc.TimeKey = "timestamp"
	enc.LevelKey = "severity"
	enc.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	enc.EncodeDuration = zapcore.MillisDurationEncoder

	encoding := "json"
	if strings.EqualFold(os.Getenv("SITE_ENVIRONMENT"), "local") {
		encoding = "console"
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	cfg := zap.Config{
		Level:             lvl,
		Encoding:          encoding,
		EncoderConfig:     enc,
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
		DisableStacktrace: true,
		InitialFields:     map[string]any{"service": serviceName},
	}
	return cfg.Build()
}
