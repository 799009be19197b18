// Package logging builds the structured logger shared by the commands.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a production JSON logger at level; unknown levels fall back to info.
func New(level string) (*zap.Logger, error) {
	return Config(level, false).Build()
}

// NewConsole returns a human-readable logger for interactive commands.
func NewConsole(level string) (*zap.Logger, error) {
	return Config(level, true).Build()
}

// Config returns the logger configuration for level. Console configurations print colored,
// unstructured lines without stack traces; the rest emit JSON with ISO8601 timestamps.
func Config(level string, console bool) zap.Config {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	if console {
		config := zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zapLevel)
		config.DisableStacktrace = true
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return config
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.MessageKey = "message"
	config.EncoderConfig.LevelKey = "level"
	config.EncoderConfig.CallerKey = "caller"
	return config
}
