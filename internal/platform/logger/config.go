package logger

import (
	"os"
	"strings"

	"go.uber.org/zap/zapcore"
)

// Environment variables read by DefaultConfig.
const (
	EnvLevel  = "LOG_LEVEL"
	EnvFormat = "LOG_FORMAT"
	EnvOutput = "LOG_OUTPUT_FILE"
)

// LoggerConfig holds configuration for the logger.
type LoggerConfig struct {
	Level      string
	Format     string
	OutputFile string
}

// DefaultConfig builds the logger configuration from the process environment.
// The logger exists before viper is loaded, so it cannot use the main config.
func DefaultConfig() *LoggerConfig {
	return ConfigFromEnv(os.LookupEnv)
}

// ConfigFromEnv builds a configuration through lookup; unset variables keep
// info level, JSON encoding and stdout.
func ConfigFromEnv(lookup func(string) (string, bool)) *LoggerConfig {
	cfg := &LoggerConfig{Level: "info", Format: "json", OutputFile: "stdout"}
	if v, ok := lookup(EnvLevel); ok && v != "" {
		cfg.Level = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := lookup(EnvFormat); ok && v != "" {
		cfg.Format = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := lookup(EnvOutput); ok && v != "" {
		cfg.OutputFile = strings.TrimSpace(v)
	}
	return cfg
}

// ZapLevel converts the configured level, falling back to info.
func (c *LoggerConfig) ZapLevel() zapcore.Level {
	switch c.Level {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}
