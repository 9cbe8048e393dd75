package config

import (
	"log/slog"
	"os"
	"strings"
)

var logLevels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// NewLogger builds the JSON logger for the configured level. Source
// locations are attached at debug and error so production info logs stay
// compact.
func (c *LoggerConfig) NewLogger() *slog.Logger {
	level, ok := logLevels[strings.ToLower(c.Level)]
	if !ok {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug || level == slog.LevelError,
	}))
}
