// Package logging builds the process-wide slog logger. Output is JSON on
// stdout, optionally teed into a size-rotated file.
package logging

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/alanyoungcy/spotarb/internal/config"
)

// New constructs a JSON slog.Logger at the given level. When cfg.File is set
// the handler writes to both stdout and a lumberjack-rotated file.
func New(level string, cfg config.LoggingConfig) *slog.Logger {
	var w io.Writer = os.Stdout
	if cfg.File != "" {
		rotated := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		w = io.MultiWriter(os.Stdout, rotated)
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	}))
}

// ParseLevel maps a config log_level string to a slog.Level, defaulting to
// info for unknown values.
func ParseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
