package logging

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/alanyoungcy/spotarb/internal/config"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q)=%v, want %v", in, got, want)
		}
	}
}

func TestNewWithFile(t *testing.T) {
	dir := t.TempDir()
	logger := New("debug", config.LoggingConfig{
		File:      filepath.Join(dir, "spotarb.log"),
		MaxSizeMB: 1,
	})
	if logger == nil {
		t.Fatal("New returned nil")
	}
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("debug level should be enabled")
	}
}
