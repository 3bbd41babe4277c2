// Package logging builds the structured slog logger shared by commands and engines.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/chrisdamba/profitlens/internal/models"
)

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// New returns a logger writing to w in JSON or text format.
func New(w io.Writer, cfg models.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler).With("service", "profitlens")
}

// Default logs text at info level to stderr.
func Default() *slog.Logger {
	return New(os.Stderr, models.LogConfig{Level: "info", Format: "text"})
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
