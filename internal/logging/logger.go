package logging

import (
	"io"
	"log/slog"
	"strings"
)

// New builds the diagnostic logger. Record lines never pass through it.
func New(level string, w io.Writer) *slog.Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(handler.WithAttrs([]slog.Attr{
		slog.String("service", "xusing"),
	}))
}

// NewModuleLogger derives a logger tagged with the given module
func NewModuleLogger(parent *slog.Logger, module string) *slog.Logger {
	if parent == nil {
		parent = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return parent.With(slog.String("module", module))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
