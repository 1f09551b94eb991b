package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/esumbrandon/Schnei/internal/config"
)

// New returns a slog.Logger configured for the app, writing to stdout.
func New(cfg config.LogConfig, service, env string) *slog.Logger {
	return NewWithWriter(os.Stdout, cfg, service, env)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, cfg config.LogConfig, service, env string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	log := slog.New(handler)
	if service != "" {
		log = log.With("service", service)
	}
	if env != "" {
		log = log.With("env", env)
	}
	return log
}

// ParseLevel maps debug, warn and error to their slog levels; anything else is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
