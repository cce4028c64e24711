// Package telemetry carries request telemetry to OTel and Kafka and builds the process logger.
package telemetry

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger returns the process logger: JSON lines in production, text otherwise.
// The logger is tagged with service and, when set, env.
func NewLogger(w io.Writer, service, env string) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var h slog.Handler
	switch strings.ToLower(env) {
	case "production", "prod", "staging":
		h = slog.NewJSONHandler(w, opts)
	default:
		opts.Level = slog.LevelDebug
		h = slog.NewTextHandler(w, opts)
	}
	l := slog.New(h).With("service", service)
	if env != "" {
		l = l.With("env", env)
	}
	return l
}
