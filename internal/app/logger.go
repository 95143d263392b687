package app

import (
	"io"
	"log/slog"
)

// NewLogger returns a slog.Logger writing to w.
// prod gets JSON logs at INFO, anything else text logs at DEBUG.
func NewLogger(env string, w io.Writer) *slog.Logger {
	var handler slog.Handler
	if env == "prod" {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	return slog.New(handler)
}
