// Package logging builds the context-carried logger used across codecritic.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/chainguard-dev/clog"
)

// ParseLevel maps "debug", "info", "warn" and "error" to slog levels
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (use debug, info, warn, error)", s)
	}
}

// New returns a logger writing to w (stderr when nil). Format is "text" or "json".
func New(w io.Writer, level slog.Level, format string) *clog.Logger {
	return clog.NewLogger(newSlog(w, level, format))
}

func newSlog(w io.Writer, level slog.Level, format string) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// Setup builds a logger from config strings and stores it in ctx.
// It also becomes the slog default so library code logs the same way.
func Setup(ctx context.Context, w io.Writer, level, format string) (context.Context, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return ctx, err
	}
	base := newSlog(w, lvl, format)
	slog.SetDefault(base)
	return clog.WithLogger(ctx, clog.NewLogger(base)), nil
}

// Component tags a context's logger with a component name
func Component(ctx context.Context, name string) context.Context {
	return clog.WithLogger(ctx, clog.FromContext(ctx).With("component", name))
}
