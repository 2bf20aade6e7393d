// Package logger configures the process-wide slog logger and threads
// request-scoped attributes through context. Every long-lived component of
// the search service logs through WithComponent so log lines can be filtered
// by subsystem.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

type requestIDKey struct{}

// Setup installs the process-wide logger. The service logs JSON at info
// level unless the config says otherwise; unknown values fall back to that.
func Setup(level, format string) {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// WithComponent returns a logger tagged with the subsystem name.
func WithComponent(name string) *slog.Logger {
	return slog.Default().With("component", name)
}

// WithRequestID stores the request id in the context for FromContext.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// FromContext returns the default logger, enriched with the request id when
// one was attached by the middleware.
func FromContext(ctx context.Context) *slog.Logger {
	if requestID, ok := ctx.Value(requestIDKey{}).(string); ok && requestID != "" {
		return slog.Default().With("request_id", requestID)
	}
	return slog.Default()
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
