package logging

import (
	"context"
	"log/slog"
)

type contextKey struct{}

// IntoContext stores a logger in the context for downstream retrieval.
func IntoContext(ctx context.Context, logger *slog.Logger) context.Context {
	if logger == nil {
		return ctx
	}
	return context.WithValue(ctx, contextKey{}, logger)
}

// WithContext returns the logger carried by ctx, falling back to the
// provided logger, then to a no-op logger.
func WithContext(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(contextKey{}).(*slog.Logger); ok && logger != nil {
			return logger
		}
	}
	if fallback != nil {
		return fallback
	}
	return NewNop()
}
