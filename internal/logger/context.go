package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// ContextWithLogger stores a logger in the context.
func ContextWithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext extracts a logger from the context.
// Returns zap.NewNop() if no logger is found.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// With derives a logger carrying fields from the one in ctx and returns
// both the derived logger and a context holding it.
func With(ctx context.Context, fields ...zap.Field) (context.Context, *zap.Logger) {
	l := FromContext(ctx).With(fields...)
	return ContextWithLogger(ctx, l), l
}

// WithSession tags the context logger with a session id.
func WithSession(ctx context.Context, id string) (context.Context, *zap.Logger) {
	return With(ctx, zap.String("session", id))
}

// WithRequest tags the context logger with a request id.
func WithRequest(ctx context.Context, id string) (context.Context, *zap.Logger) {
	return With(ctx, zap.String("request_id", id))
}
