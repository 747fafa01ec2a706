package logger

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// With stores a logger carrying fields on top of whatever ctx already has.
// Middleware adds the trace id first and the account id once resolved.
func With(ctx context.Context, fields ...any) context.Context {
	if len(fields) == 0 {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, From(ctx).With(fields...))
}

// From returns the request scoped logger, or the process logger.
func From(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
			return l
		}
	}
	return LoggerWrapper()
}
