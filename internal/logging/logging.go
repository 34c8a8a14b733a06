package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// New returns a logger writing text records to w at the given level.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Default returns a logger writing to STDERR at INFO level. Mission output is
// owned by the event logger on STDOUT; slog carries operational diagnostics
// only, so it stays off STDOUT.
func Default() *slog.Logger {
	return New(os.Stderr, slog.LevelInfo)
}

type ctxKey struct{}

// NewContext returns a copy of ctx with the logger stored.
func NewContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext retrieves a logger from ctx or returns slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
