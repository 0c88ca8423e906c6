package logger

import (
	"context"
	"log/slog"
)

// teeHandler fans every record out to all wrapped handlers. Used to deliver
// error records to Sentry alongside the primary output.
type teeHandler struct {
	handlers []slog.Handler
}

func newTeeHandler(handlers ...slog.Handler) *teeHandler {
	return &teeHandler{handlers: handlers}
}

func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}

	return false
}

func (t *teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, h := range t.handlers {
		if !h.Enabled(ctx, record.Level) {
			continue
		}

		if err := h.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	wrapped := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		wrapped[i] = h.WithAttrs(attrs)
	}

	return &teeHandler{handlers: wrapped}
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	wrapped := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		wrapped[i] = h.WithGroup(name)
	}

	return &teeHandler{handlers: wrapped}
}
