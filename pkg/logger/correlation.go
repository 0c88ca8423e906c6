package logger

import (
	"context"

	"github.com/google/uuid"
)

// correlationIDKey marks the context storage slot for the correlation identifier.
type correlationIDKey struct{}

// WithCorrelationID returns a context carrying a fresh correlation identifier.
// Every inbound bot update gets one so that all log records produced while
// handling it can be tied together.
func WithCorrelationID(ctx context.Context) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, uuid.NewString())
}

// CorrelationIDFromContext returns the correlation identifier stored in ctx,
// or an empty string when absent.
func CorrelationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey{}).(string); ok {
		return id
	}

	return ""
}
