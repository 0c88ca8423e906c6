package logger

import (
	"context"
	"log/slog"
	"strings"
)

// Attribute keys whose values never belong in logs. Bot tokens and DSNs in
// particular leak through config dumps.
var sensitiveKeys = map[string]struct{}{
	"password":      {},
	"token":         {},
	"bot_token":     {},
	"dsn":           {},
	"secret":        {},
	"api_key":       {},
	"authorization": {},
}

const maskedValue = "[redacted]"

// MaskingHandler redacts sensitive attribute values before delegating to the
// wrapped handler. Group attributes are redacted recursively.
type MaskingHandler struct {
	next slog.Handler
}

func NewMaskingHandler(next slog.Handler) *MaskingHandler {
	return &MaskingHandler{next: next}
}

func (h *MaskingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *MaskingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, attr := range attrs {
		masked[i] = maskAttr(attr)
	}

	return &MaskingHandler{next: h.next.WithAttrs(masked)}
}

func (h *MaskingHandler) WithGroup(name string) slog.Handler {
	return &MaskingHandler{next: h.next.WithGroup(name)}
}

func (h *MaskingHandler) Handle(ctx context.Context, record slog.Record) error {
	masked := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)

	record.Attrs(func(attr slog.Attr) bool {
		masked.AddAttrs(maskAttr(attr))
		return true
	})

	return h.next.Handle(ctx, masked)
}

func maskAttr(attr slog.Attr) slog.Attr {
	if attr.Value.Kind() == slog.KindGroup {
		group := attr.Value.Group()
		masked := make([]slog.Attr, len(group))
		for i, inner := range group {
			masked[i] = maskAttr(inner)
		}

		return slog.Attr{Key: attr.Key, Value: slog.GroupValue(masked...)}
	}

	if _, sensitive := sensitiveKeys[strings.ToLower(attr.Key)]; sensitive {
		return slog.String(attr.Key, maskedValue)
	}

	return attr
}
