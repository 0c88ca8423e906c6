package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestMaskingHandler(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewMaskingHandler(slog.NewTextHandler(&buf, nil)))

	log.Info("connecting",
		slog.String("bot_token", "123:super-secret"),
		slog.String("host", "localhost"),
	)

	out := buf.String()
	if strings.Contains(out, "super-secret") {
		t.Fatalf("token leaked into log output: %s", out)
	}
	if !strings.Contains(out, "[redacted]") {
		t.Fatalf("expected redaction marker, got: %s", out)
	}
	if !strings.Contains(out, "localhost") {
		t.Fatalf("non-sensitive attribute lost: %s", out)
	}
}

func TestMaskingHandler_Group(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewMaskingHandler(slog.NewTextHandler(&buf, nil)))

	log.Info("loaded config",
		slog.Group("database",
			slog.String("password", "hunter2"),
			slog.String("host", "db.internal"),
		),
	)

	out := buf.String()
	if strings.Contains(out, "hunter2") {
		t.Fatalf("grouped password leaked: %s", out)
	}
	if !strings.Contains(out, "db.internal") {
		t.Fatalf("grouped non-sensitive attribute lost: %s", out)
	}
}

func TestMaskingHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	base := NewMaskingHandler(slog.NewTextHandler(&buf, nil))
	log := slog.New(base).With(slog.String("token", "123:abc"))

	log.Info("ready")

	if strings.Contains(buf.String(), "123:abc") {
		t.Fatalf("pre-bound token leaked: %s", buf.String())
	}
}

func TestCorrelationID(t *testing.T) {
	ctx := WithCorrelationID(context.Background())

	id := CorrelationIDFromContext(ctx)
	if id == "" {
		t.Fatal("expected a correlation id")
	}

	other := CorrelationIDFromContext(WithCorrelationID(context.Background()))
	if id == other {
		t.Fatal("expected distinct correlation ids per context")
	}

	if CorrelationIDFromContext(context.Background()) != "" {
		t.Fatal("expected empty id for plain context")
	}
}
