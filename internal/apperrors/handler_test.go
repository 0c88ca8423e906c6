package apperrors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandler_Handle_AppError(t *testing.T) {
	h := NewHandler(testLogger(), false)

	msg, retryable := h.Handle(context.Background(), NewDatabaseError(errors.New("connection refused")))

	if msg != "A temporary problem occurred. Please try again later." {
		t.Fatalf("unexpected user message: %q", msg)
	}
	if !retryable {
		t.Fatal("database errors are retryable")
	}
}

func TestHandler_Handle_WrappedAppError(t *testing.T) {
	h := NewHandler(testLogger(), false)

	wrapped := fmt.Errorf("start: %w", NewTransitionError("event not supported"))
	msg, retryable := h.Handle(context.Background(), wrapped)

	if msg != "This action is not available right now." {
		t.Fatalf("unexpected user message: %q", msg)
	}
	if retryable {
		t.Fatal("transition errors are not retryable")
	}
}

func TestHandler_Handle_UnknownError(t *testing.T) {
	h := NewHandler(testLogger(), false)

	msg, retryable := h.Handle(context.Background(), errors.New("something odd"))

	if msg != "Something went wrong. Please try again later." {
		t.Fatalf("unexpected user message: %q", msg)
	}
	if retryable {
		t.Fatal("unknown errors are not retryable")
	}
}

func TestHandler_Handle_Nil(t *testing.T) {
	h := NewHandler(testLogger(), false)

	msg, retryable := h.Handle(context.Background(), nil)

	if msg != "" || retryable {
		t.Fatalf("expected empty handling of nil error, got %q/%v", msg, retryable)
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewGatewayError(cause)

	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to find the cause")
	}

	var appErr *AppError
	if !errors.As(fmt.Errorf("wrap: %w", err), &appErr) {
		t.Fatal("expected errors.As to find the AppError")
	}
	if appErr.Code != "E200" {
		t.Fatalf("unexpected code: %s", appErr.Code)
	}
}
