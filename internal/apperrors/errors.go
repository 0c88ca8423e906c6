// Package apperrors defines the typed error taxonomy for the bot and a
// centralized handler that maps errors to log records, Sentry events, and
// user-visible messages.
package apperrors

import "fmt"

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AppError is the common error shape carried between layers.
type AppError struct {
	Code        string
	Message     string
	UserMessage string
	Severity    Severity
	Retryable   bool
	cause       error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

// NewTransitionError marks an event that is not legal from the current state.
// Should not normally be user-reachable when callback routing is correct.
func NewTransitionError(msg string) *AppError {
	return &AppError{
		Code:        "E100",
		Message:     msg,
		UserMessage: "This action is not available right now.",
		Severity:    SeverityLow,
		Retryable:   false,
	}
}

// NewGatewayError wraps a failed message send.
func NewGatewayError(cause error) *AppError {
	return &AppError{
		Code:        "E200",
		Message:     "failed to send message",
		UserMessage: "",
		Severity:    SeverityMedium,
		Retryable:   true,
		cause:       cause,
	}
}

// NewDatabaseError wraps a failed store operation.
func NewDatabaseError(cause error) *AppError {
	var underlying string
	if cause != nil {
		underlying = cause.Error()
	}

	return &AppError{
		Code:        "E300",
		Message:     fmt.Sprintf("database error: %s", underlying),
		UserMessage: "A temporary problem occurred. Please try again later.",
		Severity:    SeverityHigh,
		Retryable:   true,
		cause:       cause,
	}
}

// NewVerificationError marks a store mutation whose read-back disagreed with
// the expected post-state. Surfaced loudly: it signals silent persistence
// corruption rather than a plain delivery failure.
func NewVerificationError(msg string) *AppError {
	return &AppError{
		Code:        "E400",
		Message:     msg,
		UserMessage: "A temporary problem occurred. Please try again later.",
		Severity:    SeverityCritical,
		Retryable:   false,
	}
}

// NewContentError marks a required external resource as missing.
func NewContentError(resource string) *AppError {
	return &AppError{
		Code:        "E500",
		Message:     fmt.Sprintf("required content missing: %s", resource),
		UserMessage: "The bot is misconfigured. Please contact the operator.",
		Severity:    SeverityHigh,
		Retryable:   false,
	}
}

// NewDataIntegrityError marks a persisted state tag that does not match any
// known state. Processing of the affected request must halt; the tag is never
// silently defaulted.
func NewDataIntegrityError(msg string) *AppError {
	return &AppError{
		Code:        "E600",
		Message:     msg,
		UserMessage: "Your session data is inconsistent. Please contact the operator.",
		Severity:    SeverityCritical,
		Retryable:   false,
	}
}

// NewConfigError marks an invalid or missing startup precondition, such as an
// absent bot token.
func NewConfigError(msg string) *AppError {
	return &AppError{
		Code:        "E700",
		Message:     msg,
		UserMessage: "",
		Severity:    SeverityCritical,
		Retryable:   false,
	}
}
