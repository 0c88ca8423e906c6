// Package result defines the operation result value threaded through the
// gateway, store, state machine, and command layers.
package result

// Result reports the outcome of a side-effecting bot operation. It is distinct
// from a state transition result: a transition can be structurally legal while
// its message send or store mutation still fails. Err optionally carries the
// typed error behind a failure for centralized reporting; Message stays the
// log-friendly summary.
type Result struct {
	OK      bool
	Message string
	Err     error
}

// Success builds a successful result with a descriptive message.
func Success(message string) Result {
	return Result{OK: true, Message: message}
}

// Failure builds a failed result describing which stage failed.
func Failure(message string) Result {
	return Result{OK: false, Message: message}
}

// FailureWith builds a failed result carrying the underlying error.
func FailureWith(message string, err error) Result {
	return Result{OK: false, Message: message, Err: err}
}

// String renders the result for logs.
func (r Result) String() string {
	if r.OK {
		return "success: " + r.Message
	}

	return "failure: " + r.Message
}
