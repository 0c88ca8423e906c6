// Package state implements the per-user onboarding and revocation state
// machine. Each user session is in exactly one of a closed set of states; the
// state tag is persisted on the user record and the transient state value is
// reconstructed from the tag on every load.
package state

import (
	"errors"
	"fmt"
)

// State represents a finite-state machine state. The persisted state tag on a
// user record must name one of the known states; anything else is a
// data-integrity error, never silently defaulted.
type State string

const (
	// StateIdle is the steady state: the user returns here after every
	// completed or rejected workflow. A user without a persisted record is
	// implicitly idle.
	StateIdle State = "idle"
	// StateAwaitingStartConfirmation marks a user who was sent the welcome
	// message and has not yet confirmed or denied registration.
	StateAwaitingStartConfirmation State = "awaiting_start_confirmation"
	// StateAwaitingRevokeConfirmation marks a registered user who was asked to
	// confirm revocation.
	StateAwaitingRevokeConfirmation State = "awaiting_revoke_confirmation"
)

// ErrUnknownState indicates a persisted state tag outside the known set.
var ErrUnknownState = errors.New("unknown state tag")

// AllStates lists every valid state, in no particular order.
func AllStates() []State {
	return []State{
		StateIdle,
		StateAwaitingStartConfirmation,
		StateAwaitingRevokeConfirmation,
	}
}

// ParseState validates a persisted state tag against the closed state set.
// Loading a record with an unrecognized tag must halt processing of that
// user's request, so the caller gets ErrUnknownState rather than a default.
func ParseState(tag string) (State, error) {
	switch State(tag) {
	case StateIdle, StateAwaitingStartConfirmation, StateAwaitingRevokeConfirmation:
		return State(tag), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownState, tag)
	}
}
