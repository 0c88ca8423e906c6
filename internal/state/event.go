package state

// Event names an input to the state machine. Free text from deployments
// without inline buttons is normalized by the command layer before it reaches
// the machine; by this point an event is always one of the named values.
type Event string

const (
	// EventStartRequested is raised when a never-seen user issues the start
	// command.
	EventStartRequested Event = "start_requested"
	// EventRevokeRequested is raised when a registered user issues the revoke
	// command.
	EventRevokeRequested Event = "revoke_requested"
	// EventConfirmYes is an affirmative confirmation, from a callback button
	// or normalized free text.
	EventConfirmYes Event = "confirm_yes"
	// EventConfirmNo is a negative confirmation.
	EventConfirmNo Event = "confirm_no"
	// EventConfirmInvalid is free text that normalized to neither yes nor no.
	EventConfirmInvalid Event = "confirm_invalid"
)

// TransitionResult reports whether a requested transition was structurally
// legal from the current state, independent of whether its side effects
// succeeded.
type TransitionResult int

const (
	TransitionFailure TransitionResult = iota
	TransitionSuccess
)

func (r TransitionResult) String() string {
	if r == TransitionSuccess {
		return "transition_success"
	}

	return "transition_failure"
}

var transitionRecorder = func(from, to string) {}

// RegisterTransitionRecorder allows external packages to observe FSM
// transitions, e.g. for metrics.
func RegisterTransitionRecorder(recorder func(from, to string)) {
	if recorder == nil {
		transitionRecorder = func(string, string) {}
		return
	}

	transitionRecorder = recorder
}
