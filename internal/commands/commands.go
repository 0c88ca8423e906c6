// Package commands translates inbound user actions into state-machine events
// and produces operation results for the bot layer to report.
package commands

import (
	"strings"

	"github.com/pigeonhq/pigeon-bot/internal/state"
)

// Command and callback identifiers. These names are the contract the outer
// bot framework binds to; each carries the acting user's identity when
// delivered.
const (
	CommandStart  = "/start"
	CommandRevoke = "/revoke"

	CallbackStartYes  = "start_confirm_yes"
	CallbackStartNo   = "start_confirm_no"
	CallbackRevokeYes = "revoke_confirm_yes"
	CallbackRevokeNo  = "revoke_confirm_no"
)

// binding ties a callback identifier to the flow state it belongs to and the
// event it raises. The state machine rejects the event when the session is no
// longer in the bound state.
type binding struct {
	expected state.State
	event    state.Event
}

var callbackBindings = map[string]binding{
	CallbackStartYes:  {expected: state.StateAwaitingStartConfirmation, event: state.EventConfirmYes},
	CallbackStartNo:   {expected: state.StateAwaitingStartConfirmation, event: state.EventConfirmNo},
	CallbackRevokeYes: {expected: state.StateAwaitingRevokeConfirmation, event: state.EventConfirmYes},
	CallbackRevokeNo:  {expected: state.StateAwaitingRevokeConfirmation, event: state.EventConfirmNo},
}

// CallbackNames lists every confirmation callback identifier.
func CallbackNames() []string {
	names := make([]string, 0, len(callbackBindings))
	for name := range callbackBindings {
		names = append(names, name)
	}

	return names
}

// NormalizeConfirmation maps free-text confirmation input to an event.
// Deployments without inline buttons fall back to typed answers; only
// case-insensitive "yes" and "no" are recognized.
func NormalizeConfirmation(text string) state.Event {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "yes":
		return state.EventConfirmYes
	case "no":
		return state.EventConfirmNo
	default:
		return state.EventConfirmInvalid
	}
}
