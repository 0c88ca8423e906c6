// Package gateway abstracts the outbound messaging capability. The state
// machine and command layer only ever see this interface; the Telegram wiring
// lives in the telebot implementation.
package gateway

import "context"

// Action is a labeled response option rendered alongside a message, typically
// as an inline keyboard button. Data is the callback identifier delivered back
// when the user picks the action.
type Action struct {
	Label string
	Data  string
}

// Gateway sends a message to a user. Delivery failure is reported through the
// returned error and never panics or retries; retry policy, if any, belongs to
// the implementation behind this interface.
type Gateway interface {
	Send(ctx context.Context, chatID int64, text string, actions ...Action) error
}
