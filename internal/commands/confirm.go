package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pigeonhq/pigeon-bot/internal/apperrors"
	"github.com/pigeonhq/pigeon-bot/internal/domain"
	"github.com/pigeonhq/pigeon-bot/internal/result"
	"github.com/pigeonhq/pigeon-bot/internal/state"
)

// Confirmations routes confirmation input, from callback buttons or free
// text, into the state machine for the session's current state.
type Confirmations struct {
	store   state.UserStore
	machine *state.Machine
	log     *slog.Logger
}

// NewConfirmations wires the confirmation router's collaborators.
func NewConfirmations(store state.UserStore, machine *state.Machine, log *slog.Logger) *Confirmations {
	if log == nil {
		log = slog.Default()
	}

	return &Confirmations{
		store:   store,
		machine: machine,
		log:     log,
	}
}

// HandleCallback dispatches a confirmation callback by its identifier. The
// callback name encodes both the flow it belongs to and the answer, so the
// machine can reject a replayed or out-of-order callback without re-deriving
// which flow is active.
func (c *Confirmations) HandleCallback(ctx context.Context, chatID int64, name string) result.Result {
	bound, ok := callbackBindings[name]
	if !ok {
		c.log.Warn("unknown callback", slog.String("callback", name), slog.Int64("chat_id", chatID))
		return result.Failure(fmt.Sprintf("unknown callback %q", name))
	}

	user, err := c.load(ctx, chatID)
	if err != nil {
		return c.loadFailure(chatID, err)
	}

	_, res := c.machine.DispatchExpecting(ctx, user, bound.expected, bound.event)
	return res
}

// HandleText dispatches typed confirmation input against the session's
// current state. Anything that does not normalize to yes or no becomes an
// invalid-confirmation event, which re-prompts without a transition.
func (c *Confirmations) HandleText(ctx context.Context, chatID int64, text string) result.Result {
	user, err := c.load(ctx, chatID)
	if err != nil {
		return c.loadFailure(chatID, err)
	}

	_, res := c.machine.Dispatch(ctx, user, NormalizeConfirmation(text))
	return res
}

// HasSession reports whether the user currently has a persisted session
// awaiting confirmation. Used by the router to decide whether plain text
// should be fed into the confirmation flow at all.
func (c *Confirmations) HasSession(ctx context.Context, chatID int64) bool {
	user, err := c.store.Find(ctx, chatID)
	if err != nil {
		return false
	}

	tag, err := state.ParseState(user.State)
	if err != nil {
		return false
	}

	return tag == state.StateAwaitingStartConfirmation || tag == state.StateAwaitingRevokeConfirmation
}

func (c *Confirmations) load(ctx context.Context, chatID int64) (*domain.User, error) {
	return c.store.Find(ctx, chatID)
}

func (c *Confirmations) loadFailure(chatID int64, err error) result.Result {
	if errors.Is(err, state.ErrUserNotFound) {
		c.log.Warn("confirmation without an active session", slog.Int64("chat_id", chatID))
		return result.Failure("no active session for this confirmation")
	}

	c.log.Error("failed to load user for confirmation", slog.Int64("chat_id", chatID), slog.Any("error", err))
	return result.FailureWith("failed to look up user", apperrors.NewDatabaseError(err))
}
