package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pigeonhq/pigeon-bot/internal/apperrors"
	"github.com/pigeonhq/pigeon-bot/internal/gateway"
	"github.com/pigeonhq/pigeon-bot/internal/result"
	"github.com/pigeonhq/pigeon-bot/internal/state"
)

const (
	msgRevokePrompt   = "Are you sure you want to revoke your registration?"
	msgCannotRevoke   = "You are not registered, so there is nothing to revoke."
	failCannotRevoke  = "user does not exist, cannot revoke"
	failRevokePrompt  = "failed to send revoke confirmation prompt"
	failRevokeFind    = "failed to look up user"
	okRevokeRequested = "revoke confirmation requested for user %s"
)

// RevokeCommand handles the revoke command: registered users are asked to
// confirm revocation; unregistered users are told there is nothing to revoke.
type RevokeCommand struct {
	store   state.UserStore
	machine *state.Machine
	gateway gateway.Gateway
	log     *slog.Logger
}

// NewRevokeCommand wires the revoke command's collaborators.
func NewRevokeCommand(store state.UserStore, machine *state.Machine, gw gateway.Gateway, log *slog.Logger) *RevokeCommand {
	if log == nil {
		log = slog.Default()
	}

	return &RevokeCommand{
		store:   store,
		machine: machine,
		gateway: gw,
		log:     log,
	}
}

// Execute runs the revoke command for the acting user.
func (c *RevokeCommand) Execute(ctx context.Context, chatID int64) result.Result {
	user, err := c.store.Find(ctx, chatID)
	switch {
	case errors.Is(err, state.ErrUserNotFound):
		c.log.Info("revoke requested by unregistered user", slog.Int64("chat_id", chatID))
		// Best effort: the user still learns why nothing happened.
		_ = c.gateway.Send(ctx, chatID, msgCannotRevoke)
		return result.Failure(failCannotRevoke)
	case err != nil:
		c.log.Error("failed to look up user", slog.Int64("chat_id", chatID), slog.Any("error", err))
		return result.FailureWith(failRevokeFind, apperrors.NewDatabaseError(err))
	}

	c.log.Info("user requested revocation", slog.String("user", user.DisplayName()))

	if _, res := c.machine.Dispatch(ctx, user, state.EventRevokeRequested); !res.OK {
		return res
	}

	actions := []gateway.Action{
		{Label: "Yes", Data: CallbackRevokeYes},
		{Label: "No", Data: CallbackRevokeNo},
	}
	if err := c.gateway.Send(ctx, user.ChatID, msgRevokePrompt, actions...); err != nil {
		return result.Failure(failRevokePrompt)
	}

	return result.Success(fmt.Sprintf(okRevokeRequested, user.DisplayName()))
}
