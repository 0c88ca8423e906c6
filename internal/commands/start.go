package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pigeonhq/pigeon-bot/internal/apperrors"
	"github.com/pigeonhq/pigeon-bot/internal/content"
	"github.com/pigeonhq/pigeon-bot/internal/domain"
	"github.com/pigeonhq/pigeon-bot/internal/gateway"
	"github.com/pigeonhq/pigeon-bot/internal/result"
	"github.com/pigeonhq/pigeon-bot/internal/state"
)

const msgWelcomeBack = "Welcome back!"

// StartCommand handles the start command: returning users get a greeting,
// never-seen users get the onboarding message with confirmation actions and a
// session awaiting their answer.
type StartCommand struct {
	store   state.UserStore
	machine *state.Machine
	gateway gateway.Gateway
	content content.Source
	log     *slog.Logger
}

// NewStartCommand wires the start command's collaborators.
func NewStartCommand(store state.UserStore, machine *state.Machine, gw gateway.Gateway, src content.Source, log *slog.Logger) *StartCommand {
	if log == nil {
		log = slog.Default()
	}

	return &StartCommand{
		store:   store,
		machine: machine,
		gateway: gw,
		content: src,
		log:     log,
	}
}

// Execute runs the start command for the acting user.
func (c *StartCommand) Execute(ctx context.Context, chatID int64, username string) result.Result {
	user := &domain.User{ChatID: chatID, Username: username, State: string(state.StateIdle)}
	c.log.Info("user started the bot", slog.String("user", user.DisplayName()))

	existing, err := c.store.Find(ctx, chatID)
	switch {
	case err == nil:
		return c.welcomeBack(ctx, existing)
	case errors.Is(err, state.ErrUserNotFound):
		return c.onboard(ctx, user)
	default:
		c.log.Error("failed to look up user", slog.Int64("chat_id", chatID), slog.Any("error", err))
		return result.FailureWith("failed to look up user", apperrors.NewDatabaseError(err))
	}
}

// welcomeBack greets an already-registered user without touching their record,
// whatever state it is in.
func (c *StartCommand) welcomeBack(ctx context.Context, user *domain.User) result.Result {
	if err := c.gateway.Send(ctx, user.ChatID, msgWelcomeBack); err != nil {
		return result.Failure("failed to send welcome back message")
	}

	return result.Success(fmt.Sprintf("user %s already registered", user.DisplayName()))
}

// onboard creates the awaiting-confirmation session and sends the welcome
// content. The record is persisted and verified before the message goes out;
// a send failure is reported but the committed record stands.
func (c *StartCommand) onboard(ctx context.Context, user *domain.User) result.Result {
	text, err := c.content.Welcome()
	if err != nil {
		c.log.Error("welcome message unavailable", slog.Any("error", err))
		return result.FailureWith("welcome message not found", apperrors.NewContentError("welcome message"))
	}

	if _, res := c.machine.Dispatch(ctx, user, state.EventStartRequested); !res.OK {
		return res
	}

	actions := []gateway.Action{
		{Label: "Yes", Data: CallbackStartYes},
		{Label: "No", Data: CallbackStartNo},
	}
	if err := c.gateway.Send(ctx, user.ChatID, text, actions...); err != nil {
		return result.Failure("failed to send welcome message")
	}

	return result.Success(fmt.Sprintf("welcome message sent to user %s", user.DisplayName()))
}
