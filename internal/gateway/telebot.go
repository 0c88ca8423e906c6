package gateway

import (
	"context"
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"
)

// TelebotGateway delivers messages through a telebot.Bot instance.
type TelebotGateway struct {
	bot *telebot.Bot
	log *slog.Logger
}

// NewTelebotGateway wraps the given bot as a Gateway.
func NewTelebotGateway(bot *telebot.Bot, log *slog.Logger) *TelebotGateway {
	if log == nil {
		log = slog.Default()
	}

	return &TelebotGateway{
		bot: bot,
		log: log,
	}
}

// Send delivers text to the chat, rendering actions as a single row of inline
// buttons. The context deadline is honored before the call; telebot itself
// manages the HTTP round trip.
func (g *TelebotGateway) Send(ctx context.Context, chatID int64, text string, actions ...Action) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("send to chat %d: %w", chatID, err)
	}

	recipient := telebot.ChatID(chatID)

	var opts []interface{}
	if len(actions) > 0 {
		opts = append(opts, Markup(actions...))
	}

	if _, err := g.bot.Send(recipient, text, opts...); err != nil {
		g.log.Error("failed to send message",
			slog.Int64("chat_id", chatID),
			slog.Any("error", err),
		)
		return fmt.Errorf("send to chat %d: %w", chatID, err)
	}

	return nil
}

// Markup renders actions as a single-row inline keyboard.
func Markup(actions ...Action) *telebot.ReplyMarkup {
	row := make([]telebot.InlineButton, 0, len(actions))
	for _, action := range actions {
		row = append(row, telebot.InlineButton{
			Text: action.Label,
			Data: action.Data,
		})
	}

	markup := &telebot.ReplyMarkup{}
	markup.InlineKeyboard = [][]telebot.InlineButton{row}
	return markup
}
