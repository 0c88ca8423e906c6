// Package bot wires the Telegram transport to the command layer and the
// session state machine.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	telebot "gopkg.in/telebot.v3"

	"github.com/pigeonhq/pigeon-bot/internal/apperrors"
	"github.com/pigeonhq/pigeon-bot/internal/commands"
	"github.com/pigeonhq/pigeon-bot/internal/content"
	"github.com/pigeonhq/pigeon-bot/internal/gateway"
	"github.com/pigeonhq/pigeon-bot/internal/idempotency"
	"github.com/pigeonhq/pigeon-bot/internal/ratelimit"
	"github.com/pigeonhq/pigeon-bot/internal/result"
	"github.com/pigeonhq/pigeon-bot/internal/state"
	"github.com/pigeonhq/pigeon-bot/pkg/config"
	"github.com/pigeonhq/pigeon-bot/pkg/logger"
)

const (
	rateLimit       = 20
	rateLimitWindow = time.Minute
)

// Bot wraps telebot.Bot with the application components handling updates.
type Bot struct {
	telebot *telebot.Bot
	log     *slog.Logger
	router  *Router
	machine *state.Machine
}

// New builds the Telegram bot and registers the command, callback, and text
// routes for the onboarding and revocation flows.
func New(
	cfg config.Config,
	log *slog.Logger,
	store state.UserStore,
	redisClient *redis.Client,
	src content.Source,
) (*Bot, error) {
	settings := telebot.Settings{
		Token: cfg.Bot.Token,
	}

	if cfg.Bot.Mode == "webhook" {
		settings.Poller = &telebot.Webhook{
			Listen:   cfg.Bot.WebhookListen,
			Endpoint: &telebot.WebhookEndpoint{PublicURL: cfg.Bot.WebhookURL},
		}
	} else {
		settings.Poller = &telebot.LongPoller{
			Timeout: cfg.Bot.PollTimeout,
		}
	}

	tb, err := telebot.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("initialize telebot: %w", err)
	}

	gw := gateway.NewTelebotGateway(tb, log)
	machine := state.NewMachine(store, gw, log, redisClient, cfg.Bot.HandlerTimeout)
	errHandler := apperrors.NewHandler(log, cfg.Sentry.Enabled)

	router := NewRouter(log)
	router.Use(RecoveryMiddleware(log, errHandler))
	router.Use(ErrorReportMiddleware(errHandler))
	router.Use(LoggingMiddleware(log))
	router.Use(MetricsMiddleware)
	router.Use(DedupeMiddleware(idempotency.NewGuard(redisClient, 0, log), log))
	router.Use(RateLimitMiddleware(ratelimit.NewLimiter(redisClient, rateLimit, rateLimitWindow, log), log))

	b := &Bot{
		telebot: tb,
		log:     log,
		router:  router,
		machine: machine,
	}

	startCmd := commands.NewStartCommand(store, machine, gw, src, log)
	revokeCmd := commands.NewRevokeCommand(store, machine, gw, log)
	confirms := commands.NewConfirmations(store, machine, log)

	router.RegisterCommand(commands.CommandStart, b.startHandler(startCmd))
	router.RegisterCommand(commands.CommandRevoke, b.revokeHandler(revokeCmd))
	for _, name := range commands.CallbackNames() {
		router.RegisterCallback(name, b.callbackHandler(confirms, name))
	}
	router.SetTextHandler(b.textHandler(confirms))

	tb.Handle(telebot.OnText, router.Route)
	tb.Handle(telebot.OnCallback, router.Route)

	return b, nil
}

// Start runs the telegram bot event loop.
func (b *Bot) Start() {
	b.telebot.Start()
}

// Stop gracefully stops the telegram bot.
func (b *Bot) Stop() {
	b.log.Info("stopping telegram bot...")
	b.telebot.Stop()
}

// Telebot exposes the underlying telebot.Bot instance, e.g. for health checks.
func (b *Bot) Telebot() *telebot.Bot {
	return b.telebot
}

func (b *Bot) startHandler(cmd *commands.StartCommand) Handler {
	return func(c telebot.Context) error {
		sender := c.Sender()
		if sender == nil {
			b.log.Warn("start command without sender")
			return nil
		}

		ctx := logger.WithCorrelationID(context.Background())
		res := cmd.Execute(ctx, sender.ID, sender.Username)
		return b.report(ctx, "start", res)
	}
}

func (b *Bot) revokeHandler(cmd *commands.RevokeCommand) Handler {
	return func(c telebot.Context) error {
		sender := c.Sender()
		if sender == nil {
			b.log.Warn("revoke command without sender")
			return nil
		}

		ctx := logger.WithCorrelationID(context.Background())
		res := cmd.Execute(ctx, sender.ID)
		return b.report(ctx, "revoke", res)
	}
}

func (b *Bot) callbackHandler(confirms *commands.Confirmations, name string) Handler {
	return func(c telebot.Context) error {
		sender := c.Sender()
		if sender == nil {
			b.log.Warn("callback without sender", slog.String("callback", name))
			return nil
		}

		ctx := logger.WithCorrelationID(context.Background())
		res := confirms.HandleCallback(ctx, sender.ID, name)

		// Stop the inline button spinner regardless of the outcome.
		if err := c.Respond(&telebot.CallbackResponse{}); err != nil {
			b.log.Error("failed to acknowledge callback", slog.Any("error", err))
		}

		return b.report(ctx, name, res)
	}
}

// textHandler feeds plain text into the confirmation flow for users whose
// session awaits a typed answer. Text from users without such a session is
// ignored.
func (b *Bot) textHandler(confirms *commands.Confirmations) Handler {
	return func(c telebot.Context) error {
		sender := c.Sender()
		if sender == nil {
			return nil
		}

		ctx := logger.WithCorrelationID(context.Background())
		if !confirms.HasSession(ctx, sender.ID) {
			return nil
		}

		res := confirms.HandleText(ctx, sender.ID, c.Text())
		return b.report(ctx, "confirmation_text", res)
	}
}

// report logs the operation result and surfaces failures as errors so the
// metrics and error-report middlewares see them.
func (b *Bot) report(ctx context.Context, operation string, res result.Result) error {
	log := b.log
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		log = log.With(slog.String("correlation_id", id))
	}

	if res.OK {
		log.Info("operation succeeded",
			slog.String("operation", operation),
			slog.String("result", res.Message),
		)
		return nil
	}

	log.Warn("operation failed",
		slog.String("operation", operation),
		slog.String("result", res.Message),
	)

	if res.Err != nil {
		return fmt.Errorf("%s: %w", operation, res.Err)
	}
	return fmt.Errorf("%s: %s", operation, res.Message)
}
