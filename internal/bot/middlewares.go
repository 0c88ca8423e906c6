package bot

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/pigeonhq/pigeon-bot/internal/apperrors"
	"github.com/pigeonhq/pigeon-bot/internal/idempotency"
	"github.com/pigeonhq/pigeon-bot/internal/ratelimit"
	"github.com/pigeonhq/pigeon-bot/pkg/metrics"
)

// RecoveryMiddleware catches panics, reports them, and notifies the user.
func RecoveryMiddleware(log *slog.Logger, errHandler *apperrors.Handler) Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next Handler) Handler {
		return func(c telebot.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("panic recovered in handler",
						slog.Any("panic", r),
						slog.String("stack", string(debug.Stack())),
					)

					userMsg := "Something went wrong. Please try again later."
					if errHandler != nil {
						if msg, _ := errHandler.Handle(context.Background(), recoveredError(r)); msg != "" {
							userMsg = msg
						}
					}

					if c != nil {
						if sendErr := c.Send(userMsg); sendErr != nil {
							log.Error("failed to notify user about panic", slog.Any("error", sendErr))
						}
					}

					err = nil
				}
			}()

			return next(c)
		}
	}
}

// ErrorReportMiddleware passes handler errors through the centralized error
// handler for logging and Sentry, then swallows them: by this point every
// user-visible message the flow allows has already been sent.
func ErrorReportMiddleware(errHandler *apperrors.Handler) Middleware {
	return func(next Handler) Handler {
		return func(c telebot.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			if errHandler != nil {
				errHandler.Handle(context.Background(), err)
			}

			return nil
		}
	}
}

// LoggingMiddleware logs each handled update with its duration.
func LoggingMiddleware(log *slog.Logger) Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next Handler) Handler {
		return func(c telebot.Context) error {
			start := time.Now()
			err := next(c)

			attrs := []any{
				slog.String("update", updateName(c)),
				slog.Duration("duration", time.Since(start)),
			}
			if sender := c.Sender(); sender != nil {
				attrs = append(attrs, slog.Int64("chat_id", sender.ID))
			}
			if err != nil {
				attrs = append(attrs, slog.Any("error", err))
				log.Error("update failed", attrs...)
				return err
			}

			log.Info("update handled", attrs...)
			return nil
		}
	}
}

// MetricsMiddleware reports execution time and status to Prometheus.
func MetricsMiddleware(next Handler) Handler {
	return func(c telebot.Context) error {
		start := time.Now()
		err := next(c)

		status := "ok"
		if err != nil {
			status = "error"
		}

		metrics.RecordCommand(updateName(c), status, time.Since(start))
		return err
	}
}

// DedupeMiddleware drops updates already processed once, guarding against
// duplicate callback deliveries.
func DedupeMiddleware(guard *idempotency.Guard, log *slog.Logger) Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next Handler) Handler {
		return func(c telebot.Context) error {
			key := idempotency.Key(c)
			if key != "" && guard.Seen(context.Background(), key) {
				log.Warn("duplicate update dropped", slog.String("key", key))
				return nil
			}

			return next(c)
		}
	}
}

// RateLimitMiddleware drops updates from chats exceeding their budget.
func RateLimitMiddleware(limiter *ratelimit.Limiter, log *slog.Logger) Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next Handler) Handler {
		return func(c telebot.Context) error {
			sender := c.Sender()
			if sender == nil {
				return next(c)
			}

			if !limiter.Allow(context.Background(), sender.ID) {
				log.Warn("rate limit exceeded", slog.Int64("chat_id", sender.ID))
				return c.Send("Too many requests. Please slow down.")
			}

			return next(c)
		}
	}
}

func updateName(c telebot.Context) string {
	if c == nil {
		return "unknown"
	}

	if cb := c.Callback(); cb != nil && cb.Data != "" {
		return strings.TrimPrefix(cb.Data, "\f")
	}

	// Free text would blow up metric label cardinality; only commands keep
	// their name.
	if text := c.Text(); strings.HasPrefix(text, "/") {
		return strings.Fields(text)[0]
	}

	if c.Text() != "" {
		return "text"
	}

	return "unknown"
}

func recoveredError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}

	return fmt.Errorf("panic recovered: %v", r)
}
