// Package idempotency deduplicates Telegram update deliveries so that a
// replayed update (e.g. a duplicate callback after a long-poll retry) is
// handled at most once.
package idempotency

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	telebot "gopkg.in/telebot.v3"
)

const defaultTTL = 24 * time.Hour

// Guard marks update keys as seen in Redis. A nil client disables the guard,
// which then reports every update as fresh.
type Guard struct {
	client *redis.Client
	ttl    time.Duration
	log    *slog.Logger
}

// NewGuard constructs a Guard with the given TTL; ttl <= 0 uses the default.
func NewGuard(client *redis.Client, ttl time.Duration, log *slog.Logger) *Guard {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if log == nil {
		log = slog.Default()
	}

	return &Guard{
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

// Seen atomically records the key and reports whether it was already present.
// Errors fail open: a broken Redis must not drop user updates.
func (g *Guard) Seen(ctx context.Context, key string) bool {
	if g == nil || g.client == nil || key == "" {
		return false
	}

	fresh, err := g.client.SetNX(ctx, "update:seen:"+key, 1, g.ttl).Result()
	if err != nil {
		g.log.Error("idempotency check failed", slog.String("key", key), slog.Any("error", err))
		return false
	}

	return !fresh
}

// Key derives a stable deduplication key from a Telegram update: the callback
// ID when present, otherwise the chat and message identifiers.
func Key(c telebot.Context) string {
	if c == nil {
		return ""
	}

	if cb := c.Callback(); cb != nil {
		if cb.ID != "" {
			return fmt.Sprintf("cb:%s", cb.ID)
		}
	}

	if msg := c.Message(); msg != nil && msg.ID != 0 {
		chatID := int64(0)
		if msg.Chat != nil {
			chatID = msg.Chat.ID
		}
		return fmt.Sprintf("msg:%d:%d", chatID, msg.ID)
	}

	return ""
}
