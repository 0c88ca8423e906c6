// Package ratelimit bounds per-user update rates with a Redis sliding window.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Limiter throttles updates per chat. A nil Redis client disables limiting,
// and Redis errors fail open: throttling is protection, not a gate.
type Limiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	log    *slog.Logger
}

// NewLimiter allows up to limit updates per chat within window.
func NewLimiter(client *redis.Client, limit int, window time.Duration, log *slog.Logger) *Limiter {
	if log == nil {
		log = slog.Default()
	}

	return &Limiter{
		client: client,
		limit:  limit,
		window: window,
		log:    log,
	}
}

// Allow reports whether the chat may process another update right now.
func (l *Limiter) Allow(ctx context.Context, chatID int64) bool {
	if l == nil || l.client == nil || l.limit <= 0 {
		return true
	}

	now := time.Now()
	key := fmt.Sprintf("ratelimit:chat:%d", chatID)
	cutoff := float64(now.Add(-l.window).UnixNano()) / float64(time.Millisecond)
	score := float64(now.UnixNano()) / float64(time.Millisecond)

	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("(%f", cutoff))
	pipe.ZAdd(ctx, key, redis.Z{Score: score, Member: uuid.NewString()})
	countCmd := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, l.window*2)

	if _, err := pipe.Exec(ctx); err != nil {
		l.log.Error("rate limiter pipeline failed", slog.Int64("chat_id", chatID), slog.Any("error", err))
		return true
	}

	count, err := countCmd.Result()
	if err != nil {
		l.log.Error("rate limiter failed to read count", slog.Int64("chat_id", chatID), slog.Any("error", err))
		return true
	}

	return count <= int64(l.limit)
}
