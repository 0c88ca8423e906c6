// Package redis constructs the shared Redis client used for per-user locks,
// update deduplication, and rate limiting.
package redis

import (
	"context"
	"fmt"

	redis "github.com/redis/go-redis/v9"

	"github.com/pigeonhq/pigeon-bot/pkg/config"
)

// New creates a Redis client from the application configuration and verifies
// the connection with a ping. Returns (nil, nil) when Redis is disabled:
// callers treat a nil client as "locking and dedup off".
func New(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return client, nil
}
