package lifecycle

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// HealthChecker exposes liveness and readiness probes.
type HealthChecker interface {
	Liveness(ctx context.Context) error
	Readiness(ctx context.Context) error
}

// Probes checks the bot's backing services. A nil redis client means Redis
// is disabled and is skipped.
type Probes struct {
	db    *sql.DB
	redis *redis.Client
	log   *slog.Logger
}

func NewProbes(db *sql.DB, redisClient *redis.Client, log *slog.Logger) *Probes {
	if log == nil {
		log = slog.Default()
	}
	return &Probes{
		db:    db,
		redis: redisClient,
		log:   log,
	}
}

// Liveness reports success as long as the process is able to respond.
func (p *Probes) Liveness(ctx context.Context) error {
	return nil
}

// Readiness pings the database and, when enabled, Redis.
func (p *Probes) Readiness(ctx context.Context) error {
	if p.db != nil {
		if err := p.db.PingContext(ctx); err != nil {
			p.log.Warn("readiness: database unreachable", slog.Any("error", err))
			return fmt.Errorf("database ping: %w", err)
		}
	}

	if p.redis != nil {
		if err := p.redis.Ping(ctx).Err(); err != nil {
			p.log.Warn("readiness: redis unreachable", slog.Any("error", err))
			return fmt.Errorf("redis ping: %w", err)
		}
	}

	return nil
}
