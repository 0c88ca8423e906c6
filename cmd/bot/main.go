package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pigeonhq/pigeon-bot/internal/apperrors"
	"github.com/pigeonhq/pigeon-bot/internal/bot"
	"github.com/pigeonhq/pigeon-bot/internal/content"
	"github.com/pigeonhq/pigeon-bot/internal/database"
	"github.com/pigeonhq/pigeon-bot/internal/lifecycle"
	"github.com/pigeonhq/pigeon-bot/internal/repository"
	"github.com/pigeonhq/pigeon-bot/pkg/config"
	"github.com/pigeonhq/pigeon-bot/pkg/graceful"
	"github.com/pigeonhq/pigeon-bot/pkg/logger"
	"github.com/pigeonhq/pigeon-bot/pkg/metrics"
	redisclient "github.com/pigeonhq/pigeon-bot/pkg/redis"

	_ "github.com/lib/pq"
)

const usersByStateSampleInterval = time.Minute

func main() {
	if err := run(); err != nil {
		slog.Error("bot exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, v, err := config.Load()
	if err != nil {
		return apperrors.NewConfigError(fmt.Sprintf("load config: %v", err))
	}

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.AppEnv,
		}); err != nil {
			return fmt.Errorf("init sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	log := logger.New(*cfg)
	log.Info("starting pigeon bot",
		slog.String("env", cfg.AppEnv),
		slog.String("mode", cfg.Bot.Mode),
	)

	// Only the log level is applied live; transport and storage changes need
	// a restart.
	config.Watch(v, log, func(updated *config.Config) {
		logger.SetLevel(updated.Logger.Level)
	})

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			log.Error("error closing database", slog.Any("error", cerr))
		}
	}()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	migrator := database.NewMigrator(db, log)
	if err := migrator.ApplyDir(ctx, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	redisClient, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}

	store := repository.NewUserRepository(db, log)
	src := content.NewFileSource(cfg.Content.WelcomePath)

	b, err := bot.New(*cfg, log, store, redisClient, src)
	if err != nil {
		return fmt.Errorf("build bot: %w", err)
	}

	probes := lifecycle.NewProbes(db, redisClient, log)
	httpServer := graceful.NewServer(log, newHTTPServer(cfg.Server.Port, probes), cfg.Server.ShutdownTimeout)

	shutdown := lifecycle.NewShutdown(log)
	shutdown.Register("telegram_bot", func(context.Context) error {
		b.Stop()
		return nil
	})
	if redisClient != nil {
		shutdown.Register("redis", func(context.Context) error {
			return redisClient.Close()
		})
	}

	go sampleUsersByState(ctx, store, log)
	go b.Start()

	log.Info("pigeon bot is running")

	if err := httpServer.ListenAndServe(ctx); err != nil {
		log.Error("http server failed", slog.Any("error", err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := shutdown.Execute(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info("pigeon bot stopped")
	return nil
}

func newHTTPServer(port string, probes lifecycle.HealthChecker) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", probeHandler(probes.Liveness))
	mux.HandleFunc("/readyz", probeHandler(probes.Readiness))

	return &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func probeHandler(probe func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := probe(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// sampleUsersByState periodically refreshes the users_by_state gauge.
func sampleUsersByState(ctx context.Context, store *repository.UserRepository, log *slog.Logger) {
	ticker := time.NewTicker(usersByStateSampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			counts, err := store.CountByState(ctx)
			if err != nil {
				log.Warn("failed to count users by state", slog.Any("error", err))
				continue
			}
			metrics.SetUsersByState(counts)
		}
	}
}
