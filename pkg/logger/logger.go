// Package logger builds the application slog.Logger: leveled JSON or text
// output, optional rotating file, sensitive-attribute masking, and a Sentry
// tee for error records.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	slogsentry "github.com/samber/slog-sentry/v2"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/pigeonhq/pigeon-bot/pkg/config"
)

var level slog.LevelVar

// SetLevel adjusts the root logger level at runtime, e.g. on config reload.
func SetLevel(name string) {
	level.Set(parseLevel(name))
}

// New constructs the root logger according to the logger and sentry sections
// of the configuration.
func New(cfg config.Config) *slog.Logger {
	level.Set(parseLevel(cfg.Logger.Level))

	var out io.Writer = os.Stdout
	if cfg.Logger.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.Logger.File,
			MaxSize:    cfg.Logger.MaxSizeMB,
			MaxBackups: cfg.Logger.MaxBackups,
			MaxAge:     cfg.Logger.MaxAgeDays,
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, rotating)
	}

	opts := &slog.HandlerOptions{Level: &level}

	var handler slog.Handler
	if strings.EqualFold(cfg.Logger.Format, "text") {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	handler = NewMaskingHandler(handler)

	if cfg.Sentry.Enabled {
		sentryHandler := slogsentry.Option{Level: slog.LevelError}.NewSentryHandler()
		handler = newTeeHandler(handler, sentryHandler)
	}

	log := slog.New(handler).With(slog.String("env", cfg.AppEnv))
	slog.SetDefault(log)

	return log
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
