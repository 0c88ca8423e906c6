// Package config provides configuration loading and validation utilities.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configuration from YAML files and environment variables,
// validates it, and returns the resulting Config together with the viper
// instance for optional reload watching.
func Load() (*Config, *viper.Viper, error) {
	// Missing env files are fine; values can come from the environment.
	_ = godotenv.Load(".env.local", ".env")

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	v := viper.New()
	v.SetConfigFile(fmt.Sprintf("./configs/%s.yaml", env))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.AppEnv = env

	if err := Validate(&cfg); err != nil {
		return nil, nil, err
	}

	return &cfg, v, nil
}

// Validate checks the configuration against its struct constraints. The bot
// token in particular must be present exactly once at startup; running without
// it is a configuration error, not a runtime condition.
func Validate(cfg *Config) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	return nil
}

// Watch re-reads the config file on change and invokes onReload with the new
// configuration. Invalid updates are logged and skipped, leaving the previous
// configuration in effect.
func Watch(v *viper.Viper, log *slog.Logger, onReload func(*Config)) {
	if v == nil || onReload == nil {
		return
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		var cfg Config
		if err := v.Unmarshal(&cfg); err != nil {
			if log != nil {
				log.Error("config reload failed", slog.String("file", e.Name), slog.Any("error", err))
			}
			return
		}

		if err := Validate(&cfg); err != nil {
			if log != nil {
				log.Error("config reload rejected", slog.String("file", e.Name), slog.Any("error", err))
			}
			return
		}

		if log != nil {
			log.Info("config reloaded", slog.String("file", e.Name))
		}
		onReload(&cfg)
	})

	v.WatchConfig()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.mode", "polling")
	v.SetDefault("bot.poll_timeout", "10s")
	v.SetDefault("bot.handler_timeout", "15s")
	v.SetDefault("bot.webhook_listen", ":8443")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("content.welcome_path", "messages/welcome_message.md")
}
