package config

import (
	"fmt"
	"time"
)

// Config holds runtime configuration for the pigeon bot.
type Config struct {
	AppEnv string `mapstructure:"-"`

	Bot      BotConfig      `mapstructure:"bot" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Server   ServerConfig   `mapstructure:"server"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Sentry   SentryConfig   `mapstructure:"sentry"`
	Content  ContentConfig  `mapstructure:"content"`
}

// BotConfig configures the Telegram connection and per-update deadlines.
type BotConfig struct {
	Token          string        `mapstructure:"token" validate:"required"`
	Mode           string        `mapstructure:"mode" validate:"oneof=polling webhook"`
	PollTimeout    time.Duration `mapstructure:"poll_timeout"`
	HandlerTimeout time.Duration `mapstructure:"handler_timeout" validate:"required"`
	WebhookURL     string        `mapstructure:"webhook_url" validate:"required_if=Mode webhook"`
	WebhookListen  string        `mapstructure:"webhook_listen"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     string `mapstructure:"port" validate:"required"`
	User     string `mapstructure:"user" validate:"required"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name" validate:"required"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type SentryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

// ContentConfig points at external message resources rendered by commands.
type ContentConfig struct {
	WelcomePath string `mapstructure:"welcome_path"`
}

// DSN returns the PostgreSQL connection string for the configured database.
func (c DatabaseConfig) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Name,
		sslMode,
	)
}
