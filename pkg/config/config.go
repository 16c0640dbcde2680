package config

import (
	"fmt"
	"time"
)

// Config holds runtime configuration shared by the catalog, team and support bots.
type Config struct {
	AppEnv string `mapstructure:"app_env"`

	Log       LogConfig       `mapstructure:"log"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Session   SessionConfig   `mapstructure:"session"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Banner    BannerConfig    `mapstructure:"banner"`

	Escort  EscortConfig  `mapstructure:"escort"`
	Team    TeamConfig    `mapstructure:"team"`
	Support SupportConfig `mapstructure:"support"`
}

// LogConfig controls the slog handler and optional rotating file output.
type LogConfig struct {
	Level      string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// SentryConfig configures error reporting.
type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn" validate:"required_if=Enabled true"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate" validate:"gte=0,lte=1"`
}

// MetricsConfig configures the HTTP server exposing /metrics and health probes.
type MetricsConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Addr            string        `mapstructure:"addr" validate:"required_if=Enabled true"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// RedisConfig is only used when sessions or rate limits are backed by redis.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr" validate:"required_if=Enabled true"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// SessionConfig selects the conversation session backend.
type SessionConfig struct {
	Backend       string        `mapstructure:"backend" validate:"omitempty,oneof=memory redis"`
	IdleTTL       time.Duration `mapstructure:"idle_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// RateLimitRule is a limit per window, e.g. 30 per "1m".
type RateLimitRule struct {
	Limit  int    `mapstructure:"limit"`
	Window string `mapstructure:"window"`
}

// RateLimitConfig defines per-user throttling of inbound updates.
type RateLimitConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	PerUser   RateLimitRule `mapstructure:"per_user"`
	Admin     RateLimitRule `mapstructure:"admin"`
	Whitelist []int64       `mapstructure:"whitelist"`
}

// BannerConfig points the profile card renderer at a font.
type BannerConfig struct {
	FontPath string `mapstructure:"font_path"`
}

// BotConfig holds what every bot needs to talk to Telegram and persist its document.
type BotConfig struct {
	Token     string        `mapstructure:"token" validate:"required"`
	DataFile  string        `mapstructure:"data_file" validate:"required"`
	LogChatID int64         `mapstructure:"log_chat_id"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// EscortConfig configures the catalog bot.
type EscortConfig struct {
	BotConfig `mapstructure:",squash"`
	AdminIDs  []int64 `mapstructure:"admin_ids"`
}

// TeamConfig configures the team bot.
type TeamConfig struct {
	BotConfig   `mapstructure:",squash"`
	AdminIDs    []int64 `mapstructure:"admin_ids"`
	AdminChatID int64   `mapstructure:"admin_chat_id" validate:"required"`
	CatalogBot  string  `mapstructure:"catalog_bot"`
}

// SupportConfig configures the support relay bot.
type SupportConfig struct {
	BotConfig      `mapstructure:",squash"`
	SupportChatID  int64  `mapstructure:"support_chat_id" validate:"required"`
	GreetingText   string `mapstructure:"greeting_text"`
	TopicIconColor int    `mapstructure:"topic_icon_color"`
}

// Bot names accepted by Section.
const (
	BotEscort  = "escort"
	BotTeam    = "team"
	BotSupport = "support"
)

// Section returns the per-bot configuration struct that must be validated before that bot starts.
func (c *Config) Section(name string) (any, error) {
	switch name {
	case BotEscort:
		return c.Escort, nil
	case BotTeam:
		return c.Team, nil
	case BotSupport:
		return c.Support, nil
	default:
		return nil, fmt.Errorf("unknown bot %q", name)
	}
}

// Common returns the BotConfig embedded in the named bot section.
func (c *Config) Common(name string) BotConfig {
	switch name {
	case BotEscort:
		return c.Escort.BotConfig
	case BotTeam:
		return c.Team.BotConfig
	case BotSupport:
		return c.Support.BotConfig
	default:
		return BotConfig{}
	}
}

// IsAdmin reports whether userID is in the given admin set.
func IsAdmin(ids []int64, userID int64) bool {
	for _, id := range ids {
		if id == userID {
			return true
		}
	}
	return false
}
