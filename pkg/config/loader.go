// Package config provides configuration loading and validation utilities.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configuration from YAML files and environment variables, validates the shared
// sections and the section of the bot being started, and returns the resulting Config.
func Load(bot string) (*Config, *viper.Viper, error) {
	if err := godotenv.Load(".env.local", ".env"); err != nil {
		// env files are optional
		_ = err
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	v := viper.New()
	v.SetConfigFile(fmt.Sprintf("./configs/%s.yaml", env))
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := decode(v, env, bot)
	if err != nil {
		return nil, nil, err
	}

	return cfg, v, nil
}

// LoadFile reads a single YAML file without touching the process environment files.
func LoadFile(path, bot string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	return decode(v, "", bot)
}

// Watch re-reads the config file on change and hands the validated result to onChange.
// Invalid edits are logged and ignored.
func Watch(v *viper.Viper, bot string, log *slog.Logger, onChange func(*Config)) {
	if v == nil || onChange == nil {
		return
	}
	if log == nil {
		log = slog.Default()
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := decode(v, v.GetString("app_env"), bot)
		if err != nil {
			log.Warn("ignoring invalid config change", slog.String("file", e.Name), slog.Any("error", err))
			return
		}
		log.Info("config reloaded", slog.String("file", e.Name))
		onChange(cfg)
	})
	v.WatchConfig()
}

func setDefaults(v *viper.Viper) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 14)
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("metrics.shutdown_timeout", 5*time.Second)
	v.SetDefault("session.backend", "memory")
	v.SetDefault("rate_limit.per_user.limit", 30)
	v.SetDefault("rate_limit.per_user.window", "1m")
	v.SetDefault("rate_limit.admin.limit", 120)
	v.SetDefault("rate_limit.admin.window", "1m")
	v.SetDefault("support.topic_icon_color", 7322096)

	for _, bot := range []string{BotEscort, BotTeam, BotSupport} {
		v.SetDefault(bot+".timeout", 10*time.Second)
		v.SetDefault(bot+".data_file", fmt.Sprintf("data/%s.json", bot))
		// AutomaticEnv only resolves keys viper already knows about.
		v.SetDefault(bot+".token", "")
	}
}

func decode(v *viper.Viper, env, bot string) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if env != "" {
		cfg.AppEnv = env
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	for _, section := range []any{cfg.Log, cfg.Sentry, cfg.Metrics, cfg.Redis, cfg.Session} {
		if err := validate.Struct(section); err != nil {
			return nil, fmt.Errorf("validate config: %w", err)
		}
	}

	if bot != "" {
		section, err := cfg.Section(bot)
		if err != nil {
			return nil, err
		}
		if err := validate.Struct(section); err != nil {
			return nil, fmt.Errorf("validate %s config: %w", bot, err)
		}
	}

	return &cfg, nil
}
