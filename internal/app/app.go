// Package app assembles one bot process: configuration, logging, the document store,
// sessions, rate limiting, the Telegram poller and the metrics/health server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/spf13/viper"

	"github.com/Proton-105/emerans-bots/internal/bot"
	"github.com/Proton-105/emerans-bots/internal/flow"
	"github.com/Proton-105/emerans-bots/internal/health"
	"github.com/Proton-105/emerans-bots/internal/i18n"
	"github.com/Proton-105/emerans-bots/internal/idempotency"
	"github.com/Proton-105/emerans-bots/internal/lifecycle"
	"github.com/Proton-105/emerans-bots/internal/middleware"
	"github.com/Proton-105/emerans-bots/internal/ratelimit"
	"github.com/Proton-105/emerans-bots/internal/state"
	"github.com/Proton-105/emerans-bots/pkg/config"
	"github.com/Proton-105/emerans-bots/pkg/logger"
	"github.com/Proton-105/emerans-bots/pkg/metrics"
	redispkg "github.com/Proton-105/emerans-bots/pkg/redis"
)

const sentryFlushTimeout = 2 * time.Second

// Handlers is what each bot package exposes to the router.
type Handlers interface {
	Register(r *bot.Router)
	Commands() []string
}

// Options tune New.
type Options struct {
	// Offline builds the Telegram client without contacting the API, for tests.
	Offline bool
}

// App is one assembled bot process.
type App struct {
	name     string
	cfg      *config.Config
	log      *slog.Logger
	tr       i18n.Translator
	redis    *redispkg.Client
	sessions state.Storage
	engine   *flow.Engine
	limiter  ratelimit.Limiter
	admins   *bot.Admins
	bot      *bot.Bot
	handlers Handlers
	checker  *health.Checker
	probes   *lifecycle.Probes
	shutdown *lifecycle.Shutdown
	workers  []func(ctx context.Context)
}

// Run loads the configuration for the named bot and serves it until ctx is cancelled.
func Run(ctx context.Context, name string) error {
	cfg, v, err := config.Load(name)
	if err != nil {
		return err
	}

	log, closer := logger.New(cfg.Log, cfg.Sentry.Enabled, name)
	defer func() { _ = closer.Close() }()
	slog.SetDefault(log)

	if cfg.Sentry.Enabled {
		if err := initSentry(cfg.Sentry, cfg.AppEnv); err != nil {
			log.Warn("sentry disabled", slog.Any("error", err))
			cfg.Sentry.Enabled = false
		} else {
			defer sentry.Flush(sentryFlushTimeout)
		}
	}

	log.Info("starting bot", slog.String("env", cfg.AppEnv), slog.String("session_backend", cfg.Session.Backend))

	a, err := New(ctx, name, cfg, log, Options{})
	if err != nil {
		return err
	}
	a.watch(v)

	return a.Run(ctx)
}

func initSentry(cfg config.SentryConfig, env string) error {
	if cfg.Environment != "" {
		env = cfg.Environment
	}
	rate := cfg.SampleRate
	if rate == 0 {
		rate = 1
	}
	return sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: env,
		SampleRate:  rate,
	})
}

// New builds every component of the named bot without starting it.
func New(ctx context.Context, name string, cfg *config.Config, log *slog.Logger, opts Options) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if _, err := cfg.Section(name); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}

	a := &App{
		name:     name,
		cfg:      cfg,
		log:      log,
		tr:       i18n.MustLoad(defaultLang).Translator(defaultLang),
		admins:   bot.NewAdmins(adminIDs(cfg, name)),
		checker:  health.NewChecker(log),
		shutdown: lifecycle.NewShutdown(log),
	}
	a.probes = lifecycle.NewProbes(log, a.checker)

	if err := a.connectRedis(ctx); err != nil {
		return nil, err
	}
	if err := a.setupSessions(); err != nil {
		a.closeRedis()
		return nil, err
	}
	rateLimit, err := a.setupRateLimit()
	if err != nil {
		a.closeRedis()
		return nil, err
	}
	idem := a.setupIdempotency()

	common := botConfig(cfg, name)
	b, err := bot.New(common, log, bot.Options{
		Engine:        a.engine,
		RateLimit:     rateLimit,
		Idempotency:   idem,
		SentryEnabled: cfg.Sentry.Enabled,
		Offline:       opts.Offline,
	})
	if err != nil {
		a.closeRedis()
		return nil, err
	}
	a.bot = b
	if !opts.Offline {
		a.checker.AddCheck("telegram", health.NewTelegramChecker(b.Telebot()))
	}

	handlers, err := a.buildHandlers(ctx, common)
	if err != nil {
		a.closeRedis()
		return nil, fmt.Errorf("build %s handlers: %w", name, err)
	}
	handlers.Register(b.Router())
	a.handlers = handlers

	a.workers = append(a.workers, metrics.NewStateCollector(a.engine.Machine()).Run)

	return a, nil
}

// Run starts polling and the background workers, then blocks until ctx is cancelled
// and runs the shutdown hooks.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.bot.PublishCommands(bot.CommandMenu(a.tr, a.handlers.Commands()...))

	for _, worker := range a.workers {
		go worker(ctx)
	}

	serverDone := make(chan error, 1)
	if server := a.httpServer(); server != nil {
		go func() {
			err := server.ListenAndServe(ctx)
			if err != nil {
				a.log.Error("metrics server failed", slog.Any("error", err))
			}
			serverDone <- err
		}()
	} else {
		serverDone <- nil
	}

	go a.bot.Start()
	a.probes.MarkReady()
	a.log.Info("bot started", slog.String("bot", a.name))

	<-ctx.Done()
	a.probes.MarkStopping()

	timeout := a.cfg.Metrics.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), timeout)
	defer cancelShutdown()

	// polling stops first so no handler runs while stores and redis close
	a.bot.Stop()
	err := a.shutdown.Execute(shutdownCtx)

	if serverErr := <-serverDone; serverErr != nil && err == nil {
		err = serverErr
	}
	a.log.Info("bot stopped", slog.String("bot", a.name))
	return err
}

// watch applies admin list edits from the config file without a restart.
func (a *App) watch(v *viper.Viper) {
	config.Watch(v, a.name, a.log, func(cfg *config.Config) {
		a.admins.Set(adminIDs(cfg, a.name))
	})
}

func adminIDs(cfg *config.Config, name string) []int64 {
	switch name {
	case config.BotEscort:
		return cfg.Escort.AdminIDs
	case config.BotTeam:
		return cfg.Team.AdminIDs
	default:
		return nil
	}
}

// botConfig returns the bot section, sending the support bot's log lines to its
// support chat when no log chat is set.
func botConfig(cfg *config.Config, name string) config.BotConfig {
	common := cfg.Common(name)
	if name == config.BotSupport && common.LogChatID == 0 {
		common.LogChatID = cfg.Support.SupportChatID
	}
	return common
}

func (a *App) connectRedis(ctx context.Context) error {
	if !a.cfg.Redis.Enabled {
		return nil
	}

	client, err := redispkg.New(ctx, a.cfg.Redis)
	if err != nil {
		return err
	}
	a.redis = client
	a.checker.AddCheck("redis", health.NewRedisChecker(client.Client))
	a.shutdown.Register("redis", func(context.Context) error { return client.Close() })
	return nil
}

func (a *App) closeRedis() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

func (a *App) setupSessions() error {
	switch a.cfg.Session.Backend {
	case "", "memory":
		a.sessions = state.NewMemoryStorage()
	case "redis":
		if a.redis == nil {
			return errors.New("session backend redis requires redis.enabled")
		}
		a.sessions = state.NewRedisStorage(a.redis.Client, "session:"+a.name, a.cfg.Session.IdleTTL, a.log)
	default:
		return fmt.Errorf("unknown session backend %q", a.cfg.Session.Backend)
	}

	a.engine = flow.NewEngine(a.sessions, a.log)
	cleaner := state.NewCleaner(a.sessions, a.log, a.cfg.Session.IdleTTL, a.cfg.Session.SweepInterval)
	a.workers = append(a.workers, cleaner.Run)
	return nil
}

// setupRateLimit returns nil when throttling is disabled. With redis the limiter falls
// back to process memory whenever redis fails.
func (a *App) setupRateLimit() (*middleware.RateLimitMiddleware, error) {
	if !a.cfg.RateLimit.Enabled {
		return nil, nil
	}
	rules, err := ratelimit.NewRules(a.cfg.RateLimit)
	if err != nil {
		return nil, err
	}

	memory := ratelimit.NewMemoryLimiter(a.log)
	a.limiter = memory
	if a.redis != nil {
		a.limiter = ratelimit.NewAdaptiveLimiter(ratelimit.NewRedisLimiter(a.redis.Client, a.name, a.log), memory, a.log)
		cleaner := ratelimit.NewCleaner(a.redis.Client, a.name, a.log, 10*time.Minute, time.Hour)
		a.workers = append(a.workers, cleaner.Run)
	}
	a.workers = append(a.workers, func(ctx context.Context) {
		memory.Run(ctx, 10*time.Minute, time.Hour)
	})

	var isAdmin func(int64) bool
	if a.name != config.BotSupport {
		isAdmin = a.admins.Contains
	}
	return middleware.NewRateLimitMiddleware(a.limiter, rules, isAdmin, a.log), nil
}

// guardedButtons lists the callbacks that must not run twice for one message. Only
// buttons whose data never repeats on a redrawn message qualify: catalog admin buttons
// carry list indexes and section names that come back after a delete or a toggle.
func guardedButtons(name string) []middleware.IdempotencyRule {
	switch name {
	case config.BotTeam:
		return []middleware.IdempotencyRule{
			{Prefix: "withdraw:take:", TTL: 24 * time.Hour},
			{Prefix: "admin:accept:", TTL: 24 * time.Hour},
			{Prefix: "admin:reject:", TTL: 24 * time.Hour},
		}
	default:
		return nil
	}
}

func (a *App) setupIdempotency() *middleware.IdempotencyMiddleware {
	rules := guardedButtons(a.name)
	if len(rules) == 0 {
		return nil
	}

	var st idempotency.Store
	if a.redis != nil {
		st = idempotency.NewRedisStore(a.redis.Client, a.name, a.log)
	} else {
		memory := idempotency.NewMemoryStore()
		a.workers = append(a.workers, func(ctx context.Context) { memory.Run(ctx, 10*time.Minute, a.log) })
		st = memory
	}
	return middleware.NewIdempotencyMiddleware(idempotency.NewManager(st, a.log), rules, a.tr, a.log)
}
