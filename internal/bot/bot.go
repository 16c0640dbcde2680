package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	errors "github.com/Proton-105/emerans-bots/internal/errors"
	"github.com/Proton-105/emerans-bots/internal/flow"
	"github.com/Proton-105/emerans-bots/internal/middleware"
	"github.com/Proton-105/emerans-bots/internal/transport"
	"github.com/Proton-105/emerans-bots/pkg/config"
)

// Bot wraps telebot.Bot with the router that feeds every update to the flow engine and
// the stateless handlers of one bot.
type Bot struct {
	telebot    *telebot.Bot
	log        *slog.Logger
	router     *Router
	dispatcher *Dispatcher
	executor   *transport.Executor
	gateway    *transport.Gateway
	errHandler *errors.Handler
}

// Options tune New. Zero values disable the optional parts.
type Options struct {
	Engine        *flow.Engine
	RateLimit     *middleware.RateLimitMiddleware
	Idempotency   *middleware.IdempotencyMiddleware
	SentryEnabled bool
	// Offline builds the bot without contacting Telegram, for tests.
	Offline bool
}

// New builds a telegram bot for one bot section of the configuration.
func New(cfg config.BotConfig, log *slog.Logger, opts Options) (*Bot, error) {
	if log == nil {
		log = slog.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	errHandler := errors.NewHandler(log, opts.SentryEnabled)

	tb, err := telebot.NewBot(telebot.Settings{
		Token:   cfg.Token,
		Poller:  &telebot.LongPoller{Timeout: timeout},
		Offline: opts.Offline,
		OnError: func(err error, c telebot.Context) {
			var upd errors.Update
			if c != nil && c.Sender() != nil {
				upd.UserID = c.Sender().ID
			}
			errHandler.Handle(context.Background(), errors.NewTransportError("update", err), upd)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("initialize telebot: %w", err)
	}

	executor := transport.NewExecutor(tb, cfg.LogChatID, log)
	dispatcher := NewDispatcher(opts.Engine, log)
	router := NewRouter(dispatcher, executor, log)

	b := &Bot{
		telebot:    tb,
		log:        log,
		router:     router,
		dispatcher: dispatcher,
		executor:   executor,
		gateway:    transport.NewGateway(tb),
		errHandler: errHandler,
	}

	b.setupRouter(opts.RateLimit, opts.Idempotency)
	b.registerTelebotHandlers()

	return b, nil
}

// Router exposes the router for the bot's command and callback registrations.
func (b *Bot) Router() *Router {
	return b.router
}

// Executor applies effects outside of an update, e.g. startup notices.
func (b *Bot) Executor() *transport.Executor {
	return b.executor
}

// Gateway exposes downloads, avatars and forum topics.
func (b *Bot) Gateway() *transport.Gateway {
	return b.gateway
}

// Telebot exposes the underlying telebot.Bot instance for integrations such as health checks.
func (b *Bot) Telebot() *telebot.Bot {
	return b.telebot
}

// PublishCommands sets the command menu shown by Telegram clients.
func (b *Bot) PublishCommands(commands []telebot.Command) {
	if len(commands) == 0 {
		return
	}
	if err := b.telebot.SetCommands(commands); err != nil {
		b.log.Warn("failed to publish commands", slog.Any("error", err))
	}
}

// Start runs the telegram bot event loop. It blocks until Stop.
func (b *Bot) Start() {
	if b.telebot != nil {
		b.telebot.Start()
	}
}

// Stop gracefully stops the telegram bot.
func (b *Bot) Stop() {
	if b.telebot == nil {
		return
	}

	b.log.Info("stopping telegram bot...")
	b.telebot.Stop()
}

func (b *Bot) setupRouter(rateLimit *middleware.RateLimitMiddleware, idem *middleware.IdempotencyMiddleware) {
	b.router.Use(CorrelationMiddleware())
	b.router.Use(RecoveryMiddleware(b.log, b.errHandler))
	b.router.Use(ErrorHandlingMiddleware(b.errHandler))
	b.router.Use(LoggingMiddleware(b.log))
	b.router.Use(middleware.Metrics(b.router.HasCommand))
	if rateLimit != nil {
		b.router.Use(rateLimit.Handle)
	}
	if idem != nil {
		b.router.Use(idem.Handle)
	}
}

func (b *Bot) registerTelebotHandlers() {
	for _, endpoint := range []string{
		telebot.OnText,
		telebot.OnCallback,
		telebot.OnPhoto,
		telebot.OnDocument,
		telebot.OnQuery,
	} {
		b.telebot.Handle(endpoint, b.router.Route)
	}
}
