package bot

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/emerans-bots/internal/bot/handlers"
	"github.com/Proton-105/emerans-bots/internal/flow"
	"github.com/Proton-105/emerans-bots/internal/transport"
)

// Router dispatches commands, callbacks, and session-aware updates.
//
// Priority: a command always wins and terminates any active session; a callback goes to the
// active step when that step takes its prefix, otherwise to the longest matching prefix
// handler; text and photos go to the active step, otherwise to the default handler.
type Router struct {
	mu             sync.RWMutex
	commands       map[string]handlers.Handler
	callbacks      map[string]handlers.Handler
	dispatcher     *Dispatcher
	defaultHandler handlers.Handler
	inlineHandler  handlers.Handler
	middlewares    []handlers.Middleware
	executor       *transport.Executor
	log            *slog.Logger
}

// NewRouter builds a Router with empty registries.
func NewRouter(dispatcher *Dispatcher, executor *transport.Executor, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}

	return &Router{
		commands:    make(map[string]handlers.Handler),
		callbacks:   make(map[string]handlers.Handler),
		dispatcher:  dispatcher,
		middlewares: make([]handlers.Middleware, 0),
		executor:    executor,
		log:         log,
	}
}

// RegisterCommand registers a handler for a bot command, given without the slash.
func (r *Router) RegisterCommand(cmd string, h handlers.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[strings.TrimPrefix(strings.ToLower(cmd), "/")] = h
}

// RegisterCallback registers a handler for callback data starting with prefix.
func (r *Router) RegisterCallback(prefix string, h handlers.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks[prefix] = h
}

// Use appends a middleware to the chain.
func (r *Router) Use(mw handlers.Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares = append(r.middlewares, mw)
}

// SetDefault sets the fallback handler for text and photos outside of a session.
func (r *Router) SetDefault(h handlers.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultHandler = h
}

// SetInline sets the inline query handler.
func (r *Router) SetInline(h handlers.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inlineHandler = h
}

// Route is the telebot entry point: it converts the update, dispatches it and applies the effects.
func (r *Router) Route(c telebot.Context) error {
	if c == nil {
		return nil
	}

	in := transport.InputFrom(c)
	ctx := context.Background()

	effects, err := r.Dispatch(ctx, in)
	if err != nil {
		r.log.Error("unhandled dispatch error", slog.Int64("user_id", in.UserID), slog.Any("error", err))
	}

	if r.executor != nil {
		r.executor.Run(ctx, in, effects)
	}
	return nil
}

// Dispatch resolves and runs the handler for in through the middleware chain.
func (r *Router) Dispatch(ctx context.Context, in flow.Input) ([]flow.Effect, error) {
	wrapped := r.applyMiddlewares(r.resolve)
	return wrapped(ctx, in)
}

func (r *Router) resolve(ctx context.Context, in flow.Input) ([]flow.Effect, error) {
	switch in.Kind {
	case flow.KindInline:
		if h := r.getInlineHandler(); h != nil {
			return h(ctx, in)
		}
		return nil, nil

	case flow.KindCommand:
		ctx, err := r.dispatcher.Interrupt(ctx, in)
		if err != nil {
			return nil, err
		}
		if h := r.getCommandHandler(in.Command); h != nil {
			return h(ctx, in)
		}
		r.log.DebugContext(ctx, "no command handler found", slog.String("command", in.Command))
		return nil, nil

	case flow.KindCallback:
		handled, effects, err := r.dispatcher.Dispatch(ctx, in)
		if handled || err != nil {
			return effects, err
		}
		if h := r.findCallbackHandler(in.Data); h != nil {
			return h(ctx, in)
		}
		r.log.InfoContext(ctx, "no callback handler found", slog.String("data", in.Data))
		return nil, nil

	case flow.KindText, flow.KindPhoto:
		handled, effects, err := r.dispatcher.Dispatch(ctx, in)
		if handled || err != nil {
			return effects, err
		}
		if h := r.getDefaultHandler(); h != nil {
			return h(ctx, in)
		}
		return nil, nil

	default:
		return nil, nil
	}
}

// findCallbackHandler picks the longest registered prefix of data.
func (r *Router) findCallbackHandler(data string) handlers.Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		best    handlers.Handler
		bestLen = -1
	)
	for prefix, handler := range r.callbacks {
		if strings.HasPrefix(data, prefix) && len(prefix) > bestLen {
			best, bestLen = handler, len(prefix)
		}
	}

	return best
}

// HasCommand reports whether cmd, given without the slash, has a handler.
func (r *Router) HasCommand(cmd string) bool {
	return r.getCommandHandler(cmd) != nil
}

func (r *Router) getCommandHandler(cmd string) handlers.Handler {
	r.mu.RLock()
	handler := r.commands[cmd]
	r.mu.RUnlock()
	return handler
}

func (r *Router) getDefaultHandler() handlers.Handler {
	r.mu.RLock()
	handler := r.defaultHandler
	r.mu.RUnlock()
	return handler
}

func (r *Router) getInlineHandler() handlers.Handler {
	r.mu.RLock()
	handler := r.inlineHandler
	r.mu.RUnlock()
	return handler
}

// applyMiddlewares wraps the handler with all registered middlewares, first registered outermost.
func (r *Router) applyMiddlewares(h handlers.Handler) handlers.Handler {
	middlewares := r.middlewaresSnapshot()
	wrapped := h
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}

	return wrapped
}

func (r *Router) middlewaresSnapshot() []handlers.Middleware {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.middlewares) == 0 {
		return nil
	}

	snapshot := make([]handlers.Middleware, len(r.middlewares))
	copy(snapshot, r.middlewares)
	return snapshot
}
