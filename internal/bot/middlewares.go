package bot

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/Proton-105/emerans-bots/internal/bot/handlers"
	errors "github.com/Proton-105/emerans-bots/internal/errors"
	"github.com/Proton-105/emerans-bots/internal/flow"
	"github.com/Proton-105/emerans-bots/pkg/logger"
)

func updateOf(in flow.Input) errors.Update {
	return errors.Update{UserID: in.UserID, ChatID: in.ChatID, Action: in.Action()}
}

// RecoveryMiddleware catches panics, reports them via the centralized handler, and notifies the user.
func RecoveryMiddleware(log *slog.Logger, errHandler *errors.Handler) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		return func(ctx context.Context, in flow.Input) (effects []flow.Effect, err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}

				userMsg := errors.FallbackMessage
				if errHandler != nil {
					userMsg = errHandler.HandlePanic(ctx, r, debug.Stack(), updateOf(in))
				} else {
					log.ErrorContext(ctx, "handler panicked", slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
				}

				effects, err = nil, nil
				if in.Kind != flow.KindInline {
					effects = []flow.Effect{flow.Reply(userMsg)}
				}
			}()

			return next(ctx, in)
		}
	}
}

// CorrelationMiddleware tags every update with a fresh correlation id.
func CorrelationMiddleware() handlers.Middleware {
	return func(next handlers.Handler) handlers.Handler {
		return func(ctx context.Context, in flow.Input) ([]flow.Effect, error) {
			return next(logger.WithCorrelationID(ctx), in)
		}
	}
}

// ErrorHandlingMiddleware centralizes error reporting and turns handler failures into a reply.
func ErrorHandlingMiddleware(errHandler *errors.Handler) handlers.Middleware {
	return func(next handlers.Handler) handlers.Handler {
		return func(ctx context.Context, in flow.Input) ([]flow.Effect, error) {
			effects, err := next(ctx, in)
			if err == nil {
				return effects, nil
			}

			userMsg := errors.FallbackMessage
			if errHandler != nil {
				userMsg = errHandler.Handle(ctx, err, updateOf(in))
			}

			if in.Kind == flow.KindInline {
				return effects, nil
			}
			return append(effects, flow.Reply(userMsg)), nil
		}
	}
}

// LoggingMiddleware logs basic telemetry about incoming updates.
func LoggingMiddleware(log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		return func(ctx context.Context, in flow.Input) ([]flow.Effect, error) {
			start := time.Now()
			action := in.Action()

			log.DebugContext(ctx, "handling update",
				slog.Int64("user_id", in.UserID),
				slog.String("kind", in.Kind.String()),
				slog.String("action", action),
			)
			effects, err := next(ctx, in)
			log.InfoContext(ctx, "handled update",
				slog.Int64("user_id", in.UserID),
				slog.String("kind", in.Kind.String()),
				slog.String("action", action),
				slog.Int("effects", len(effects)),
				slog.Duration("duration", time.Since(start)),
				slog.Any("error", err),
			)

			return effects, err
		}
	}
}
