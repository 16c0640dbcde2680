package middleware

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/Proton-105/emerans-bots/internal/bot/handlers"
	"github.com/Proton-105/emerans-bots/internal/flow"
	"github.com/Proton-105/emerans-bots/internal/i18n"
	"github.com/Proton-105/emerans-bots/internal/idempotency"
)

// IdempotencyRule guards callbacks starting with Prefix. A press of the same button on
// the same message is ignored for TTL after it succeeded.
type IdempotencyRule struct {
	Prefix string
	TTL    time.Duration
}

// IdempotencyMiddleware drops repeated presses of buttons that move money or decide
// applications.
type IdempotencyMiddleware struct {
	manager idempotency.Manager
	rules   []IdempotencyRule
	t       i18n.Translator
	log     *slog.Logger
}

func NewIdempotencyMiddleware(manager idempotency.Manager, rules []IdempotencyRule, t i18n.Translator, log *slog.Logger) *IdempotencyMiddleware {
	if log == nil {
		log = slog.Default()
	}

	return &IdempotencyMiddleware{
		manager: manager,
		rules:   rules,
		t:       t,
		log:     log,
	}
}

// Handle wraps next. Store failures let the update through.
func (m *IdempotencyMiddleware) Handle(next handlers.Handler) handlers.Handler {
	return func(ctx context.Context, in flow.Input) ([]flow.Effect, error) {
		rule, ok := m.match(in)
		if !ok {
			return next(ctx, in)
		}

		key := idempotency.ButtonKey(in.ChatID, in.MessageID, in.InlineID, in.Data)
		var (
			effects    []flow.Effect
			handlerErr error
			ran        bool
		)
		err := m.manager.Execute(ctx, key, rule.TTL, func(ctx context.Context) error {
			ran = true
			effects, handlerErr = next(ctx, in)
			return handlerErr
		})

		switch {
		case handlerErr != nil:
			return effects, handlerErr
		case err == nil:
			return effects, nil
		case errors.Is(err, idempotency.ErrAlreadyDone):
			m.log.InfoContext(ctx, "repeated button press ignored", slog.Int64("user_id", in.UserID), slog.String("data", in.Data))
			return []flow.Effect{flow.Toast(m.t.T("common.already_done"), false)}, nil
		case errors.Is(err, idempotency.ErrRequestInProgress):
			return []flow.Effect{flow.Toast(m.t.T("common.request_in_progress"), false)}, nil
		default:
			m.log.WarnContext(ctx, "idempotency store error", slog.Any("error", err))
			if ran {
				return effects, nil
			}
			return next(ctx, in)
		}
	}
}

func (m *IdempotencyMiddleware) match(in flow.Input) (IdempotencyRule, bool) {
	if m.manager == nil || in.Kind != flow.KindCallback {
		return IdempotencyRule{}, false
	}

	var best IdempotencyRule
	found := false
	for _, rule := range m.rules {
		if strings.HasPrefix(in.Data, rule.Prefix) && len(rule.Prefix) > len(best.Prefix) {
			best, found = rule, true
		}
	}
	return best, found
}
