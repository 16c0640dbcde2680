package middleware

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/Proton-105/emerans-bots/internal/bot/handlers"
	apperrors "github.com/Proton-105/emerans-bots/internal/errors"
	"github.com/Proton-105/emerans-bots/internal/flow"
	"github.com/Proton-105/emerans-bots/internal/ratelimit"
)

// RateLimitMiddleware enforces per-user rate limits for incoming Telegram updates.
type RateLimitMiddleware struct {
	limiter ratelimit.Limiter
	rules   *ratelimit.Rules
	isAdmin func(userID int64) bool
	log     *slog.Logger
}

// NewRateLimitMiddleware constructs a rate-limit middleware component. isAdmin selects the
// admin rule and may be nil.
func NewRateLimitMiddleware(limiter ratelimit.Limiter, rules *ratelimit.Rules, isAdmin func(int64) bool, log *slog.Logger) *RateLimitMiddleware {
	if log == nil {
		log = slog.Default()
	}

	return &RateLimitMiddleware{
		limiter: limiter,
		rules:   rules,
		isAdmin: isAdmin,
		log:     log,
	}
}

// Handle wraps next. Over-limit updates get a rate limit reply (or a toast for buttons)
// and never reach the handler. Limiter failures let the update through.
func (m *RateLimitMiddleware) Handle(next handlers.Handler) handlers.Handler {
	return func(ctx context.Context, in flow.Input) ([]flow.Effect, error) {
		if m.limiter == nil || m.rules == nil || in.UserID == 0 {
			return next(ctx, in)
		}

		userID := in.UserID
		if m.rules.Exempt(userID) {
			return next(ctx, in)
		}

		rule := m.rules.For(m.isAdmin != nil && m.isAdmin(userID))
		result, err := m.limiter.Check(ctx, ratelimit.UserKey(userID), rule.Limit, rule.Window)
		if err != nil || result == nil {
			m.log.WarnContext(ctx, "rate limiter error", slog.Int64("user_id", userID), slog.Any("error", err))
			return next(ctx, in)
		}

		if result.Allowed {
			return next(ctx, in)
		}

		m.log.WarnContext(ctx, "rate limit exceeded", slog.Int64("user_id", userID), slog.String("action", in.Action()))

		retryAfter := int(math.Ceil(time.Until(result.ResetAt).Seconds()))
		if retryAfter < 1 {
			retryAfter = 1
		}
		msg := apperrors.NewRateLimitError(retryAfter).UserMessage

		switch in.Kind {
		case flow.KindCallback:
			return []flow.Effect{flow.Toast(msg, false)}, nil
		case flow.KindInline:
			return nil, nil
		default:
			return []flow.Effect{flow.Reply(msg)}, nil
		}
	}
}
