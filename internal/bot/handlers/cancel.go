package handlers

import (
	"context"

	"github.com/Proton-105/emerans-bots/internal/flow"
	"github.com/Proton-105/emerans-bots/internal/i18n"
)

type cancelledKey struct{}

// WithCancelled marks ctx as carrying an update whose command terminated an active session.
func WithCancelled(ctx context.Context) context.Context {
	return context.WithValue(ctx, cancelledKey{}, true)
}

// Cancelled reports whether the current command terminated an active session.
func Cancelled(ctx context.Context) bool {
	v, _ := ctx.Value(cancelledKey{}).(bool)
	return v
}

// NewCancelHandler confirms the cancellation and then shows menu, when set.
// The router has already dropped the session by the time a command handler runs.
func NewCancelHandler(t i18n.Translator, menu Handler) Handler {
	return func(ctx context.Context, in flow.Input) ([]flow.Effect, error) {
		key := "common.nothing_to_cancel"
		if Cancelled(ctx) {
			key = "common.cancelled"
		}

		effects := []flow.Effect{flow.Reply(t.T(key))}
		if menu == nil {
			return effects, nil
		}

		more, err := menu(ctx, in)
		if err != nil {
			return effects, err
		}
		return append(effects, more...), nil
	}
}
