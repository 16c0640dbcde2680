package handlers

import (
	"context"

	"github.com/Proton-105/emerans-bots/internal/flow"
)

// Handler processes one update and returns the effects to apply. It never talks to
// Telegram directly.
type Handler func(ctx context.Context, in flow.Input) ([]flow.Effect, error)

// Middleware wraps handlers with additional behavior.
type Middleware func(Handler) Handler

// Static returns a handler that always produces the same effects.
func Static(effects ...flow.Effect) Handler {
	return func(context.Context, flow.Input) ([]flow.Effect, error) {
		return effects, nil
	}
}
