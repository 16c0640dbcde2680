package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/Proton-105/emerans-bots/internal/bot/handlers"
	"github.com/Proton-105/emerans-bots/internal/flow"
	"github.com/Proton-105/emerans-bots/pkg/metrics"
)

// Metrics records every update by kind and action. Free-form commands are folded
// into one label so users cannot grow the series.
func Metrics(known func(command string) bool) handlers.Middleware {
	return func(next handlers.Handler) handlers.Handler {
		return func(ctx context.Context, in flow.Input) ([]flow.Effect, error) {
			start := time.Now()
			effects, err := next(ctx, in)

			status := "ok"
			switch {
			case err != nil:
				status = "error"
			case len(effects) == 0:
				status = "silent"
			}

			action := in.Action()
			if in.Kind == flow.KindCommand && (known == nil || !known(strings.TrimPrefix(action, "/"))) {
				action = "/other"
			}
			metrics.RecordUpdate(in.Kind.String(), action, status, time.Since(start))
			return effects, err
		}
	}
}
