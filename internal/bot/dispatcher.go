package bot

import (
	"context"
	"log/slog"

	"github.com/Proton-105/emerans-bots/internal/bot/handlers"
	"github.com/Proton-105/emerans-bots/internal/flow"
)

// Dispatcher routes updates into the user's active conversation session.
type Dispatcher struct {
	engine *flow.Engine
	log    *slog.Logger
}

// NewDispatcher creates a Dispatcher over engine. A nil engine disables sessions.
func NewDispatcher(engine *flow.Engine, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}

	return &Dispatcher{
		engine: engine,
		log:    log,
	}
}

// Dispatch feeds the input to the active step. It reports false when there is no session
// or the step does not take this input.
func (d *Dispatcher) Dispatch(ctx context.Context, in flow.Input) (bool, []flow.Effect, error) {
	if d == nil || d.engine == nil || in.UserID == 0 {
		return false, nil, nil
	}
	return d.engine.Step(ctx, in)
}

// Interrupt force-terminates the active session before a command runs. The returned
// context tells the command handler whether a session was dropped.
func (d *Dispatcher) Interrupt(ctx context.Context, in flow.Input) (context.Context, error) {
	if d == nil || d.engine == nil || in.UserID == 0 {
		return ctx, nil
	}

	cancelled, err := d.engine.Cancel(ctx, in.UserID)
	if err != nil {
		return ctx, err
	}
	if cancelled {
		d.log.DebugContext(ctx, "session interrupted by command",
			slog.Int64("user_id", in.UserID),
			slog.String("command", in.Command),
		)
		ctx = handlers.WithCancelled(ctx)
	}
	return ctx, nil
}
