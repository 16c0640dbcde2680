package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Proton-105/emerans-bots/internal/state"
	"github.com/Proton-105/emerans-bots/pkg/metrics"
)

var (
	// ErrUnknownFlow is returned by Begin for a flow that was never registered.
	ErrUnknownFlow = errors.New("unknown flow")
	// ErrInvalidFlow is returned by Register for malformed definitions.
	ErrInvalidFlow = errors.New("invalid flow definition")
)

type boundStep struct {
	flow  *Flow
	index int
}

// Engine drives every registered flow of one bot on top of a session state machine.
type Engine struct {
	fsm         state.StateMachine
	transitions state.Transitions
	flows       map[string]*Flow
	steps       map[state.State]boundStep
	log         *slog.Logger
}

// NewEngine builds an engine whose sessions live in storage.
func NewEngine(storage state.Storage, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}

	transitions := state.NewTransitions()
	return &Engine{
		fsm:         state.NewStateMachine(storage, transitions, log),
		transitions: transitions,
		flows:       make(map[string]*Flow),
		steps:       make(map[state.State]boundStep),
		log:         log,
	}
}

// Machine exposes the underlying state machine, e.g. for session gauges.
func (e *Engine) Machine() state.StateMachine {
	return e.fsm
}

// Register adds flows and their step edges to the transition table.
// Step states must be unique across all flows of the engine.
func (e *Engine) Register(flows ...Flow) error {
	for i := range flows {
		f := flows[i]
		if f.Name == "" || len(f.Steps) == 0 {
			return fmt.Errorf("%w: %q has no name or steps", ErrInvalidFlow, f.Name)
		}
		if _, exists := e.flows[f.Name]; exists {
			return fmt.Errorf("%w: flow %q registered twice", ErrInvalidFlow, f.Name)
		}
		seen := make(map[state.State]struct{}, len(f.Steps))
		for _, step := range f.Steps {
			if step.State == "" || step.State == state.StateIdle || step.Handle == nil {
				return fmt.Errorf("%w: %q has an unnamed or unhandled step", ErrInvalidFlow, f.Name)
			}
			_, dup := seen[step.State]
			if _, exists := e.steps[step.State]; exists || dup {
				return fmt.Errorf("%w: state %q registered twice", ErrInvalidFlow, step.State)
			}
			seen[step.State] = struct{}{}
		}

		stored := &f
		e.flows[f.Name] = stored
		for idx, step := range f.Steps {
			e.steps[step.State] = boundStep{flow: stored, index: idx}

			next := step.Next
			if len(next) == 0 && idx+1 < len(f.Steps) {
				next = []state.State{f.Steps[idx+1].State}
			}
			e.transitions.Allow(step.State, next...)
		}
	}
	return nil
}

// Active returns the user's session, or nil when the user is not inside a flow.
func (e *Engine) Active(ctx context.Context, userID int64) (*state.UserState, error) {
	st, err := e.fsm.GetState(ctx, userID)
	if errors.Is(err, state.ErrStateNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return st, nil
}

// Begin starts flow name for the user, replacing any session in progress, and returns
// the first step's prompt.
func (e *Engine) Begin(ctx context.Context, in Input, name string, seed Bag) ([]Effect, error) {
	f, ok := e.flows[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFlow, name)
	}

	if _, err := e.Cancel(ctx, in.UserID); err != nil {
		return nil, err
	}

	bag := seed
	if bag == nil {
		bag = Bag{}
	}

	first := f.Steps[0]
	if err := e.fsm.SetState(ctx, in.UserID, f.Name, first.State, map[string]interface{}(bag)); err != nil {
		return nil, fmt.Errorf("begin %s: %w", name, err)
	}
	metrics.RecordFlow(f.Name, "started")

	e.log.DebugContext(ctx, "flow started",
		slog.String("flow", f.Name),
		slog.Int64("user_id", in.UserID),
	)

	if first.Prompt == nil {
		return nil, nil
	}
	return first.Prompt(in, bag), nil
}

// Step feeds the input to the user's active step. handled is false when no session is
// active or the active step does not take this kind of input; the caller then falls back
// to stateless handlers.
func (e *Engine) Step(ctx context.Context, in Input) (handled bool, effects []Effect, err error) {
	st, err := e.Active(ctx, in.UserID)
	if err != nil || st == nil {
		return false, nil, err
	}

	bound, ok := e.steps[st.CurrentState]
	if !ok || bound.flow.Name != st.Flow {
		e.log.WarnContext(ctx, "dropping session with unknown step",
			slog.Int64("user_id", in.UserID),
			slog.String("flow", st.Flow),
			slog.String("state", string(st.CurrentState)),
		)
		return false, nil, e.fsm.ClearState(ctx, in.UserID)
	}

	step := bound.flow.Steps[bound.index]
	if !step.Accepts(in) {
		return false, nil, nil
	}

	bag := Bag(st.Context).clone()
	out, err := step.Handle(ctx, in, bag)
	if err != nil {
		return true, nil, err
	}

	switch out.kind {
	case outcomeAdvance:
		next, ok := e.steps[out.next]
		if !ok || next.flow != bound.flow {
			return true, nil, fmt.Errorf("%w: %s cannot advance to %s", ErrInvalidFlow, st.CurrentState, out.next)
		}
		if err := e.fsm.TransitionTo(ctx, in.UserID, out.next, map[string]interface{}(bag)); err != nil {
			return true, nil, err
		}
		effects = append(effects, out.effects...)
		if prompt := next.flow.Steps[next.index].Prompt; prompt != nil {
			effects = append(effects, prompt(in, bag)...)
		}
		return true, effects, nil

	case outcomeFinish, outcomeAbort:
		if err := e.fsm.ClearState(ctx, in.UserID); err != nil {
			return true, out.effects, err
		}
		result := "finished"
		if out.kind == outcomeAbort {
			result = "aborted"
		}
		metrics.RecordFlow(bound.flow.Name, result)
		return true, out.effects, nil

	default:
		if err := e.fsm.TransitionTo(ctx, in.UserID, st.CurrentState, map[string]interface{}(bag)); err != nil {
			return true, nil, err
		}
		return true, out.effects, nil
	}
}

// Cancel drops the user's session. It reports whether one was active.
func (e *Engine) Cancel(ctx context.Context, userID int64) (bool, error) {
	st, err := e.Active(ctx, userID)
	if err != nil || st == nil {
		return false, err
	}
	if err := e.fsm.ClearState(ctx, userID); err != nil {
		return false, err
	}
	metrics.RecordFlow(st.Flow, "cancelled")
	return true, nil
}
