package state

import (
	"context"
	"errors"
	"log/slog"
)

var (
	// ErrInvalidTransition indicates that a requested FSM transition is not allowed.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrStateNotFound indicates that a user state record does not exist.
	ErrStateNotFound = errors.New("user state not found")
)

var transitionRecorder = func(from, to string) {}

// RegisterTransitionRecorder allows external packages to observe FSM transitions.
func RegisterTransitionRecorder(recorder func(from, to string)) {
	if recorder == nil {
		transitionRecorder = func(string, string) {}
		return
	}

	transitionRecorder = recorder
}

// StateMachine describes the operations supported by the FSM controller.
type StateMachine interface {
	GetState(ctx context.Context, userID int64) (*UserState, error)
	SetState(ctx context.Context, userID int64, flow string, state State, contextData map[string]interface{}) error
	TransitionTo(ctx context.Context, userID int64, newState State, contextData map[string]interface{}) error
	ClearState(ctx context.Context, userID int64) error
	GetAllStates(ctx context.Context) ([]*UserState, error)
}

// machine is a concrete implementation of StateMachine backed by Storage.
// Writes are not serialized: two concurrent inputs from one user resolve last-write-wins.
type machine struct {
	storage     Storage
	transitions Transitions
	log         *slog.Logger
}

// NewStateMachine creates a FSM controller using the provided storage backend and transition table.
func NewStateMachine(storage Storage, transitions Transitions, log *slog.Logger) StateMachine {
	if log == nil {
		log = slog.Default()
	}
	if transitions == nil {
		transitions = NewTransitions()
	}

	return &machine{
		storage:     storage,
		transitions: transitions,
		log:         log,
	}
}

// GetState proxies to the underlying storage implementation.
func (m *machine) GetState(ctx context.Context, userID int64) (*UserState, error) {
	return m.storage.GetState(ctx, userID)
}

// GetAllStates returns every persisted user state.
func (m *machine) GetAllStates(ctx context.Context) ([]*UserState, error) {
	return m.storage.GetAllStates(ctx)
}

// SetState starts (or restarts) a flow at the given state, replacing any previous session.
func (m *machine) SetState(ctx context.Context, userID int64, flow string, state State, contextData map[string]interface{}) error {
	from := StateIdle
	if current, err := m.storage.GetState(ctx, userID); err == nil && current != nil {
		from = current.CurrentState
	}

	transitionRecorder(string(from), string(state))

	return m.storage.SetState(ctx, userID, &UserState{
		UserID:       userID,
		Flow:         flow,
		CurrentState: state,
		Context:      contextData,
	})
}

// TransitionTo moves the active session to newState if the transition table allows it.
// A nil contextData keeps the existing answer bag.
func (m *machine) TransitionTo(ctx context.Context, userID int64, newState State, contextData map[string]interface{}) error {
	current, err := m.storage.GetState(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrStateNotFound) {
			return err
		}
		current = &UserState{UserID: userID, CurrentState: StateIdle}
	}

	if !m.transitions.IsAllowed(current.CurrentState, newState) {
		m.log.Warn("invalid state transition",
			slog.Int64("user_id", userID),
			slog.String("from", string(current.CurrentState)),
			slog.String("to", string(newState)),
		)
		return ErrInvalidTransition
	}

	transitionRecorder(string(current.CurrentState), string(newState))

	if newState == StateIdle {
		return m.storage.ClearState(ctx, userID)
	}

	next := current.Clone()
	next.CurrentState = newState
	if contextData != nil {
		next.Context = contextData
	}

	return m.storage.SetState(ctx, userID, next)
}

// ClearState removes the stored session.
func (m *machine) ClearState(ctx context.Context, userID int64) error {
	return m.storage.ClearState(ctx, userID)
}
