// Package state manages per-user conversation sessions.
package state

import "context"

// Storage defines the persistence contract for user conversation sessions.
type Storage interface {
	// GetState returns the current state for the specified user.
	GetState(ctx context.Context, userID int64) (*UserState, error)
	// SetState saves the provided state for the specified user.
	SetState(ctx context.Context, userID int64, state *UserState) error
	// ClearState removes the state for the specified user.
	ClearState(ctx context.Context, userID int64) error
	// GetAllStates returns every stored session.
	GetAllStates(ctx context.Context) ([]*UserState, error)
}
