package state

import (
	"context"
	"sync"
	"time"
)

// MemoryStorage keeps sessions in process memory. Sessions do not survive a restart.
type MemoryStorage struct {
	mu     sync.RWMutex
	states map[int64]*UserState
	now    func() time.Time
}

var _ Storage = (*MemoryStorage)(nil)

// NewMemoryStorage returns an empty in-process session store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		states: make(map[int64]*UserState),
		now:    time.Now,
	}
}

// GetState returns a copy of the stored session or ErrStateNotFound.
func (s *MemoryStorage) GetState(_ context.Context, userID int64) (*UserState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.states[userID]
	if !ok {
		return nil, ErrStateNotFound
	}
	return st.Clone(), nil
}

// SetState overwrites the user's session. Concurrent writers race; the last one wins.
func (s *MemoryStorage) SetState(_ context.Context, userID int64, st *UserState) error {
	if st == nil {
		return nil
	}

	stored := st.Clone()
	stored.UpdatedAt = s.now().UTC()
	st.UpdatedAt = stored.UpdatedAt

	s.mu.Lock()
	s.states[userID] = stored
	s.mu.Unlock()
	return nil
}

// ClearState drops the session, if any.
func (s *MemoryStorage) ClearState(_ context.Context, userID int64) error {
	s.mu.Lock()
	delete(s.states, userID)
	s.mu.Unlock()
	return nil
}

// GetAllStates returns copies of every active session.
func (s *MemoryStorage) GetAllStates(_ context.Context) ([]*UserState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*UserState, 0, len(s.states))
	for _, st := range s.states {
		result = append(result, st.Clone())
	}
	return result, nil
}
