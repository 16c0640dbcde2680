package idempotency

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"
)

type lease struct {
	token string
	until time.Time
}

// MemoryStore keeps marks in process memory. Expired entries are dropped by Sweep.
type MemoryStore struct {
	mu        sync.Mutex
	locks     map[string]lease
	completed map[string]time.Time
	seq       uint64
	now       func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		locks:     make(map[string]lease),
		completed: make(map[string]time.Time),
		now:       time.Now,
	}
}

func (s *MemoryStore) Lock(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if held, ok := s.locks[key]; ok && now.Before(held.until) {
		return "", false, nil
	}
	s.seq++
	token := strconv.FormatUint(s.seq, 10)
	s.locks[key] = lease{token: token, until: now.Add(ttl)}
	return token, true, nil
}

func (s *MemoryStore) ReleaseLock(_ context.Context, key, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if held, ok := s.locks[key]; ok && held.token == token {
		delete(s.locks, key)
	}
	return nil
}

func (s *MemoryStore) Completed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	until, ok := s.completed[key]
	return ok && s.now().Before(until), nil
}

func (s *MemoryStore) Complete(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.completed[key] = s.now().Add(ttl)
	return nil
}

// Sweep drops expired locks and marks and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, held := range s.locks {
		if !now.Before(held.until) {
			delete(s.locks, key)
			removed++
		}
	}
	for key, until := range s.completed {
		if !now.Before(until) {
			delete(s.completed, key)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is cancelled.
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration, log *slog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.Sweep(); removed > 0 && log != nil {
				log.Debug("idempotency marks swept", slog.Int("removed", removed))
			}
		}
	}
}
