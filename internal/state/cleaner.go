package state

import (
	"context"
	"log/slog"
	"time"
)

// Cleaner evicts sessions that have been idle longer than ttl.
// A zero ttl disables eviction so abandoned wizards wait indefinitely.
type Cleaner struct {
	storage  Storage
	log      *slog.Logger
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
}

// NewCleaner constructs a Cleaner instance.
func NewCleaner(storage Storage, log *slog.Logger, ttl, interval time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}
	if interval <= 0 {
		interval = time.Minute
	}

	return &Cleaner{
		storage:  storage,
		log:      log,
		ttl:      ttl,
		interval: interval,
		now:      time.Now,
	}
}

// Run starts the cleanup loop until the context is cancelled.
func (c *Cleaner) Run(ctx context.Context) {
	if c == nil || c.storage == nil || c.ttl <= 0 {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("state cleaner stopped", slog.Any("reason", ctx.Err()))
			return
		case <-ticker.C:
			c.Sweep(ctx)
		}
	}
}

// Sweep clears every session idle for longer than ttl and returns how many were removed.
func (c *Cleaner) Sweep(ctx context.Context) int {
	if c.ttl <= 0 || ctx.Err() != nil {
		return 0
	}

	states, err := c.storage.GetAllStates(ctx)
	if err != nil {
		c.log.Error("state cleaner failed to list sessions", slog.Any("error", err))
		return 0
	}

	cleared := 0
	for _, st := range states {
		if st == nil || c.now().Sub(st.UpdatedAt) <= c.ttl {
			continue
		}

		if err := c.storage.ClearState(ctx, st.UserID); err != nil {
			c.log.Error("state cleaner failed to clear state", slog.Int64("user_id", st.UserID), slog.Any("error", err))
			continue
		}
		cleared++
		c.log.Info("state session cleared", slog.Int64("user_id", st.UserID), slog.String("flow", st.Flow))
	}

	return cleared
}
