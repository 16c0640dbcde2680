// Package idempotency makes sure an action bound to one button press runs once, even
// when Telegram delivers the press twice or an admin taps the button again.
package idempotency

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

var (
	// ErrRequestInProgress is returned while another call with the same key is running.
	ErrRequestInProgress = errors.New("request with this key is already in progress")
	// ErrAlreadyDone is returned after a call with the same key has succeeded within its ttl.
	ErrAlreadyDone = errors.New("request with this key is already done")
)

// lockTTL bounds how long a crashed call can block its key.
const lockTTL = time.Minute

// Operation is the guarded action.
type Operation func(ctx context.Context) error

// Manager runs operations at most once per key.
type Manager interface {
	Execute(ctx context.Context, key string, ttl time.Duration, fn Operation) error
}

type manager struct {
	store Store
	log   *slog.Logger
}

// NewManager builds a Manager on top of store.
func NewManager(store Store, log *slog.Logger) Manager {
	if log == nil {
		log = slog.Default()
	}

	return &manager{
		store: store,
		log:   log,
	}
}

// Execute runs fn unless key is locked or completed. A failed fn releases the key so the
// press can be retried; a successful one marks it completed for ttl.
func (m *manager) Execute(ctx context.Context, key string, ttl time.Duration, fn Operation) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if fn == nil {
		return errors.New("operation fn cannot be nil")
	}

	done, err := m.store.Completed(ctx, key)
	if err != nil {
		return err
	}
	if done {
		return ErrAlreadyDone
	}

	token, locked, err := m.store.Lock(ctx, key, lockTTL)
	if err != nil {
		return err
	}
	if !locked {
		// the holder may have finished between the two reads
		if done, err := m.store.Completed(ctx, key); err == nil && done {
			return ErrAlreadyDone
		}
		return ErrRequestInProgress
	}
	defer func() {
		if err := m.store.ReleaseLock(context.WithoutCancel(ctx), key, token); err != nil {
			m.log.WarnContext(ctx, "failed to release idempotency lock", slog.String("key", key), slog.Any("error", err))
		}
	}()

	if err := fn(ctx); err != nil {
		return err
	}

	if ttl > 0 {
		if err := m.store.Complete(ctx, key, ttl); err != nil {
			m.log.WarnContext(ctx, "failed to mark request completed", slog.String("key", key), slog.Any("error", err))
		}
	}
	return nil
}
