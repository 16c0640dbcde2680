package idempotency

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/emerans-bots/internal/testutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func stores(t *testing.T) map[string]Store {
	client, _ := testutil.Redis(t)

	return map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  NewRedisStore(client, "team", testLogger()),
	}
}

func TestExecute_RunsOnce(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			m := NewManager(st, testLogger())
			ctx := context.Background()
			calls := 0
			op := func(context.Context) error {
				calls++
				return nil
			}

			require.NoError(t, m.Execute(ctx, "k", time.Hour, op))
			assert.ErrorIs(t, m.Execute(ctx, "k", time.Hour, op), ErrAlreadyDone)
			require.NoError(t, m.Execute(ctx, "other", time.Hour, op))
			assert.Equal(t, 2, calls)
		})
	}
}

func TestExecute_FailureAllowsRetry(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			m := NewManager(st, testLogger())
			ctx := context.Background()
			boom := errors.New("boom")

			assert.ErrorIs(t, m.Execute(ctx, "k", time.Hour, func(context.Context) error { return boom }), boom)
			assert.NoError(t, m.Execute(ctx, "k", time.Hour, func(context.Context) error { return nil }))
		})
	}
}

func TestExecute_ConcurrentPressIsRejected(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			m := NewManager(st, testLogger())
			ctx := context.Background()

			err := m.Execute(ctx, "k", time.Hour, func(ctx context.Context) error {
				return m.Execute(ctx, "k", time.Hour, func(context.Context) error { return nil })
			})
			assert.ErrorIs(t, err, ErrRequestInProgress)
		})
	}
}

func TestMemoryStore_Sweep(t *testing.T) {
	st := NewMemoryStore()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, st.Complete(ctx, "short", time.Second))
	require.NoError(t, st.Complete(ctx, "long", time.Hour))
	_, locked, err := st.Lock(ctx, "lock", time.Minute)
	require.NoError(t, err)
	require.True(t, locked)

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 2, st.Sweep())

	done, err := st.Completed(ctx, "long")
	require.NoError(t, err)
	assert.True(t, done)

	_, locked, err = st.Lock(ctx, "lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, locked)
}

func TestReleaseLock_NeedsOwnToken(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			token, ok, err := st.Lock(ctx, "k", time.Minute)
			require.NoError(t, err)
			require.True(t, ok)

			require.NoError(t, st.ReleaseLock(ctx, "k", "stale"))
			_, ok, err = st.Lock(ctx, "k", time.Minute)
			require.NoError(t, err)
			assert.False(t, ok, "a foreign token leaves the lock in place")

			require.NoError(t, st.ReleaseLock(ctx, "k", token))
			_, ok, err = st.Lock(ctx, "k", time.Minute)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestButtonKey(t *testing.T) {
	key := ButtonKey(-100, 5, "", "withdraw:take:7:3")
	assert.Equal(t, key, ButtonKey(-100, 5, "", "withdraw:take:7:3"))
	assert.True(t, strings.HasPrefix(key, "withdraw:"))

	assert.NotEqual(t, key, ButtonKey(-100, 6, "", "withdraw:take:7:3"), "another message")
	assert.NotEqual(t, key, ButtonKey(-100, 5, "", "withdraw:take:7:4"), "another button")
	assert.NotEqual(t, key, ButtonKey(-100, 5, "AgAAA", "withdraw:take:7:3"), "inline message")
	assert.Equal(t, ButtonKey(0, 0, "AgAAA", "admin:delete:1"), ButtonKey(1, 2, "AgAAA", "admin:delete:1"))
}
