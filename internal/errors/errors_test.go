package errors

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_IsMatchesKind(t *testing.T) {
	err := fmt.Errorf("delete item: %w", NewNotFoundError("catalog item 7", "Модель не найдена."))

	assert.True(t, stderrors.Is(err, ErrNotFound))
	assert.False(t, stderrors.Is(err, ErrValidation))
	assert.Equal(t, "Модель не найдена.", UserMessage(err))
}

func TestStorageError_Unwraps(t *testing.T) {
	cause := stderrors.New("disk full")
	err := NewStorageError(cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrStorage)
}

func TestHandler_Handle(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(slog.New(slog.NewJSONHandler(&buf, nil)), false)
	ctx := context.Background()
	upd := Update{UserID: 42, Action: "profit:add"}

	assert.Equal(t, "", h.Handle(ctx, nil, upd))
	assert.Empty(t, buf.String())

	assert.Equal(t, "Доступ ограничен.", h.Handle(ctx, NewAuthorizationError("admin panel"), upd))
	assert.Contains(t, buf.String(), `"level":"WARN"`)
	assert.Contains(t, buf.String(), `"user_id":42`)
	assert.Contains(t, buf.String(), `"action":"profit:add"`)

	buf.Reset()
	assert.Equal(t, "Временная проблема, попробуйте позже", h.Handle(ctx, NewStorageError(stderrors.New("boom")), Update{}))
	assert.Contains(t, buf.String(), `"code":"E200"`)
	assert.NotContains(t, buf.String(), "user_id")

	assert.Equal(t, FallbackMessage, h.Handle(ctx, stderrors.New("plain"), upd))
}

func TestHandler_HandlePanic(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(slog.New(slog.NewJSONHandler(&buf, nil)), false)

	msg := h.HandlePanic(context.Background(), "nil map", []byte("goroutine 1"), Update{UserID: 7})
	assert.Equal(t, FallbackMessage, msg)
	assert.Contains(t, buf.String(), `"severity":"critical"`)
	assert.Contains(t, buf.String(), "goroutine 1")
}

func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	var transitions []string
	cb := NewCircuitBreaker(WithStateChange(func(from, to State) {
		transitions = append(transitions, from.String()+"->"+to.String())
	}))
	failure := stderrors.New("send failed")

	for i := 0; i < MinRequests; i++ {
		_ = cb.Call(func() error { return failure })
	}

	assert.Equal(t, StateOpen, cb.State())
	assert.Equal(t, []string{"closed->open"}, transitions)

	called := false
	err := cb.Call(func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_RecoversAfterTimeout(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var transitions []string
	cb := NewCircuitBreaker(
		WithOpenTimeout(time.Minute),
		WithStateChange(func(from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		}),
	)
	cb.now = func() time.Time { return now }

	for i := 0; i < MinRequests; i++ {
		_ = cb.Call(func() error { return stderrors.New("down") })
	}
	require.Equal(t, StateOpen, cb.State())

	now = now.Add(2 * time.Minute)
	for i := 0; i < HalfOpenMaxRequests; i++ {
		require.NoError(t, cb.Call(func() error { return nil }))
	}
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, []string{"closed->open", "open->half_open", "half_open->closed"}, transitions)
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(WithOpenTimeout(time.Minute))
	cb.now = func() time.Time { return now }

	for i := 0; i < MinRequests; i++ {
		_ = cb.Call(func() error { return stderrors.New("down") })
	}
	now = now.Add(2 * time.Minute)

	assert.Error(t, cb.Call(func() error { return stderrors.New("still down") }))
	assert.Equal(t, StateOpen, cb.State())
	assert.ErrorIs(t, cb.Call(func() error { return nil }), ErrCircuitOpen)
}
