package state

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStorage_SetAndGet(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := NewRedisStorage(client, "escort:session", 0, testLogger())

	ctx := context.Background()
	userState := &UserState{
		UserID:       123,
		Flow:         "topup",
		CurrentState: "topup:amount",
		Context: map[string]interface{}{
			"foo": "bar",
		},
	}

	err := storage.SetState(ctx, userState.UserID, userState)
	assert.NoError(t, err)

	result, err := storage.GetState(ctx, userState.UserID)
	assert.NoError(t, err)
	if assert.NotNil(t, result) {
		assert.Equal(t, userState.UserID, result.UserID)
		assert.Equal(t, userState.Flow, result.Flow)
		assert.Equal(t, userState.CurrentState, result.CurrentState)
		assert.Equal(t, userState.Context, result.Context)
	}
}

func TestRedisStorage_GetNotFound(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := NewRedisStorage(client, "", 0, testLogger())

	state, err := storage.GetState(context.Background(), 999)
	assert.Nil(t, state)
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestRedisStorage_ClearState(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := NewRedisStorage(client, "team:session", 0, testLogger())

	ctx := context.Background()
	userState := &UserState{
		UserID:       456,
		CurrentState: "withdraw:amount",
		Context:      map[string]interface{}{"amount": 10},
	}

	require.NoError(t, storage.SetState(ctx, userState.UserID, userState))
	require.NoError(t, storage.ClearState(ctx, userState.UserID))

	state, err := storage.GetState(ctx, userState.UserID)
	assert.Nil(t, state)
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestRedisStorage_GetAllStatesIsNamespaced(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	ctx := context.Background()
	escort := NewRedisStorage(client, "escort:session", 0, testLogger())
	team := NewRedisStorage(client, "team:session", 0, testLogger())

	require.NoError(t, escort.SetState(ctx, 1, &UserState{UserID: 1, CurrentState: "city:name"}))
	require.NoError(t, escort.SetState(ctx, 2, &UserState{UserID: 2, CurrentState: "topup:amount"}))
	require.NoError(t, team.SetState(ctx, 3, &UserState{UserID: 3, CurrentState: "apply:origin"}))

	states, err := escort.GetAllStates(ctx)
	require.NoError(t, err)
	assert.Len(t, states, 2)
}

func TestRedisStorage_TTLAndCorruptSessions(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	storage := NewRedisStorage(client, "session:escort:", time.Hour, testLogger())

	require.NoError(t, storage.SetState(ctx, 7, &UserState{UserID: 7, CurrentState: "city:name"}))
	assert.Equal(t, time.Hour, mr.TTL("session:escort:7"))

	mr.FastForward(2 * time.Hour)
	_, err := storage.GetState(ctx, 7)
	assert.ErrorIs(t, err, ErrStateNotFound)

	require.NoError(t, mr.Set("session:escort:8", "{broken"))
	_, err = storage.GetState(ctx, 8)
	assert.ErrorIs(t, err, ErrStateNotFound)
	assert.False(t, mr.Exists("session:escort:8"))
}
