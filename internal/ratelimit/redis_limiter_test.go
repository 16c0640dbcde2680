package ratelimit

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/emerans-bots/pkg/config"
)

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cleanup := func() {
		_ = client.Close()
		mr.Close()
	}

	return client, cleanup
}

func TestRedisLimiter_AllowsWithinLimit(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	limiter := NewRedisLimiter(client, "escort", testLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := limiter.Check(ctx, "test:allows", 5, time.Minute)
		assert.NoError(t, err)
		assert.True(t, result.Allowed)
	}
}

func TestRedisLimiter_BlocksWhenExceeded(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	limiter := NewRedisLimiter(client, "escort", testLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := limiter.Check(ctx, "test:blocks", 2, time.Minute)
		assert.NoError(t, err)
		if i < 2 {
			assert.True(t, result.Allowed)
		} else {
			assert.False(t, result.Allowed)
		}
	}
}

func TestRedisLimiter_SlidingWindow(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	limiter := NewRedisLimiter(client, "escort", testLogger())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		result, err := limiter.Check(ctx, "test:window", 2, time.Second)
		assert.NoError(t, err)
		assert.True(t, result.Allowed)
	}

	time.Sleep(1100 * time.Millisecond)

	result, err := limiter.Check(ctx, "test:window", 2, time.Second)
	assert.NoError(t, err)
	assert.True(t, result.Allowed)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRedisLimiter_KeysAreNamespaced(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	ctx := context.Background()
	escort := NewRedisLimiter(client, "escort", testLogger())
	team := NewRedisLimiter(client, "team", testLogger())

	result, err := escort.Check(ctx, "user:1", 1, time.Minute)
	assert.NoError(t, err)
	assert.True(t, result.Allowed)

	result, err = team.Check(ctx, "user:1", 1, time.Minute)
	assert.NoError(t, err)
	assert.True(t, result.Allowed, "bots sharing redis keep separate windows")

	n, err := client.Exists(ctx, "ratelimit:escort:user:1", "ratelimit:team:user:1").Result()
	assert.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestAdaptiveLimiter_FallsBackWithHalfTheLimit(t *testing.T) {
	client, _ := setupTestRedis(t)
	primary := NewRedisLimiter(client, "escort", testLogger())
	_ = client.Close()

	limiter := NewAdaptiveLimiter(primary, NewMemoryLimiter(testLogger()), testLogger())
	ctx := context.Background()
	assert.False(t, limiter.Degraded())

	for i := 0; i < 2; i++ {
		result, err := limiter.Check(ctx, "user:9", 4, time.Minute)
		assert.NoError(t, err)
		assert.True(t, result.Allowed)
	}
	assert.True(t, limiter.Degraded())

	result, err := limiter.Check(ctx, "user:9", 4, time.Minute)
	assert.NoError(t, err)
	assert.False(t, result.Allowed)
}

func TestAdaptiveLimiter_Recovers(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	limiter := NewAdaptiveLimiter(NewRedisLimiter(client, "team", testLogger()), NewMemoryLimiter(testLogger()), testLogger())
	ctx := context.Background()

	mr.SetError("LOADING")
	_, err := limiter.Check(ctx, "user:1", 10, time.Minute)
	require.NoError(t, err)
	assert.True(t, limiter.Degraded())

	mr.SetError("")
	result, err := limiter.Check(ctx, "user:1", 10, time.Minute)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.False(t, limiter.Degraded())
}

func TestCleaner_SweepDropsStaleWindows(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)
	ctx := context.Background()

	now := time.Now()
	old := float64(now.Add(-2 * time.Hour).UnixMilli())
	fresh := float64(now.UnixMilli())
	require.NoError(t, client.ZAdd(ctx, "ratelimit:escort:user:1", redis.Z{Score: old, Member: "a"}).Err())
	require.NoError(t, client.ZAdd(ctx, "ratelimit:escort:user:2", redis.Z{Score: old, Member: "a"}, redis.Z{Score: fresh, Member: "b"}).Err())
	require.NoError(t, client.ZAdd(ctx, "ratelimit:team:user:1", redis.Z{Score: old, Member: "a"}).Err())

	cleaner := NewCleaner(client, "escort", testLogger(), time.Minute, time.Hour)
	cleaner.now = func() time.Time { return now }

	removed, err := cleaner.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	assert.Equal(t, int64(0), client.Exists(ctx, "ratelimit:escort:user:1").Val())
	assert.Equal(t, int64(1), client.ZCard(ctx, "ratelimit:escort:user:2").Val())
	assert.Equal(t, int64(1), client.Exists(ctx, "ratelimit:team:user:1").Val(), "other namespaces are left alone")
}

func TestRedisLimiter_RejectedHitsDoNotExtendWindow(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	limiter := NewRedisLimiter(client, "team", testLogger())
	ctx := context.Background()

	first, err := limiter.Check(ctx, "user:5", 1, time.Minute)
	require.NoError(t, err)
	require.True(t, first.Allowed)
	assert.Equal(t, 0, first.Remaining)

	for i := 0; i < 3; i++ {
		result, err := limiter.Check(ctx, "user:5", 1, time.Minute)
		require.NoError(t, err)
		assert.False(t, result.Allowed)
		assert.WithinDuration(t, first.ResetAt, result.ResetAt, time.Millisecond)
	}
	assert.Equal(t, int64(1), client.ZCard(ctx, "ratelimit:team:user:5").Val())
}

func TestRules(t *testing.T) {
	rules, err := NewRules(config.RateLimitConfig{
		PerUser:   config.RateLimitRule{Limit: 30, Window: "1m"},
		Whitelist: []int64{42},
	})
	require.NoError(t, err)

	assert.True(t, rules.Exempt(42))
	assert.False(t, rules.Exempt(7))
	assert.Equal(t, Rule{Limit: 30, Window: time.Minute}, rules.For(false))
	assert.Equal(t, rules.For(false), rules.For(true), "admin rule falls back to the per-user rule")

	rules, err = NewRules(config.RateLimitConfig{
		PerUser: config.RateLimitRule{Limit: 30, Window: "1m"},
		Admin:   config.RateLimitRule{Limit: 120, Window: "30s"},
	})
	require.NoError(t, err)
	assert.Equal(t, Rule{Limit: 120, Window: 30 * time.Second}, rules.For(true))

	_, err = NewRules(config.RateLimitConfig{PerUser: config.RateLimitRule{Limit: 5}})
	assert.ErrorContains(t, err, "per_user")

	_, err = NewRules(config.RateLimitConfig{
		PerUser: config.RateLimitRule{Limit: 5, Window: "1m"},
		Admin:   config.RateLimitRule{Limit: -1, Window: "1m"},
	})
	assert.ErrorContains(t, err, "admin")
}
