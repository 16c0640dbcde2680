package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindow trims the window and records the hit only when it is allowed, so
// rejected hits do not push the reset time further out. Scores are unix milliseconds.
var slidingWindow = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', '(' .. (now - window))
local count = redis.call('ZCARD', KEYS[1])
local allowed = 0
if count < limit then
  redis.call('ZADD', KEYS[1], now, ARGV[4])
  count = count + 1
  allowed = 1
end
redis.call('PEXPIRE', KEYS[1], window * 2)
local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
local reset = now + window
if oldest[2] then
  reset = tonumber(oldest[2]) + window
end
return {allowed, limit - count, reset}
`)

// RedisLimiter shares one sliding window per key between every replica of a bot.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	log    *slog.Logger
}

var _ Limiter = (*RedisLimiter)(nil)

// NewRedisLimiter keeps keys under "ratelimit:<namespace>:", so bots sharing one
// redis database count separately.
func NewRedisLimiter(client *redis.Client, namespace string, log *slog.Logger) *RedisLimiter {
	if log == nil {
		log = slog.Default()
	}
	return &RedisLimiter{client: client, prefix: KeyPrefix(namespace), log: log}
}

// KeyPrefix returns the redis key prefix used for namespace.
func KeyPrefix(namespace string) string {
	if namespace == "" {
		return "ratelimit:"
	}
	return "ratelimit:" + namespace + ":"
}

func (l *RedisLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	if l.client == nil {
		return nil, errors.New("ratelimit: redis client is not configured")
	}
	now := time.Now()
	if limit <= 0 {
		return &Result{ResetAt: now.Add(window)}, nil
	}

	values, err := slidingWindow.Run(ctx, l.client, []string{l.prefix + key},
		now.UnixMilli(), window.Milliseconds(), limit, uuid.NewString()).Int64Slice()
	if err != nil {
		l.log.ErrorContext(ctx, "rate limit script failed", slog.String("key", key), slog.Any("error", err))
		return nil, err
	}
	if len(values) != 3 {
		return nil, errors.New("ratelimit: unexpected script reply")
	}

	return &Result{
		Allowed:   values[0] == 1,
		Remaining: int(max(values[1], 0)),
		ResetAt:   time.UnixMilli(values[2]),
	}, nil
}
