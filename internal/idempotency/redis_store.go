package idempotency

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Store keeps locks and completion marks. Lock hands out a token that ReleaseLock
// must present, so a call whose lock already expired cannot drop a newer holder's lock.
type Store interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	ReleaseLock(ctx context.Context, key, token string) error
	Completed(ctx context.Context, key string) (bool, error)
	Complete(ctx context.Context, key string, ttl time.Duration) error
}

var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisStore shares marks between restarts and replicas of one bot.
type RedisStore struct {
	client *redis.Client
	prefix string
	log    *slog.Logger
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore keeps keys under "idempotency:<namespace>:".
func NewRedisStore(client *redis.Client, namespace string, log *slog.Logger) *RedisStore {
	if log == nil {
		log = slog.Default()
	}
	return &RedisStore{client: client, prefix: "idempotency:" + namespace + ":", log: log}
}

func (s *RedisStore) Lock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := s.client.SetNX(ctx, s.prefix+key+":lock", token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (s *RedisStore) ReleaseLock(ctx context.Context, key, token string) error {
	return releaseScript.Run(ctx, s.client, []string{s.prefix + key + ":lock"}, token).Err()
}

func (s *RedisStore) Completed(ctx context.Context, key string) (bool, error) {
	err := s.client.Get(ctx, s.prefix+key).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	return err == nil, err
}

func (s *RedisStore) Complete(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+key, time.Now().UTC().Format(time.RFC3339), ttl).Err()
}
