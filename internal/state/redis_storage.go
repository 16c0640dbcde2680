package state

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const scanBatch = 100

// RedisStorage keeps sessions as JSON strings under "<prefix>:<user id>", so they
// survive restarts and can be shared by replicas of one bot. Every write renews the
// idle TTL.
type RedisStorage struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	log    *slog.Logger
}

var _ Storage = (*RedisStorage)(nil)

// NewRedisStorage namespaces keys by prefix, one per bot. A zero ttl keeps sessions
// until they are cleared.
func NewRedisStorage(client *redis.Client, prefix string, ttl time.Duration, log *slog.Logger) *RedisStorage {
	if log == nil {
		log = slog.Default()
	}
	prefix = strings.TrimSuffix(prefix, ":")
	if prefix == "" {
		prefix = "session"
	}

	return &RedisStorage{client: client, prefix: prefix + ":", ttl: ttl, log: log}
}

func (s *RedisStorage) GetState(ctx context.Context, userID int64) (*UserState, error) {
	data, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, err
	}

	var st UserState
	if err := json.Unmarshal(data, &st); err != nil {
		// a session written by an incompatible build is dropped, not fatal
		s.log.WarnContext(ctx, "dropping undecodable session", slog.Int64("user_id", userID), slog.Any("error", err))
		_ = s.client.Del(ctx, s.key(userID)).Err()
		return nil, ErrStateNotFound
	}
	return &st, nil
}

func (s *RedisStorage) SetState(ctx context.Context, userID int64, st *UserState) error {
	st.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(userID), data, s.ttl).Err()
}

func (s *RedisStorage) ClearState(ctx context.Context, userID int64) error {
	return s.client.Del(ctx, s.key(userID)).Err()
}

// GetAllStates scans the namespace and loads sessions one batch of keys at a time.
func (s *RedisStorage) GetAllStates(ctx context.Context) ([]*UserState, error) {
	var (
		states []*UserState
		batch  []string
	)

	load := func() error {
		if len(batch) == 0 {
			return nil
		}
		values, err := s.client.MGet(ctx, batch...).Result()
		if err != nil {
			return err
		}
		for i, value := range values {
			raw, ok := value.(string)
			if !ok {
				continue
			}
			var st UserState
			if err := json.Unmarshal([]byte(raw), &st); err != nil {
				s.log.WarnContext(ctx, "skipping undecodable session", slog.String("key", batch[i]), slog.Any("error", err))
				continue
			}
			states = append(states, &st)
		}
		batch = batch[:0]
		return nil
	}

	iter := s.client.Scan(ctx, 0, s.prefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := load(); err != nil {
				return nil, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	if err := load(); err != nil {
		return nil, err
	}
	return states, nil
}

func (s *RedisStorage) key(userID int64) string {
	return s.prefix + strconv.FormatInt(userID, 10)
}
