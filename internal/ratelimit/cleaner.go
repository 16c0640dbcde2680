package ratelimit

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const scanCount = 100

// Cleaner drops sliding-window entries older than maxAge and deletes windows left empty.
// Keys normally expire on their own; the sweep catches windows whose TTL was lost.
type Cleaner struct {
	client   *redis.Client
	pattern  string
	log      *slog.Logger
	interval time.Duration
	maxAge   time.Duration
	now      func() time.Time
}

// NewCleaner sweeps the keys of one bot namespace every interval.
func NewCleaner(client *redis.Client, namespace string, log *slog.Logger, interval, maxAge time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}

	return &Cleaner{
		client:   client,
		pattern:  KeyPrefix(namespace) + "*",
		log:      log,
		interval: interval,
		maxAge:   maxAge,
		now:      time.Now,
	}
}

// Run sweeps until ctx is cancelled.
func (c *Cleaner) Run(ctx context.Context) {
	if c.client == nil || c.interval <= 0 || c.maxAge <= 0 {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("rate limit cleaner stopped")
			return
		case <-ticker.C:
			removed, err := c.Sweep(ctx)
			if err != nil {
				c.log.Error("rate limit sweep failed", slog.Any("error", err))
				continue
			}
			if removed > 0 {
				c.log.Info("rate limit windows removed", slog.Int("keys", removed))
			}
		}
	}
}

// Sweep runs one pass and returns the number of deleted keys.
func (c *Cleaner) Sweep(ctx context.Context) (int, error) {
	// scores are unix milliseconds, see RedisLimiter.Check
	cutoff := "(" + strconv.FormatInt(c.now().Add(-c.maxAge).UnixMilli(), 10)

	removed := 0
	iter := c.client.Scan(ctx, 0, c.pattern, scanCount).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		var card *redis.IntCmd
		_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.ZRemRangeByScore(ctx, key, "-inf", cutoff)
			card = pipe.ZCard(ctx, key)
			return nil
		})
		if err != nil {
			c.log.Warn("rate limit window trim failed", slog.String("key", key), slog.Any("error", err))
			continue
		}
		if card.Val() > 0 {
			continue
		}

		if err := c.client.Del(ctx, key).Err(); err != nil {
			c.log.Warn("rate limit window delete failed", slog.String("key", key), slog.Any("error", err))
			continue
		}
		removed++
	}
	return removed, iter.Err()
}
