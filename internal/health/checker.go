// Package health checks the components a running bot depends on.
package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gopkg.in/telebot.v3"
)

// StatusOK is the result of a passing check.
const StatusOK = "OK"

const defaultTimeout = 2 * time.Second

// Checkable reports the health of one component.
type Checkable interface {
	HealthCheck(ctx context.Context) error
}

// CheckFunc adapts a function to Checkable.
type CheckFunc func(ctx context.Context) error

func (f CheckFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

// Checker runs named checks concurrently, each bounded by its own timeout.
type Checker struct {
	log     *slog.Logger
	timeout time.Duration

	mu     sync.RWMutex
	checks map[string]Checkable
}

func NewChecker(log *slog.Logger) *Checker {
	if log == nil {
		log = slog.Default()
	}
	return &Checker{log: log, timeout: defaultTimeout, checks: make(map[string]Checkable)}
}

// AddCheck registers check under name, replacing an earlier one. Empty names and nil
// checks are ignored.
func (c *Checker) AddCheck(name string, check Checkable) {
	if name == "" || check == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Check maps every component to StatusOK or its error text.
func (c *Checker) Check(ctx context.Context) map[string]string {
	c.mu.RLock()
	checks := make(map[string]Checkable, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]string, len(checks))
	)
	for name, check := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			status := StatusOK
			if err := check.HealthCheck(checkCtx); err != nil {
				c.log.WarnContext(ctx, "health check failed", slog.String("component", name), slog.Any("error", err))
				status = err.Error()
			}

			mu.Lock()
			results[name] = status
			mu.Unlock()
		}()
	}
	wg.Wait()
	return results
}

// Healthy reports whether every result is StatusOK.
func Healthy(results map[string]string) bool {
	for _, status := range results {
		if status != StatusOK {
			return false
		}
	}
	return true
}

// NewFileChecker checks that the directory of the document at path is writable,
// since every state change rewrites the file.
func NewFileChecker(path string) Checkable {
	return CheckFunc(func(ctx context.Context) error {
		if path == "" {
			return errors.New("data file is not configured")
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		probe, err := os.CreateTemp(filepath.Dir(path), ".health-*")
		if err != nil {
			return fmt.Errorf("data directory is not writable: %w", err)
		}
		name := probe.Name()
		_ = probe.Close()
		return os.Remove(name)
	})
}

// Pinger is the part of redis.Client used for health checks.
type Pinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// NewRedisChecker pings redis.
func NewRedisChecker(pinger Pinger) Checkable {
	return CheckFunc(func(ctx context.Context) error {
		if pinger == nil {
			return redis.ErrClosed
		}
		return pinger.Ping(ctx).Err()
	})
}

// NewTelegramChecker passes once the bot has fetched its own identity at startup.
func NewTelegramChecker(bot *telebot.Bot) Checkable {
	return CheckFunc(func(context.Context) error {
		if bot == nil || bot.Me == nil {
			return errors.New("telegram bot is not initialized")
		}
		return nil
	})
}
