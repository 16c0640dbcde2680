package health

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v3"

	"github.com/Proton-105/emerans-bots/internal/testutil"
)

type failing struct{}

func (failing) HealthCheck(context.Context) error { return errors.New("down") }

func TestChecker_ReportsEveryComponent(t *testing.T) {
	client, _ := testutil.Redis(t)

	c := NewChecker(nil)
	c.AddCheck("redis", NewRedisChecker(client))
	c.AddCheck("store", NewFileChecker(filepath.Join(t.TempDir(), "team.json")))
	c.AddCheck("", failing{})

	results := c.Check(context.Background())
	assert.Equal(t, map[string]string{"redis": "OK", "store": "OK"}, results)
	assert.True(t, Healthy(results))

	c.AddCheck("telegram", failing{})
	results = c.Check(context.Background())
	assert.Equal(t, "down", results["telegram"])
	assert.False(t, Healthy(results))
}

func TestChecker_TimesOutSlowChecks(t *testing.T) {
	c := NewChecker(nil)
	c.timeout = 20 * time.Millisecond
	c.AddCheck("slow", CheckFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))
	c.AddCheck("fast", CheckFunc(func(context.Context) error { return nil }))

	results := c.Check(context.Background())
	assert.Equal(t, StatusOK, results["fast"])
	assert.Equal(t, context.DeadlineExceeded.Error(), results["slow"])
}

func TestFileChecker_MissingDirectory(t *testing.T) {
	c := NewFileChecker(filepath.Join(t.TempDir(), "absent", "team.json"))
	require.Error(t, c.HealthCheck(context.Background()))
	require.Error(t, NewFileChecker("").HealthCheck(context.Background()))
}

func TestTelegramChecker_RequiresIdentity(t *testing.T) {
	assert.Error(t, NewTelegramChecker(nil).HealthCheck(context.Background()))

	b := &telebot.Bot{Me: &telebot.User{ID: 1, Username: "team_bot"}}
	assert.NoError(t, NewTelegramChecker(b).HealthCheck(context.Background()))
}
