package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/emerans-bots/internal/escort"
	"github.com/Proton-105/emerans-bots/internal/flow"
	"github.com/Proton-105/emerans-bots/internal/state"
	"github.com/Proton-105/emerans-bots/internal/testutil"
	"github.com/Proton-105/emerans-bots/pkg/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := &config.Config{
		AppEnv:  "test",
		Session: config.SessionConfig{Backend: "memory"},
		RateLimit: config.RateLimitConfig{
			Enabled: true,
			PerUser: config.RateLimitRule{Limit: 30, Window: "1m"},
			Admin:   config.RateLimitRule{Limit: 120, Window: "1m"},
		},
	}
	cfg.Escort.Token = "escort-token"
	cfg.Escort.DataFile = filepath.Join(dir, "escort.json")
	cfg.Escort.AdminIDs = []int64{1}
	cfg.Team.Token = "team-token"
	cfg.Team.DataFile = filepath.Join(dir, "team", "team.json")
	cfg.Team.AdminChatID = -2002
	cfg.Support.Token = "support-token"
	cfg.Support.DataFile = filepath.Join(dir, "support.json")
	cfg.Support.SupportChatID = -3003
	return cfg
}

func TestNew_BuildsEveryBot(t *testing.T) {
	for _, name := range []string{config.BotEscort, config.BotTeam, config.BotSupport} {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig(t)

			a, err := New(context.Background(), name, cfg, testutil.Logger(), Options{Offline: true})
			require.NoError(t, err)
			assert.NotEmpty(t, a.handlers.Commands())

			// the document is written on startup, creating its directory
			_, err = os.Stat(cfg.Common(name).DataFile)
			require.NoError(t, err)

			results := a.checker.Check(context.Background())
			assert.Equal(t, map[string]string{"store": "OK"}, results)
		})
	}
}

func TestNew_RejectsUnknownBot(t *testing.T) {
	_, err := New(context.Background(), "billing", testConfig(t), testutil.Logger(), Options{Offline: true})
	assert.Error(t, err)
}

func TestNew_RedisSessions(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Redis = config.RedisConfig{Enabled: true, Addr: mr.Addr()}
	cfg.Session.Backend = "redis"

	a, err := New(context.Background(), config.BotEscort, cfg, testutil.Logger(), Options{Offline: true})
	require.NoError(t, err)
	t.Cleanup(a.closeRedis)

	_, ok := a.sessions.(*state.RedisStorage)
	assert.True(t, ok)
	assert.Contains(t, a.checker.Check(context.Background()), "redis")

	_, err = a.engine.Begin(context.Background(), flow.Input{Kind: flow.KindCommand, UserID: 7, ChatID: 7}, escort.FlowCity, nil)
	require.NoError(t, err)
	assert.Contains(t, mr.Keys(), "session:escort:7")
}

func TestNew_RedisSessionsNeedRedis(t *testing.T) {
	cfg := testConfig(t)
	cfg.Session.Backend = "redis"

	_, err := New(context.Background(), config.BotEscort, cfg, testutil.Logger(), Options{Offline: true})
	assert.Error(t, err)
}

func TestSupportLogsToSupportChatByDefault(t *testing.T) {
	cfg := testConfig(t)
	assert.Equal(t, int64(-3003), botConfig(cfg, config.BotSupport).LogChatID)

	cfg.Support.LogChatID = -4004
	assert.Equal(t, int64(-4004), botConfig(cfg, config.BotSupport).LogChatID)
	assert.Zero(t, botConfig(cfg, config.BotTeam).LogChatID)
}

func TestHandler_ServesProbesAndMetrics(t *testing.T) {
	a, err := New(context.Background(), config.BotSupport, testConfig(t), testutil.Logger(), Options{Offline: true})
	require.NoError(t, err)
	h := a.handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	a.probes.MarkReady()
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Components map[string]string `json:"components"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "OK", body.Components["store"])

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "store_save")
}

func TestAdminsFollowConfig(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(context.Background(), config.BotEscort, cfg, testutil.Logger(), Options{Offline: true})
	require.NoError(t, err)
	assert.True(t, a.admins.Contains(1))

	a.admins.Set(adminIDs(&config.Config{Escort: config.EscortConfig{AdminIDs: []int64{9}}}, config.BotEscort))
	assert.False(t, a.admins.Contains(1))
	assert.True(t, a.admins.Contains(9))
	assert.Nil(t, adminIDs(cfg, config.BotSupport))
}

func TestEscortAdminDeletesShiftedIndex(t *testing.T) {
	cfg := testConfig(t)
	seed := `{"models":[{"name":"a"},{"name":"b"},{"name":"c"},{"name":"d"},{"name":"e"}]}`
	require.NoError(t, os.WriteFile(cfg.Escort.DataFile, []byte(seed), 0o600))

	a, err := New(context.Background(), config.BotEscort, cfg, testutil.Logger(), Options{Offline: true})
	require.NoError(t, err)

	press := func(data string) {
		t.Helper()
		_, err := a.bot.Router().Dispatch(context.Background(), flow.Input{
			Kind: flow.KindCallback, UserID: 1, ChatID: 1, ChatType: "private",
			CallbackID: "cb", MessageID: 7, Data: data,
		})
		require.NoError(t, err)
	}

	// the list is redrawn in place, so the next model inherits the same button
	press("admin:delete:2")
	press("admin:model:2")
	press("admin:delete:2")

	raw, err := os.ReadFile(cfg.Escort.DataFile)
	require.NoError(t, err)
	var doc struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))

	var names []string
	for _, m := range doc.Models {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"a", "b", "e"}, names)
}

func TestGuardedButtons(t *testing.T) {
	assert.Empty(t, guardedButtons(config.BotEscort))
	assert.Empty(t, guardedButtons(config.BotSupport))

	var prefixes []string
	for _, rule := range guardedButtons(config.BotTeam) {
		prefixes = append(prefixes, rule.Prefix)
	}
	assert.ElementsMatch(t, []string{"withdraw:take:", "admin:accept:", "admin:reject:"}, prefixes)
}
