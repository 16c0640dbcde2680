package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
log:
  level: debug
session:
  backend: memory
escort:
  token: "escort-token"
  data_file: "data/escort.json"
  log_chat_id: -1001
  admin_ids: [1, 2]
team:
  token: "team-token"
  admin_chat_id: -2002
support:
  token: ""
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, sampleConfig)

	cfg, err := LoadFile(path, BotEscort)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "escort-token", cfg.Escort.Token)
	assert.Equal(t, int64(-1001), cfg.Escort.LogChatID)
	assert.Equal(t, []int64{1, 2}, cfg.Escort.AdminIDs)
	assert.Equal(t, 10*time.Second, cfg.Escort.Timeout)
	assert.Equal(t, "data/team.json", cfg.Team.DataFile)
	assert.Equal(t, "memory", cfg.Session.Backend)
	assert.Equal(t, 30, cfg.RateLimit.PerUser.Limit)
}

func TestLoadFile_ValidatesOnlySelectedBot(t *testing.T) {
	path := writeConfig(t, sampleConfig)

	_, err := LoadFile(path, BotTeam)
	assert.NoError(t, err)

	_, err = LoadFile(path, BotSupport)
	assert.Error(t, err)
}

func TestLoadFile_RejectsUnknownBackend(t *testing.T) {
	path := writeConfig(t, "session:\n  backend: etcd\n")

	_, err := LoadFile(path, "")
	assert.Error(t, err)
}

func TestIsAdmin(t *testing.T) {
	assert.True(t, IsAdmin([]int64{5, 7}, 7))
	assert.False(t, IsAdmin([]int64{5, 7}, 8))
	assert.False(t, IsAdmin(nil, 0))
}
