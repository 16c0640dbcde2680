// Package testutil holds helpers shared by package tests.
package testutil

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func AssertNoError(t testing.TB, err error) {
	t.Helper()
	require.NoError(t, err)
}

func AssertError(t testing.TB, err error) {
	t.Helper()
	require.Error(t, err)
}

func AssertEqual(t testing.TB, want, got interface{}) {
	t.Helper()
	assert.Equal(t, want, got)
}

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// DataFile returns a path for a bot document inside a per-test directory.
func DataFile(t testing.TB, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name)
}

// Redis starts an in-memory redis server and returns a client for it.
func Redis(t testing.TB) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}
