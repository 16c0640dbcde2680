package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskingHandler(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewMaskingHandler(slog.NewJSONHandler(&buf, nil)))

	ctx := WithCorrelationID(context.Background())
	log.InfoContext(ctx, "starting", slog.String("token", "123:abc"), slog.Int64("user_id", 42))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	assert.Equal(t, "***", record["token"])
	assert.EqualValues(t, 42, record["user_id"])
	assert.Equal(t, CorrelationIDFromContext(ctx), record["correlation_id"])
}

func TestMaskingHandler_HidesTokensInErrors(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewMaskingHandler(slog.NewJSONHandler(&buf, nil)))
	token := "123456789:AAFakeTokenFakeTokenFakeTokenFake_x"

	log.With(slog.Group("bot", slog.String("url", "https://api.telegram.org/bot"+token+"/getMe"))).
		Error("telegram failed", slog.Any("error", errors.New("Post https://api.telegram.org/bot"+token+"/sendMessage: timeout")))

	assert.NotContains(t, buf.String(), token)
	assert.Contains(t, buf.String(), "bot***/sendMessage")
	assert.Contains(t, buf.String(), "bot***/getMe")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestMiddleware_KeepsRequestID(t *testing.T) {
	var seen string
	h := Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = CorrelationIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	req.Header.Set(RequestIDHeader, "probe-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "probe-1", seen)
	assert.Equal(t, "probe-1", rec.Header().Get(RequestIDHeader))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.NotEmpty(t, seen)
	assert.NotEqual(t, "probe-1", seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
}
