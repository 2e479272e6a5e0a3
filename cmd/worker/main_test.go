package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moderatehq/voiceworker/internal/config"
)

func TestHTTPRegistrar_DispatchesPayload(t *testing.T) {
	mux := http.NewServeMux()
	reg := newHTTPRegistrar(mux)
	reg.RegisterMethod("echo", func(ctx context.Context, payload string) string {
		return `{"success":true,"message":` + strings.TrimSpace(payload) + `}`
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/rpc/echo", "application/json", strings.NewReader(`"hi"`))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"success":true,"message":"hi"}`, string(body))
}

func TestHTTPRegistrar_UnknownMethod(t *testing.T) {
	mux := http.NewServeMux()
	newHTTPRegistrar(mux)

	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/rpc/nothing", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRun_RequiresDBServiceURL(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	err := run(context.Background(), logger, config.Config{}, "127.0.0.1:0", "room-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_SERVICE_URL")
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Config{
		DBServiceURL:  "http://127.0.0.1:9",
		TranscriptDir: t.TempDir(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, logger, cfg, "127.0.0.1:0", "room-1")
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after cancel")
	}
}
