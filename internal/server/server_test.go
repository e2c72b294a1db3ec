// SPDX-FileCopyrightText: 2025 The capbench Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ok(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, body)
	})
}

func TestRegister(t *testing.T) {
	s := NewAPIServer(WithLogger(discard()))
	require.NoError(t, s.Register("POST /api/run_test", "Run test", "Runs a load test", ok("ran")))
	require.NoError(t, s.Register("/metrics", "Metrics", "Prometheus metrics", ok("metrics")))

	err := s.Register("/metrics", "Metrics", "again", ok(""))
	assert.ErrorContains(t, err, `endpoint "/metrics" already registered`)

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/run_test", "application/json", nil)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ran", string(body))

	resp, err = http.Get(srv.URL + "/api/run_test")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestLandingPage(t *testing.T) {
	s := NewAPIServer(WithLogger(discard()))
	require.NoError(t, s.Register("GET /api/system_info", "System info", "Host inventory", ok("")))

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, string(body), `<a href="/api/system_info">System info</a>`)
	assert.Contains(t, string(body), "Host inventory")

	resp, err = http.Get(srv.URL + "/unknown")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = l.Close() }()
	return l.Addr().(*net.TCPAddr).Port
}

func TestRunAndShutdown(t *testing.T) {
	addr := fmt.Sprintf("127.0.0.1:%d", freePort(t))
	s := NewAPIServer(WithLogger(discard()), WithListen([]string{addr}, ""))
	require.NoError(t, s.Register("/ping", "Ping", "", ok("pong")))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/ping")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	assert.NoError(t, <-errCh)
	assert.NoError(t, s.Shutdown())
}

func TestRunPortConflict(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = l.Close() }()

	s := NewAPIServer(WithLogger(discard()), WithListen([]string{l.Addr().String()}, ""))
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err = s.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "in use")
}
