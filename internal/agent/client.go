// SPDX-FileCopyrightText: 2025 The capbench Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/capbench/capbench/internal/device"
)

// requestMargin is added to the load runtime when no request timeout is set
const requestMargin = 30 * time.Second

// Client calls the agent API. No request is ever retried.
type Client struct {
	logger   *slog.Logger
	endpoint string
	http     *http.Client
	timeout  time.Duration
}

type ClientOptionFn func(*Client)

// WithClientLogger sets the logger for the Client
func WithClientLogger(logger *slog.Logger) ClientOptionFn {
	return func(c *Client) {
		c.logger = logger.With("service", "agent-client")
	}
}

// WithHTTPClient replaces the default http client
func WithHTTPClient(hc *http.Client) ClientOptionFn {
	return func(c *Client) {
		c.http = hc
	}
}

// WithRequestTimeout bounds every request; zero derives the bound of a run
// from its runtime
func WithRequestTimeout(d time.Duration) ClientOptionFn {
	return func(c *Client) {
		c.timeout = d
	}
}

// NewClient returns a client for the agent at endpoint, eg: http://node01:8000
func NewClient(endpoint string, opts ...ClientOptionFn) *Client {
	c := &Client{
		logger:   slog.Default().With("service", "agent-client"),
		endpoint: endpoint,
		http:     &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunLoadTest runs the load described by req on the agent and returns the
// power it measured while doing so
func (c *Client) RunLoadTest(ctx context.Context, req RunTestRequest) ([]device.PowerSample, error) {
	timeout := c.timeout
	if timeout == 0 {
		timeout = time.Duration(req.RuntimeSecs)*time.Second + requestMargin
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProtocol, err)
	}

	var samples []device.PowerSample
	c.logger.Debug("running load test", "request", req, "timeout", timeout)
	if err := c.do(ctx, http.MethodPost, RunTestPath, bytes.NewReader(body), &samples); err != nil {
		return nil, err
	}

	if !consistentDomains(samples) {
		return nil, fmt.Errorf("%w: samples do not share the same domains", ErrProtocol)
	}
	c.logger.Debug("load test done", "samples", len(samples))
	return samples, nil
}

// ServerInfo returns the inventory of the system under test
func (c *Client) ServerInfo(ctx context.Context) (ServerInfo, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var info ServerInfo
	if err := c.do(ctx, http.MethodGet, SystemInfoPath, nil, &info); err != nil {
		return ServerInfo{}, err
	}
	if info.OnlineCPUs < 1 {
		return ServerInfo{}, fmt.Errorf("%w: agent reports %d online cpus", ErrProtocol, info.OnlineCPUs)
	}
	return info, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	url := c.endpoint + path
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrProtocol, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrProtocol, method, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return fmt.Errorf("%w: %s %s returned %d: %s", ErrProtocol, method, url, resp.StatusCode, e.Error)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode %s response: %w", ErrProtocol, path, err)
	}
	return nil
}
