// SPDX-FileCopyrightText: 2025 The capbench Authors
// SPDX-License-Identifier: Apache-2.0

package bmc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/capbench/capbench/internal/bmc/mock"
	"github.com/capbench/capbench/internal/config"
)

func redfishConfig(endpoint string) config.BMC {
	cfg := config.DefaultConfig().BMC
	cfg.Username = "admin"
	cfg.Password = "password"
	cfg.Redfish.Endpoint = endpoint
	return cfg
}

func TestRedfishReader(t *testing.T) {
	server := mock.NewServer(mock.ServerConfig{PowerWatts: 312, LimitWatts: 480})
	defer server.Close()

	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	r := NewRedfish(redfishConfig(server.URL()), WithRedfishClock(testingclock.NewFakePassiveClock(now)))
	require.NoError(t, r.Init())
	assert.Equal(t, 1, server.ActiveSessions())

	ctx := context.Background()
	p, err := r.Power(ctx)
	require.NoError(t, err)
	assert.Equal(t, PowerReading{
		Instantaneous: 312,
		Minimum:       156,
		Maximum:       624,
		Average:       312,
		Timestamp:     now,
	}, p)

	c, err := r.CapSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, CapSetting{IsActive: true, PowerLimit: 480}, c)

	server.SetPower(250, 0)
	c, err = r.CapSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, CapSetting{IsActive: false, PowerLimit: 0}, c)

	require.NoError(t, r.Shutdown())
	assert.Equal(t, 0, server.ActiveSessions())

	_, err = r.Power(ctx)
	assert.ErrorIs(t, err, ErrCommand, "reads after shutdown must fail")
}

func TestRedfishInitErrors(t *testing.T) {
	t.Run("bad credentials", func(t *testing.T) {
		server := mock.NewServer(mock.ServerConfig{})
		defer server.Close()

		cfg := redfishConfig(server.URL())
		cfg.Password = "wrong"
		err := NewRedfish(cfg).Init()
		assert.ErrorIs(t, err, ErrCommand)
	})

	t.Run("no power control", func(t *testing.T) {
		server := mock.NewServer(mock.ServerConfig{NoPowerControl: true})
		defer server.Close()

		err := NewRedfish(redfishConfig(server.URL())).Init()
		assert.ErrorIs(t, err, ErrParse)
		assert.Equal(t, 0, server.ActiveSessions(), "failed init must log out")
	})
}

func TestRedfishCancelledContext(t *testing.T) {
	server := mock.NewServer(mock.ServerConfig{PowerWatts: 100})
	defer server.Close()

	r := NewRedfish(redfishConfig(server.URL()))
	require.NoError(t, r.Init())
	defer func() { _ = r.Shutdown() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	before := server.Requests("/redfish/v1/Chassis/1/Power")

	_, err := r.Power(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, before, server.Requests("/redfish/v1/Chassis/1/Power"))
}
