// SPDX-FileCopyrightText: 2025 The capbench Authors
// SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/capbench/capbench/internal/device"
)

type energyResult struct {
	samples []device.PowerSample
	err     error
}

func TestEnergyMonitorConvertsAtExit(t *testing.T) {
	clk := testingclock.NewFakeClock(t0)
	counters := &fakeCounters{clk: clk}
	m := NewEnergyMonitor(counters, WithLogger(discard()), WithClock(clk))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan energyResult, 1)
	go func() {
		s, err := m.Run(ctx, 10*time.Second)
		done <- energyResult{s, err}
	}()

	waitAndStep(t, clk, 500*time.Millisecond)
	waitAndStep(t, clk, 500*time.Millisecond)
	require.Eventually(t, clk.HasWaiters, time.Second, time.Millisecond)
	cancel()

	res := <-done
	require.NoError(t, res.err)
	// 3 snapshots, 100mJ per 500ms on core0 and twice that on pkg0
	require.Len(t, res.samples, 2)
	for i, s := range res.samples {
		assert.Equal(t, t0.Add(250*time.Millisecond+time.Duration(i)*500*time.Millisecond), s.Timestamp)
		assert.Equal(t, []device.DomainPower{
			{Domain: "core0", Watts: 200},
			{Domain: "pkg0", Watts: 400},
		}, s.Data)
	}
	assert.Equal(t, 1, counters.maxCalls)
}

func TestEnergyMonitorCancelledBeforeStart(t *testing.T) {
	clk := testingclock.NewFakeClock(t0)
	m := NewEnergyMonitor(&fakeCounters{clk: clk}, WithLogger(discard()), WithClock(clk))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	samples, err := m.Run(ctx, time.Second)
	require.NoError(t, err)
	assert.Empty(t, samples)
}

func TestEnergyMonitorZeroInterval(t *testing.T) {
	clk := testingclock.NewFakeClock(t0)
	m := NewEnergyMonitor(&fakeCounters{clk: clk}, WithLogger(discard()), WithClock(clk), WithInterval(0))
	assert.Equal(t, 1, m.capacity(time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NotPanics(t, func() {
		samples, err := m.Run(ctx, time.Minute)
		require.NoError(t, err)
		assert.Empty(t, samples)
	})
}

func TestEnergyMonitorCapacity(t *testing.T) {
	m := NewEnergyMonitor(&fakeCounters{}, WithLogger(discard()), WithEndDelay(2*time.Second))
	// 10s + 2s end delay at 2Hz
	assert.Equal(t, 25, m.capacity(10*time.Second))
	assert.Equal(t, 1, m.capacity(-time.Hour))
}

func TestEnergyMonitorErrors(t *testing.T) {
	t.Run("read", func(t *testing.T) {
		clk := testingclock.NewFakeClock(t0)
		counters := &fakeCounters{clk: clk, readErr: device.ErrCounter}
		m := NewEnergyMonitor(counters, WithLogger(discard()), WithClock(clk))

		_, err := m.Run(context.Background(), time.Second)
		assert.ErrorIs(t, err, device.ErrCounter)
		assert.Equal(t, 0, counters.maxCalls)
	})

	t.Run("ceiling", func(t *testing.T) {
		clk := testingclock.NewFakeClock(t0)
		boom := errors.New("zone disappeared")
		counters := &fakeCounters{clk: clk, maxErr: boom}
		m := NewEnergyMonitor(counters, WithLogger(discard()), WithClock(clk))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := m.Run(ctx, time.Second)
		assert.ErrorIs(t, err, boom)
	})
}
