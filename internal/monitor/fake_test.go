// SPDX-FileCopyrightText: 2025 The capbench Authors
// SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/capbench/capbench/internal/bmc"
	"github.com/capbench/capbench/internal/device"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// waitAndStep advances clk by d once the monitor blocks on it
func waitAndStep(t *testing.T, clk *testingclock.FakeClock, d time.Duration) {
	t.Helper()
	require.Eventually(t, clk.HasWaiters, time.Second, time.Millisecond)
	clk.Step(d)
}

// fakeBMC is a bmc.Reader whose power rises by 10W per read
type fakeBMC struct {
	mu       sync.Mutex
	power    uint64
	limit    bmc.CapSetting
	reads    int
	powerErr error
	capErr   error
	onPower  func()
	capCtxs  []error
	// hang blocks Power until its context is done
	hang bool
}

func (f *fakeBMC) Power(ctx context.Context) (bmc.PowerReading, error) {
	f.mu.Lock()
	f.reads++
	f.power += 10
	p, err, hook, hang := f.power, f.powerErr, f.onPower, f.hang
	f.mu.Unlock()

	if hang {
		<-ctx.Done()
		return bmc.PowerReading{}, ctx.Err()
	}

	if hook != nil {
		hook()
	}
	return bmc.PowerReading{Instantaneous: p}, err
}

func (f *fakeBMC) CapSettings(ctx context.Context) (bmc.CapSetting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.capCtxs = append(f.capCtxs, ctx.Err())
	return f.limit, f.capErr
}

func (f *fakeBMC) Reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

// fakeCounters is a device.EnergyReader adding 100mJ per domain on every read
type fakeCounters struct {
	clk      *testingclock.FakeClock
	mu       sync.Mutex
	energy   device.Energy
	readErr  error
	maxErr   error
	maxCalls int
}

func (f *fakeCounters) Domains() []string {
	return []string{"core0", "pkg0"}
}

func (f *fakeCounters) ReadAll() (device.EnergySnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return device.EnergySnapshot{}, f.readErr
	}
	f.energy += 100 * device.MilliJoule
	return device.EnergySnapshot{
		Timestamp: f.clk.Now(),
		Readings: []device.DomainEnergy{
			{Domain: "core0", Energy: f.energy},
			{Domain: "pkg0", Energy: 2 * f.energy},
		},
	}, nil
}

func (f *fakeCounters) MaxEnergy() (device.Energy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.maxCalls++
	return 1 << 40, f.maxErr
}
