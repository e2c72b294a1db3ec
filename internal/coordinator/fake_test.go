// SPDX-FileCopyrightText: 2025 The capbench Authors
// SPDX-License-Identifier: Apache-2.0

package coordinator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/capbench/capbench/internal/agent"
	"github.com/capbench/capbench/internal/bmc"
	"github.com/capbench/capbench/internal/device"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// write is a BMC write and the coordinator state it happened in
type write struct {
	Cmd   string
	State State
}

// recordingBMC records every write; reads report the last written state
type recordingBMC struct {
	mu     sync.Mutex
	writes []write
	level  uint64
	active bool
	state  func() State

	failWrite string
	readErr   error
}

var _ bmc.Controller = (*recordingBMC)(nil)

func (b *recordingBMC) record(cmd string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cmd == b.failWrite {
		return fmt.Errorf("%w: %s rejected", bmc.ErrCommand, cmd)
	}
	st := Idle
	if b.state != nil {
		st = b.state()
	}
	b.writes = append(b.writes, write{Cmd: cmd, State: st})
	return nil
}

func (b *recordingBMC) SetCapLevel(_ context.Context, watts uint64) error {
	if err := b.record(fmt.Sprintf("level %d", watts)); err != nil {
		return err
	}
	b.mu.Lock()
	b.level = watts
	b.mu.Unlock()
	return nil
}

func (b *recordingBMC) Activate(context.Context) error {
	if err := b.record("activate"); err != nil {
		return err
	}
	b.mu.Lock()
	b.active = true
	b.mu.Unlock()
	return nil
}

func (b *recordingBMC) Deactivate(context.Context) error {
	if err := b.record("deactivate"); err != nil {
		return err
	}
	b.mu.Lock()
	b.active = false
	b.mu.Unlock()
	return nil
}

func (b *recordingBMC) Power(context.Context) (bmc.PowerReading, error) {
	if b.readErr != nil {
		return bmc.PowerReading{}, b.readErr
	}
	return bmc.PowerReading{Instantaneous: 450, Minimum: 300, Maximum: 600, Average: 440}, nil
}

func (b *recordingBMC) CapSettings(context.Context) (bmc.CapSetting, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bmc.CapSetting{IsActive: b.active, PowerLimit: b.level}, nil
}

func (b *recordingBMC) cmds() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	ret := make([]string, len(b.writes))
	for i, w := range b.writes {
		ret[i] = w.Cmd
	}
	return ret
}

func (b *recordingBMC) log() []write {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]write(nil), b.writes...)
}

// fakeAgent answers a run after delay with two samples
type fakeAgent struct {
	mu       sync.Mutex
	requests []agent.RunTestRequest
	delay    time.Duration
	err      error
}

func (a *fakeAgent) RunLoadTest(ctx context.Context, req agent.RunTestRequest) ([]device.PowerSample, error) {
	a.mu.Lock()
	a.requests = append(a.requests, req)
	a.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(a.delay):
	}
	if a.err != nil {
		return nil, a.err
	}

	now := time.Now()
	return []device.PowerSample{
		{Timestamp: now.Add(-time.Second), Data: []device.DomainPower{{Domain: "core0", Watts: 80}, {Domain: "pkg0", Watts: 150}}},
		{Timestamp: now, Data: []device.DomainPower{{Domain: "core0", Watts: 82}, {Domain: "pkg0", Watts: 155}}},
	}, nil
}

func (a *fakeAgent) reqs() []agent.RunTestRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]agent.RunTestRequest(nil), a.requests...)
}

func (a *fakeAgent) ServerInfo(context.Context) (agent.ServerInfo, error) {
	return agent.ServerInfo{Hostname: "node01", OnlineCPUs: 192, Sockets: 2}, a.err
}
