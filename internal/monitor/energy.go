// SPDX-FileCopyrightText: 2025 The capbench Authors
// SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"k8s.io/utils/clock"

	"github.com/capbench/capbench/internal/device"
)

// EnergyMonitor polls the energy counters of the local host and hands out
// power, never raw energy
type EnergyMonitor struct {
	logger *slog.Logger
	clock  clock.Clock
	reader device.EnergyReader

	interval time.Duration
	endDelay time.Duration
}

// NewEnergyMonitor creates a monitor reading from r
func NewEnergyMonitor(r device.EnergyReader, applyOpts ...OptionFn) *EnergyMonitor {
	opts := DefaultOpts()
	for _, apply := range applyOpts {
		apply(&opts)
	}

	return &EnergyMonitor{
		logger:   opts.logger.With("service", "energy-monitor"),
		clock:    opts.clock,
		reader:   r,
		interval: opts.interval,
		endDelay: opts.endDelay,
	}
}

// Run snapshots the counters until ctx is cancelled, then converts them to
// power with a single read of the wraparound ceiling. expected is how long
// the caller plans to run it for and only sizes the buffer.
func (m *EnergyMonitor) Run(ctx context.Context, expected time.Duration) ([]device.PowerSample, error) {
	snapshots := make([]device.EnergySnapshot, 0, m.capacity(expected))

	m.logger.Debug("starting", "expected", expected, "capacity", cap(snapshots))
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		default:
		}

		snap, err := m.reader.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("failed to read energy counters: %w", err)
		}
		snapshots = append(snapshots, snap)

		select {
		case <-ctx.Done():
		case <-m.clock.After(m.interval):
		}
	}

	ceiling, err := m.reader.MaxEnergy()
	if err != nil {
		return nil, fmt.Errorf("failed to read energy ceiling: %w", err)
	}
	m.logger.Debug("stopped", "snapshots", len(snapshots), "ceiling", ceiling)
	return device.EnergyToPower(snapshots, ceiling)
}

// capacity is the number of snapshots a run of expected is likely to take
func (m *EnergyMonitor) capacity(expected time.Duration) int {
	total := expected + m.endDelay
	if m.interval <= 0 || total < 0 {
		return 1
	}
	return int(total/m.interval) + 1
}
