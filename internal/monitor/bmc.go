// SPDX-FileCopyrightText: 2025 The capbench Authors
// SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"k8s.io/utils/clock"

	"github.com/capbench/capbench/internal/bmc"
)

// BMCSample is one poll of the BMC
type BMCSample struct {
	// Timestamp is the local time the sample was completed at, after the cap read
	Timestamp   time.Time
	Power       uint64 // watts
	CapLevel    uint64 // watts
	CapIsActive bool
}

// BMCMonitor polls power and cap state from a BMC until cancelled
type BMCMonitor struct {
	logger *slog.Logger
	clock  clock.Clock
	bmc    bmc.Reader

	interval          time.Duration
	interCommandDelay time.Duration
	commandTimeout    time.Duration
	observer          func(BMCSample)
}

// NewBMCMonitor creates a monitor reading from r
func NewBMCMonitor(r bmc.Reader, applyOpts ...OptionFn) *BMCMonitor {
	opts := DefaultOpts()
	for _, apply := range applyOpts {
		apply(&opts)
	}

	return &BMCMonitor{
		logger:            opts.logger.With("service", "bmc-monitor"),
		clock:             opts.clock,
		bmc:               r,
		interval:          opts.interval,
		interCommandDelay: opts.interCommandDelay,
		commandTimeout:    opts.commandTimeout,
		observer:          opts.observer,
	}
}

// Run samples the BMC until ctx is cancelled and returns the samples in
// order. Cancellation is checked once per cycle, so at most one more cycle
// runs after it. A BMC failure stops the loop and the samples are dropped.
func (m *BMCMonitor) Run(ctx context.Context) ([]BMCSample, error) {
	samples := make([]BMCSample, 0, 256)

	m.logger.Debug("starting")
	for {
		select {
		case <-ctx.Done():
			m.logger.Debug("stopped", "samples", len(samples))
			return samples, nil
		default:
		}

		var power bmc.PowerReading
		err := m.command(ctx, func(cmdCtx context.Context) (err error) {
			power, err = m.bmc.Power(cmdCtx)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to read BMC power: %w", err)
		}

		m.clock.Sleep(m.interCommandDelay)

		var limit bmc.CapSetting
		err = m.command(ctx, func(cmdCtx context.Context) (err error) {
			limit, err = m.bmc.CapSettings(cmdCtx)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to read BMC cap settings: %w", err)
		}

		sample := BMCSample{
			Timestamp:   m.clock.Now(),
			Power:       power.Instantaneous,
			CapLevel:    limit.PowerLimit,
			CapIsActive: limit.IsActive,
		}
		samples = append(samples, sample)
		if m.observer != nil {
			m.observer(sample)
		}

		select {
		case <-ctx.Done():
		case <-m.clock.After(m.interval):
		}
	}
}

// command runs one BMC command. Cancelling ctx does not interrupt it half
// way; the command timeout does.
func (m *BMCMonitor) command(ctx context.Context, fn func(context.Context) error) error {
	cmdCtx := context.WithoutCancel(ctx)
	if m.commandTimeout > 0 {
		var cancel context.CancelFunc
		cmdCtx, cancel = context.WithTimeout(cmdCtx, m.commandTimeout)
		defer cancel()
	}
	return fn(cmdCtx)
}
