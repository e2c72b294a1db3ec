// SPDX-FileCopyrightText: 2025 The capbench Authors
// SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"log/slog"
	"time"

	"k8s.io/utils/clock"
)

type Opts struct {
	logger            *slog.Logger
	clock             clock.Clock
	interval          time.Duration
	interCommandDelay time.Duration
	endDelay          time.Duration
	commandTimeout    time.Duration
	observer          func(BMCSample)
}

// DefaultOpts returns the options of a 2 Hz monitor
func DefaultOpts() Opts {
	return Opts{
		logger:            slog.Default(),
		clock:             clock.RealClock{},
		interval:          500 * time.Millisecond,
		interCommandDelay: 500 * time.Millisecond,
		endDelay:          2 * time.Second,
		commandTimeout:    30 * time.Second,
	}
}

// OptionFn is a function sets one more more options in Opts struct
type OptionFn func(*Opts)

// WithLogger sets the logger for the monitor
func WithLogger(logger *slog.Logger) OptionFn {
	return func(o *Opts) {
		o.logger = logger
	}
}

// WithClock sets the clock the monitor sleeps and stamps samples with
func WithClock(c clock.Clock) OptionFn {
	return func(o *Opts) {
		o.clock = c
	}
}

// WithInterval sets the pause between two samples
func WithInterval(d time.Duration) OptionFn {
	return func(o *Opts) {
		o.interval = d
	}
}

// WithInterCommandDelay sets the pause between the power and the cap
// reads of the BMC monitor; some BMCs drop back to back requests
func WithInterCommandDelay(d time.Duration) OptionFn {
	return func(o *Opts) {
		o.interCommandDelay = d
	}
}

// WithCommandTimeout bounds every BMC command of the BMC monitor; zero
// leaves them unbounded
func WithCommandTimeout(d time.Duration) OptionFn {
	return func(o *Opts) {
		o.commandTimeout = d
	}
}

// WithEndDelay sets how long the energy monitor is expected to outlive the load
func WithEndDelay(d time.Duration) OptionFn {
	return func(o *Opts) {
		o.endDelay = d
	}
}

// WithObserver registers fn to receive a copy of every BMC sample
func WithObserver(fn func(BMCSample)) OptionFn {
	return func(o *Opts) {
		o.observer = fn
	}
}
