// SPDX-FileCopyrightText: 2025 The capbench Authors
// SPDX-License-Identifier: Apache-2.0

// Package coordinator runs capping tests: it sets the BMC up, starts the
// remote load, applies the cap at the end of the warmup and gathers the
// power measured on both sides.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"k8s.io/utils/clock"

	"github.com/capbench/capbench/internal/agent"
	"github.com/capbench/capbench/internal/bmc"
	"github.com/capbench/capbench/internal/device"
	"github.com/capbench/capbench/internal/monitor"
	"github.com/capbench/capbench/internal/suite"
)

// ErrInvalidTest is returned for a test that cannot be run, eg: one that
// does not change the cap level
var ErrInvalidTest = errors.New("invalid test")

// LoadRunner runs the load on the system under test and returns the power
// its energy counters measured
type LoadRunner interface {
	RunLoadTest(ctx context.Context, req agent.RunTestRequest) ([]device.PowerSample, error)
}

// Result is everything recorded for one test run
type Result struct {
	SuiteID string
	Run     suite.TestRun
	Energy  []device.PowerSample
	BMC     []monitor.BMCSample
}

// Coordinator runs one test at a time against a BMC and an agent
type Coordinator struct {
	logger     *slog.Logger
	clock      clock.Clock
	bmc        bmc.Controller
	bmcMonitor bmc.Reader
	load       LoadRunner

	settle       time.Duration
	warmup       time.Duration
	testTime     time.Duration
	stepSize     uint64
	stepInterval time.Duration
	monitorOpts  []monitor.OptionFn

	mu    sync.Mutex
	state State
}

type Opts struct {
	logger        *slog.Logger
	clock         clock.Clock
	monitorReader bmc.Reader
	settle        time.Duration
	warmup        time.Duration
	testTime      time.Duration
	stepSize      uint64
	stepInterval  time.Duration
	monitorOpts   []monitor.OptionFn
}

// DefaultOpts returns the default options
func DefaultOpts() Opts {
	return Opts{
		logger:       slog.Default(),
		clock:        clock.RealClock{},
		settle:       2 * time.Second,
		warmup:       30 * time.Second,
		testTime:     60 * time.Second,
		stepSize:     100,
		stepInterval: 5 * time.Second,
	}
}

// OptionFn is a function sets one more more options in Opts struct
type OptionFn func(*Opts)

// WithLogger sets the logger for the Coordinator
func WithLogger(logger *slog.Logger) OptionFn {
	return func(o *Opts) {
		o.logger = logger
	}
}

// WithClock sets the clock used for pauses and timestamps
func WithClock(c clock.Clock) OptionFn {
	return func(o *Opts) {
		o.clock = c
	}
}

// WithMonitorReader makes the BMC monitor read from r instead of the
// controller, eg: through Redfish while caps are written over IPMI
func WithMonitorReader(r bmc.Reader) OptionFn {
	return func(o *Opts) {
		o.monitorReader = r
	}
}

// WithSettle sets the pause after every BMC write
func WithSettle(d time.Duration) OptionFn {
	return func(o *Opts) {
		o.settle = d
	}
}

// WithTiming sets how long the load runs before and after the cap is applied
func WithTiming(warmup, testTime time.Duration) OptionFn {
	return func(o *Opts) {
		o.warmup = warmup
		o.testTime = testTime
	}
}

// WithStep sets the increment and the pause of a stepped cap change
func WithStep(size uint64, interval time.Duration) OptionFn {
	return func(o *Opts) {
		o.stepSize = size
		o.stepInterval = interval
	}
}

// WithMonitorOptions configures the BMC monitor of every run
func WithMonitorOptions(opts ...monitor.OptionFn) OptionFn {
	return func(o *Opts) {
		o.monitorOpts = opts
	}
}

// New returns a coordinator writing caps through ctrl and loading the
// system under test through load
func New(ctrl bmc.Controller, load LoadRunner, applyOpts ...OptionFn) *Coordinator {
	opts := DefaultOpts()
	for _, apply := range applyOpts {
		apply(&opts)
	}

	reader := opts.monitorReader
	if reader == nil {
		reader = ctrl
	}

	return &Coordinator{
		logger:       opts.logger.With("service", "coordinator"),
		clock:        opts.clock,
		bmc:          ctrl,
		bmcMonitor:   reader,
		load:         load,
		settle:       opts.settle,
		warmup:       opts.warmup,
		testTime:     opts.testTime,
		stepSize:     opts.stepSize,
		stepInterval: opts.stepInterval,
		monitorOpts: append([]monitor.OptionFn{
			monitor.WithLogger(opts.logger),
			monitor.WithClock(opts.clock),
		}, opts.monitorOpts...),
	}
}

// State returns the phase of the run in progress
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	from := c.state
	c.state = s
	c.mu.Unlock()
	c.logger.Debug("state transition", "from", from, "to", s)
}

// Runtime returns how long the load of t must run for
func (c *Coordinator) Runtime(t suite.Test) time.Duration {
	runtime := c.warmup + c.testTime
	if t.Step == suite.Step {
		runtime += rampBudget(t.CapFrom, t.CapTo, c.stepSize, c.stepInterval)
	}
	return runtime
}

// RunTest runs t to completion. Any failure aborts the run; the samples
// gathered so far are dropped.
func (c *Coordinator) RunTest(ctx context.Context, t suite.Test) (Result, error) {
	if t.CapFrom == t.CapTo {
		return Result{}, fmt.Errorf("%w: cap level stays at %dW", ErrInvalidTest, t.CapFrom)
	}
	logger := c.logger.With("test", t.String())
	logger.Info("starting test")

	c.setState(SettingPreconditions)
	if err := c.setPreconditions(ctx, t); err != nil {
		c.setState(Idle)
		return Result{}, fmt.Errorf("failed to set preconditions: %w", err)
	}

	runtime := c.Runtime(t)
	req := agent.RunTestRequest{
		RuntimeSecs:  ceilSeconds(runtime),
		LoadPct:      t.LoadPct,
		LoadPeriodUs: t.LoadPeriodUs,
		NThreads:     t.NThreads,
	}

	c.setState(Warmup)
	g, gctx := errgroup.WithContext(ctx)
	monitorCtx, stopMonitor := context.WithCancel(gctx)
	defer stopMonitor()

	run := suite.TestRun{Test: t, Start: c.clock.Now()}
	var (
		bmcSamples []monitor.BMCSample
		energy     []device.PowerSample
		loadDone   = make(chan struct{})
	)

	mon := monitor.NewBMCMonitor(c.bmcMonitor, c.monitorOpts...)
	g.Go(func() error {
		var err error
		bmcSamples, err = mon.Run(monitorCtx)
		return err
	})

	g.Go(func() error {
		defer close(loadDone)
		var err error
		energy, err = c.load.RunLoadTest(gctx, req)
		return err
	})

	g.Go(func() error {
		defer stopMonitor()
		if err := c.sleep(gctx, c.warmup); err != nil {
			return err
		}

		c.setState(Capping)
		run.CapApplied = c.clock.Now()
		if err := c.applyCap(gctx, t); err != nil {
			return fmt.Errorf("failed to apply cap: %w", err)
		}

		c.setState(AwaitingLoadCompletion)
		select {
		case <-loadDone:
		case <-gctx.Done():
			return gctx.Err()
		}
		c.setState(Collecting)
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("test failed", "state", c.State(), "error", err)
		c.setState(Idle)
		return Result{}, err
	}
	run.End = c.clock.Now()
	c.setState(Done)

	logger.Info("test done", "duration", run.End.Sub(run.Start),
		"energySamples", len(energy), "bmcSamples", len(bmcSamples))
	return Result{Run: run, Energy: energy, BMC: bmcSamples}, nil
}

func (c *Coordinator) setPreconditions(ctx context.Context, t suite.Test) error {
	switch t.Order {
	case suite.LevelBeforeActivate:
		if err := c.setLevel(ctx, t.CapTo); err != nil {
			return err
		}
		return c.setActivation(ctx, opposite(t.Operation))
	case suite.LevelAfterActivate:
		if err := c.setLevel(ctx, t.CapFrom); err != nil {
			return err
		}
		return c.setActivation(ctx, t.Operation)
	case suite.LevelToLevel, suite.LevelToLevelActivate:
		if err := c.setLevel(ctx, t.CapFrom); err != nil {
			return err
		}
		return c.setActivation(ctx, suite.Activate)
	default:
		return fmt.Errorf("%w: unknown capping order %s", ErrInvalidTest, t.Order)
	}
}

func (c *Coordinator) applyCap(ctx context.Context, t suite.Test) error {
	switch t.Order {
	case suite.LevelBeforeActivate:
		return c.setActivation(ctx, t.Operation)
	case suite.LevelAfterActivate:
		if t.Step == suite.OneShot {
			return c.setLevel(ctx, t.CapTo)
		}
		levels := rampLevels(t.CapFrom, t.CapTo, c.stepSize)
		for i, level := range levels {
			if err := c.bmc.SetCapLevel(ctx, level); err != nil {
				return err
			}
			if i == len(levels)-1 {
				break
			}
			if err := c.sleep(ctx, c.stepInterval); err != nil {
				return err
			}
		}
		return nil
	case suite.LevelToLevel:
		return c.setLevel(ctx, t.CapTo)
	case suite.LevelToLevelActivate:
		if err := c.setLevel(ctx, t.CapTo); err != nil {
			return err
		}
		return c.setActivation(ctx, suite.Activate)
	default:
		return fmt.Errorf("%w: unknown capping order %s", ErrInvalidTest, t.Order)
	}
}

// setLevel writes the cap level and waits for the BMC to settle
func (c *Coordinator) setLevel(ctx context.Context, watts uint64) error {
	if err := c.bmc.SetCapLevel(ctx, watts); err != nil {
		return err
	}
	return c.sleep(ctx, c.settle)
}

// setActivation applies op and waits for the BMC to settle
func (c *Coordinator) setActivation(ctx context.Context, op suite.Operation) error {
	var err error
	if op == suite.Activate {
		err = c.bmc.Activate(ctx)
	} else {
		err = c.bmc.Deactivate(ctx)
	}
	if err != nil {
		return err
	}
	return c.sleep(ctx, c.settle)
}

func (c *Coordinator) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.clock.After(d):
		return nil
	}
}

func opposite(op suite.Operation) suite.Operation {
	if op == suite.Activate {
		return suite.Deactivate
	}
	return suite.Activate
}

// rampLevels returns the levels written when stepping from one level to
// another: whole steps while more than one step remains, then the target
func rampLevels(from, to, step uint64) []uint64 {
	if step == 0 || from == to {
		return []uint64{to}
	}

	var levels []uint64
	level := from
	for distance(level, to) > step {
		if to > level {
			level += step
		} else {
			level -= step
		}
		levels = append(levels, level)
	}
	return append(levels, to)
}

// rampBudget is the extra load runtime a stepped change needs, in whole
// seconds: one interval between every two writes of rampLevels
func rampBudget(from, to, step uint64, interval time.Duration) time.Duration {
	pauses := len(rampLevels(from, to, step)) - 1
	return time.Duration(ceilSeconds(time.Duration(pauses)*interval)) * time.Second
}

func distance(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}

func ceilSeconds(d time.Duration) uint64 {
	return uint64((d + time.Second - 1) / time.Second)
}
