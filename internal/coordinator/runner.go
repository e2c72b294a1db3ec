// SPDX-FileCopyrightText: 2025 The capbench Authors
// SPDX-License-Identifier: Apache-2.0

package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/capbench/capbench/internal/agent"
	"github.com/capbench/capbench/internal/config"
	"github.com/capbench/capbench/internal/service"
	"github.com/capbench/capbench/internal/suite"
)

// ResultSink receives the result of every successful test run
type ResultSink interface {
	Name() string
	Record(Result) error
	// Flush is called once the suite is over, even when it failed
	Flush() error
}

// TestRunner runs a single test
type TestRunner interface {
	RunTest(ctx context.Context, t suite.Test) (Result, error)
}

// InfoSource describes the system under test
type InfoSource interface {
	ServerInfo(ctx context.Context) (agent.ServerInfo, error)
}

// NewSuite builds the suite described by cfg. The thread suite asks info
// for the number of online CPUs.
func NewSuite(ctx context.Context, cfg config.Suite, info InfoSource) (*suite.Suite, error) {
	switch cfg.Kind {
	case config.SuiteLoad:
		return suite.NewLoadSuite(cfg.PowerLevels, cfg.Loads, cfg.LoadPeriods), nil
	case config.SuiteThread:
		si, err := info.ServerInfo(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get server info: %w", err)
		}
		return suite.NewThreadSuite(cfg.PowerLevels, uint64(si.OnlineCPUs)), nil
	default:
		return nil, fmt.Errorf("unknown suite kind %q", cfg.Kind)
	}
}

// Runner runs a suite once, test after test, and hands results to the
// sinks. The first failure ends the suite.
type Runner struct {
	logger   *slog.Logger
	tests    TestRunner
	suite    *suite.Suite
	sinks    []ResultSink
	maxTests int
	dryRun   bool
	id       string
}

var _ service.Runner = (*Runner)(nil)

type RunnerOptionFn func(*Runner)

// WithRunnerLogger sets the logger for the Runner
func WithRunnerLogger(logger *slog.Logger) RunnerOptionFn {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithMaxTests stops the suite after n tests; 0 runs all of them
func WithMaxTests(n int) RunnerOptionFn {
	return func(r *Runner) {
		r.maxTests = n
	}
}

// WithDryRun lists the tests without running them
func WithDryRun(dryRun bool) RunnerOptionFn {
	return func(r *Runner) {
		r.dryRun = dryRun
	}
}

// WithSinks sets where results go
func WithSinks(sinks ...ResultSink) RunnerOptionFn {
	return func(r *Runner) {
		r.sinks = sinks
	}
}

// NewRunner returns a Runner for s; every run gets a new suite ID
func NewRunner(tests TestRunner, s *suite.Suite, opts ...RunnerOptionFn) *Runner {
	r := &Runner{
		logger: slog.Default(),
		tests:  tests,
		suite:  s,
		id:     uuid.NewString(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("service", "suite-runner", "suite", r.id)
	return r
}

func (r *Runner) Name() string {
	return "suite-runner"
}

// ID returns the suite ID attached to every result
func (r *Runner) ID() string {
	return r.id
}

func (r *Runner) Run(ctx context.Context) (err error) {
	r.logger.Info("starting suite", "kind", r.suite.Kind(), "tests", r.suite.Len(),
		"maxTests", r.maxTests, "dryRun", r.dryRun)
	if !r.dryRun {
		r.logger.Warn("controller and agent clocks are not synchronised; " +
			"cap timestamps and energy timestamps come from different hosts")
	}

	defer func() {
		for _, sink := range r.sinks {
			if ferr := sink.Flush(); ferr != nil {
				r.logger.Error("failed to flush results", "sink", sink.Name(), "error", ferr)
				err = errors.Join(err, ferr)
			}
		}
	}()

	ran, skipped := 0, 0
	for t := range r.suite.All() {
		if r.maxTests > 0 && ran >= r.maxTests {
			r.logger.Info("max tests reached", "maxTests", r.maxTests)
			break
		}
		if t.CapFrom == t.CapTo {
			skipped++
			r.logger.Debug("skipping test that keeps the cap level", "test", t.String())
			continue
		}
		ran++

		if r.dryRun {
			r.logger.Info("dry run", "n", ran, "test", t.String())
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		res, err := r.tests.RunTest(ctx, t)
		if err != nil {
			return fmt.Errorf("test %d (%s) failed: %w", ran, t, err)
		}
		res.SuiteID = r.id
		for _, sink := range r.sinks {
			if err := sink.Record(res); err != nil {
				return fmt.Errorf("failed to record test %d in %s: %w", ran, sink.Name(), err)
			}
		}
	}

	r.logger.Info("suite done", "tests", ran, "skipped", skipped)
	return nil
}
