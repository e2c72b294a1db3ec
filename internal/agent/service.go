// SPDX-FileCopyrightText: 2025 The capbench Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"k8s.io/utils/clock"

	"github.com/capbench/capbench/internal/device"
	"github.com/capbench/capbench/internal/firestarter"
	"github.com/capbench/capbench/internal/monitor"
	"github.com/capbench/capbench/internal/server"
	"github.com/capbench/capbench/internal/service"
)

// LoadRunner runs the load generator until it exits
type LoadRunner interface {
	Run(ctx context.Context, p firestarter.Params) error
}

// maxRequestBytes bounds the run_test body
const maxRequestBytes = 4096

// Service serves the agent API on the system under test
type Service struct {
	logger    *slog.Logger
	clock     clock.Clock
	api       server.APIService
	load      LoadRunner
	reader    device.EnergyReader
	inventory Inventory

	endDelay    time.Duration
	monitorOpts []monitor.OptionFn
	observer    func(device.PowerSample)

	// held for the whole of a run; a second run is refused
	running sync.Mutex
}

var _ service.Initializer = (*Service)(nil)

type Opts struct {
	logger      *slog.Logger
	clock       clock.Clock
	endDelay    time.Duration
	monitorOpts []monitor.OptionFn
	observer    func(device.PowerSample)
}

// DefaultOpts returns the default options
func DefaultOpts() Opts {
	return Opts{
		logger:   slog.Default(),
		clock:    clock.RealClock{},
		endDelay: 2 * time.Second,
	}
}

// OptionFn is a function sets one more more options in Opts struct
type OptionFn func(*Opts)

// WithLogger sets the logger for the Service
func WithLogger(logger *slog.Logger) OptionFn {
	return func(o *Opts) {
		o.logger = logger
	}
}

// WithClock sets the clock used to wait for the end delay
func WithClock(c clock.Clock) OptionFn {
	return func(o *Opts) {
		o.clock = c
	}
}

// WithEndDelay sets how long the counters are still sampled once the load exits
func WithEndDelay(d time.Duration) OptionFn {
	return func(o *Opts) {
		o.endDelay = d
	}
}

// WithMonitorOptions configures the energy monitor of every run
func WithMonitorOptions(opts ...monitor.OptionFn) OptionFn {
	return func(o *Opts) {
		o.monitorOpts = opts
	}
}

// WithPowerObserver registers fn to receive every sample of a successful run
func WithPowerObserver(fn func(device.PowerSample)) OptionFn {
	return func(o *Opts) {
		o.observer = fn
	}
}

// NewService returns the agent service; Init registers its endpoints on api
func NewService(api server.APIService, load LoadRunner, reader device.EnergyReader, inv Inventory, applyOpts ...OptionFn) *Service {
	opts := DefaultOpts()
	for _, apply := range applyOpts {
		apply(&opts)
	}

	return &Service{
		logger:      opts.logger.With("service", "agent"),
		clock:       opts.clock,
		api:         api,
		load:        load,
		reader:      reader,
		inventory:   inv,
		endDelay:    opts.endDelay,
		monitorOpts: append([]monitor.OptionFn{monitor.WithLogger(opts.logger)}, opts.monitorOpts...),
		observer:    opts.observer,
	}
}

func (s *Service) Name() string {
	return "agent"
}

func (s *Service) Init() error {
	if err := s.api.Register(http.MethodPost+" "+RunTestPath, "Run test",
		"Runs the load generator and returns the measured power", http.HandlerFunc(s.runTest)); err != nil {
		return err
	}
	return s.api.Register(http.MethodGet+" "+SystemInfoPath, "System info",
		"Host name and CPU inventory", http.HandlerFunc(s.systemInfo))
}

func (s *Service) runTest(w http.ResponseWriter, r *http.Request) {
	var req RunTestRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	if !s.running.TryLock() {
		s.writeError(w, http.StatusConflict, errors.New("a test is already running"))
		return
	}
	defer s.running.Unlock()

	samples, err := s.Run(r.Context(), req)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, samples)
}

// Run runs one load while the energy monitor samples the counters. The
// monitor starts before the load and stops the end delay after it.
func (s *Service) Run(ctx context.Context, req RunTestRequest) ([]device.PowerSample, error) {
	runtime := time.Duration(req.RuntimeSecs) * time.Second
	s.logger.Info("starting test run", "runtime", runtime, "load", req.LoadPct,
		"period", req.LoadPeriodUs, "threads", req.NThreads)

	mon := monitor.NewEnergyMonitor(s.reader, s.monitorOpts...)
	g, gctx := errgroup.WithContext(ctx)
	monCtx, stopMonitor := context.WithCancel(gctx)
	defer stopMonitor()

	var samples []device.PowerSample
	g.Go(func() error {
		var err error
		samples, err = mon.Run(monCtx, runtime)
		return err
	})
	g.Go(func() error {
		defer stopMonitor()
		if err := s.load.Run(gctx, req.params()); err != nil {
			return err
		}
		select {
		case <-gctx.Done():
		case <-s.clock.After(s.endDelay):
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("test run failed", "error", err)
		return nil, err
	}

	if samples == nil {
		samples = []device.PowerSample{}
	}
	if s.observer != nil {
		for _, ps := range samples {
			s.observer(ps)
		}
	}
	s.logger.Info("test run done", "samples", len(samples))
	return samples, nil
}

func (s *Service) systemInfo(w http.ResponseWriter, _ *http.Request) {
	info, err := s.inventory.ServerInfo()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, info)
}

func (s *Service) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to write response", "error", err)
	}
}

func (s *Service) writeError(w http.ResponseWriter, status int, err error) {
	s.logger.Warn("request failed", "status", status, "error", err)
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}
