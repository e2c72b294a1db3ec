// SPDX-FileCopyrightText: 2025 The capbench Authors
// SPDX-License-Identifier: Apache-2.0

package bmc

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/stmcginnis/gofish"
	"github.com/stmcginnis/gofish/redfish"
	"k8s.io/utils/clock"

	"github.com/capbench/capbench/internal/config"
)

// Redfish implements Reader through the deprecated but widely supported
// Chassis Power resource. Cap writes are not supported; DCMI is used for those.
type Redfish struct {
	logger *slog.Logger
	clock  clock.PassiveClock
	cfg    gofish.ClientConfig

	mu     sync.Mutex
	client *gofish.APIClient
}

var _ Reader = (*Redfish)(nil)

type RedfishOptionFn func(*Redfish)

// WithRedfishLogger sets the logger for Redfish
func WithRedfishLogger(logger *slog.Logger) RedfishOptionFn {
	return func(r *Redfish) {
		r.logger = logger.With("service", "redfish")
	}
}

// WithRedfishClock sets the clock used to stamp readings; Redfish has no reading timestamp
func WithRedfishClock(c clock.PassiveClock) RedfishOptionFn {
	return func(r *Redfish) {
		r.clock = c
	}
}

// NewRedfish returns a Redfish reader for the BMC in cfg. Init must be
// called before reading.
func NewRedfish(cfg config.BMC, opts ...RedfishOptionFn) *Redfish {
	httpClient := &http.Client{Timeout: cfg.Redfish.HTTPTimeout}
	if cfg.Redfish.Insecure {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	r := &Redfish{
		logger: slog.Default().With("service", "redfish"),
		clock:  clock.RealClock{},
		cfg: gofish.ClientConfig{
			Endpoint:   cfg.Redfish.Endpoint,
			Username:   cfg.Username,
			Password:   cfg.Password,
			HTTPClient: httpClient,
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redfish) Name() string {
	return "redfish"
}

// Init connects to the BMC and checks that the power resource can be read
func (r *Redfish) Init() error {
	// gofish keeps the connect context for every later request, so no timeout here
	client, err := gofish.Connect(r.cfg)
	if err != nil {
		return fmt.Errorf("%w: failed to connect to %s: %w", ErrCommand, r.cfg.Endpoint, err)
	}

	r.mu.Lock()
	r.client = client
	r.mu.Unlock()

	if _, err := r.power(); err != nil {
		_ = r.Shutdown()
		return err
	}
	r.logger.Info("connected to BMC", "endpoint", r.cfg.Endpoint)
	return nil
}

// Shutdown logs out of the BMC session
func (r *Redfish) Shutdown() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client == nil {
		return nil
	}
	r.client.Logout()
	r.client = nil
	return nil
}

func (r *Redfish) Power(ctx context.Context) (PowerReading, error) {
	if err := ctx.Err(); err != nil {
		return PowerReading{}, err
	}
	pc, err := r.power()
	if err != nil {
		return PowerReading{}, err
	}
	return PowerReading{
		Instantaneous: uint64(pc.PowerConsumedWatts),
		Minimum:       uint64(pc.PowerMetrics.MinConsumedWatts),
		Maximum:       uint64(pc.PowerMetrics.MaxConsumedWatts),
		Average:       uint64(pc.PowerMetrics.AverageConsumedWatts),
		Timestamp:     r.clock.Now(),
	}, nil
}

// CapSettings reports the limit of the first power control. A limit of
// zero means no limit is enforced.
func (r *Redfish) CapSettings(ctx context.Context) (CapSetting, error) {
	if err := ctx.Err(); err != nil {
		return CapSetting{}, err
	}
	pc, err := r.power()
	if err != nil {
		return CapSetting{}, err
	}
	limit := pc.PowerLimit.LimitInWatts
	return CapSetting{
		IsActive:   limit > 0,
		PowerLimit: uint64(max(limit, 0)),
	}, nil
}

// power returns the first PowerControl of the first chassis that has one
func (r *Redfish) power() (*redfish.PowerControl, error) {
	r.mu.Lock()
	client := r.client
	r.mu.Unlock()
	if client == nil || client.Service == nil {
		return nil, fmt.Errorf("%w: redfish client is not connected", ErrCommand)
	}

	chassis, err := client.Service.Chassis()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get chassis collection: %w", ErrCommand, err)
	}

	for _, c := range chassis {
		if c == nil {
			continue
		}
		power, err := c.Power()
		if err != nil {
			r.logger.Debug("no power resource", "chassis", c.ID, "error", err)
			continue
		}
		if power != nil && len(power.PowerControl) > 0 {
			return &power.PowerControl[0], nil
		}
	}
	return nil, fmt.Errorf("%w: no chassis exposes power control (checked %d)", ErrParse, len(chassis))
}
