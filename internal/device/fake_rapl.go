// SPDX-FileCopyrightText: 2025 The capbench Authors
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"fmt"
	"log/slog"
	"math/rand"
	"path/filepath"
	"sync"
)

// NOTE: the fake reader is for development on hosts without RAPL only

const fakePowercapPath = "/sys/class/powercap"

// fakeEnergyZone is a counter that advances on every read
type fakeEnergyZone struct {
	name      string
	path      string
	maxEnergy Energy

	mu           sync.Mutex
	energy       Energy
	increment    Energy
	randomFactor float64
}

var _ EnergyZone = (*fakeEnergyZone)(nil)

func (z *fakeEnergyZone) Name() string {
	return z.name
}

func (z *fakeEnergyZone) Path() string {
	return z.path
}

func (z *fakeEnergyZone) Energy() (Energy, error) {
	z.mu.Lock()
	defer z.mu.Unlock()

	jitter := Energy(rand.Float64() * float64(z.increment) * z.randomFactor)
	z.energy = (z.energy + z.increment + jitter) % z.maxEnergy
	return z.energy, nil
}

func (z *fakeEnergyZone) MaxEnergy() Energy {
	return z.maxEnergy
}

type fakeZones []EnergyZone

func (f fakeZones) Zones() ([]EnergyZone, error) {
	return f, nil
}

// FakeOptFn configures the fake reader
type FakeOptFn func(*fakeConfig)

type fakeConfig struct {
	sockets   int
	maxEnergy Energy
}

// WithFakeSockets sets the number of RAPL domains
func WithFakeSockets(n int) FakeOptFn {
	return func(c *fakeConfig) {
		c.sockets = n
	}
}

// WithFakeMaxEnergy sets the energy value at which counters wrap around
func WithFakeMaxEnergy(e Energy) FakeOptFn {
	return func(c *fakeConfig) {
		c.maxEnergy = e
	}
}

// NewFakeRaplReader returns a RaplReader backed by counters that grow on
// every read, roughly as a busy socket would
func NewFakeRaplReader(logger *slog.Logger, opts ...FakeOptFn) (*RaplReader, error) {
	cfg := fakeConfig{sockets: 2, maxEnergy: 262_143_328_850}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.sockets < 1 {
		return nil, fmt.Errorf("%w: fake reader needs at least one socket", ErrCounter)
	}

	zones := make(fakeZones, 0, 2*cfg.sockets)
	for i := range cfg.sockets {
		pkg := fmt.Sprintf("intel-rapl:%d", i)
		zones = append(zones,
			&fakeEnergyZone{
				name:         fmt.Sprintf("package-%d", i),
				path:         filepath.Join(fakePowercapPath, pkg),
				maxEnergy:    cfg.maxEnergy,
				increment:    120 * MilliJoule,
				randomFactor: 0.5,
			},
			&fakeEnergyZone{
				name:         "core",
				path:         filepath.Join(fakePowercapPath, pkg+":0"),
				maxEnergy:    cfg.maxEnergy,
				increment:    80 * MilliJoule,
				randomFactor: 0.5,
			},
		)
	}

	logger.Warn("using fake RAPL counters", "sockets", cfg.sockets)
	return NewRaplReader("", WithLogger(logger), withZoneSource(zones))
}
