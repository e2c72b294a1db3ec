// SPDX-FileCopyrightText: 2025 The capbench Authors
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"

	"github.com/prometheus/procfs/sysfs"
	"k8s.io/utils/clock"
)

// ErrCounter is returned when RAPL counters cannot be discovered or read
var ErrCounter = errors.New("energy counter error")

// EnergyReader reads the per domain energy counters of the local host
type EnergyReader interface {
	// Domains returns the labels of the counters, in snapshot order
	Domains() []string
	// ReadAll reads every counter once
	ReadAll() (EnergySnapshot, error)
	// MaxEnergy returns the value at which counters wrap around
	MaxEnergy() (Energy, error)
}

// intel-rapl:<domain> is a package counter, intel-rapl:<domain>:0 its core counter
var raplZoneDir = regexp.MustCompile(`^intel-rapl:(\d+)(?::(\d+))?$`)

type domainCounter struct {
	label string
	zone  EnergyZone
}

// RaplReader implements EnergyReader on top of the powercap sysfs tree
type RaplReader struct {
	logger *slog.Logger
	clock  clock.PassiveClock
	source zoneSource

	// cores first then packages, each by ascending domain id
	counters []domainCounter
	// package zone directory of the lowest domain; its range is the ceiling
	ceilingZone string
}

var _ EnergyReader = (*RaplReader)(nil)

type OptionFn func(*RaplReader)

// WithLogger sets the logger for the RaplReader
func WithLogger(logger *slog.Logger) OptionFn {
	return func(r *RaplReader) {
		r.logger = logger.With("service", "rapl")
	}
}

// WithClock sets the clock used to stamp snapshots
func WithClock(c clock.PassiveClock) OptionFn {
	return func(r *RaplReader) {
		r.clock = c
	}
}

// withZoneSource replaces sysfs as the source of zones
func withZoneSource(s zoneSource) OptionFn {
	return func(r *RaplReader) {
		r.source = s
	}
}

// NewRaplReader discovers the RAPL domains under sysfsPath. It fails if no
// domain is found, if a domain has no core counter or if a counter cannot
// be read.
func NewRaplReader(sysfsPath string, opts ...OptionFn) (*RaplReader, error) {
	r := &RaplReader{
		logger: slog.Default().With("service", "rapl"),
		clock:  clock.RealClock{},
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.source == nil {
		fs, err := sysfs.NewFS(sysfsPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCounter, err)
		}
		r.source = sysfsZoneSource{fs: fs}
	}

	if err := r.discover(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *RaplReader) discover() error {
	zones, err := r.source.Zones()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCounter, err)
	}

	pkgs := map[int]EnergyZone{}
	cores := map[int]EnergyZone{}
	for _, z := range zones {
		m := raplZoneDir.FindStringSubmatch(filepath.Base(z.Path()))
		if m == nil {
			r.logger.Debug("ignoring zone", "path", z.Path(), "name", z.Name())
			continue
		}
		// the pattern guarantees digits
		domain, _ := strconv.Atoi(m[1])
		switch m[2] {
		case "":
			pkgs[domain] = z
		case "0":
			cores[domain] = z
		}
	}

	if len(pkgs) == 0 {
		return fmt.Errorf("%w: no RAPL domains found", ErrCounter)
	}

	ids := make([]int, 0, len(pkgs))
	for id := range pkgs {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	counters := make([]domainCounter, 0, 2*len(ids))
	for _, id := range ids {
		core, ok := cores[id]
		if !ok {
			return fmt.Errorf("%w: domain %d has no core counter", ErrCounter, id)
		}
		counters = append(counters, domainCounter{label: fmt.Sprintf("core%d", id), zone: core})
	}
	for _, id := range ids {
		counters = append(counters, domainCounter{label: fmt.Sprintf("pkg%d", id), zone: pkgs[id]})
	}

	for _, c := range counters {
		if _, err := c.zone.Energy(); err != nil {
			return err
		}
	}

	r.counters = counters
	r.ceilingZone = filepath.Base(pkgs[ids[0]].Path())
	r.logger.Info("discovered RAPL domains", "domains", r.Domains())
	return nil
}

func (r *RaplReader) Domains() []string {
	ret := make([]string, len(r.counters))
	for i, c := range r.counters {
		ret[i] = c.label
	}
	return ret
}

func (r *RaplReader) ReadAll() (EnergySnapshot, error) {
	snapshot := EnergySnapshot{
		Timestamp: r.clock.Now(),
		Readings:  make([]DomainEnergy, 0, len(r.counters)),
	}
	for _, c := range r.counters {
		e, err := c.zone.Energy()
		if err != nil {
			return EnergySnapshot{}, err
		}
		snapshot.Readings = append(snapshot.Readings, DomainEnergy{Domain: c.label, Energy: e})
	}
	return snapshot, nil
}

// MaxEnergy re-reads the energy range of the lowest package domain
func (r *RaplReader) MaxEnergy() (Energy, error) {
	zones, err := r.source.Zones()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrCounter, err)
	}
	for _, z := range zones {
		if filepath.Base(z.Path()) == r.ceilingZone {
			return z.MaxEnergy(), nil
		}
	}
	return 0, fmt.Errorf("%w: zone %s disappeared", ErrCounter, r.ceilingZone)
}
