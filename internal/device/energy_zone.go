// SPDX-FileCopyrightText: 2025 The capbench Authors
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"fmt"
	"path/filepath"

	"github.com/prometheus/procfs/sysfs"
)

// EnergyZone is a single powercap counter
type EnergyZone interface {
	// Name is the zone name, eg: package-0 or core
	Name() string
	// Path is the sysfs directory of the zone; its base name identifies the domain
	Path() string
	// Energy reads the counter
	Energy() (Energy, error)
	// MaxEnergy is the value at which the counter wraps around
	MaxEnergy() Energy
}

// zoneSource enumerates powercap zones
type zoneSource interface {
	Zones() ([]EnergyZone, error)
}

type sysfsZoneSource struct {
	fs sysfs.FS
}

func (s sysfsZoneSource) Zones() ([]EnergyZone, error) {
	raplZones, err := sysfs.GetRaplZones(s.fs)
	if err != nil {
		return nil, fmt.Errorf("failed to read rapl zones: %w", err)
	}

	zones := make([]EnergyZone, 0, len(raplZones))
	for _, z := range raplZones {
		zones = append(zones, sysfsZone{z})
	}
	return zones, nil
}

// sysfsZone adapts sysfs.RaplZone to EnergyZone
type sysfsZone struct {
	zone sysfs.RaplZone
}

func (z sysfsZone) Name() string {
	return z.zone.Name
}

func (z sysfsZone) Path() string {
	return z.zone.Path
}

func (z sysfsZone) Energy() (Energy, error) {
	uj, err := z.zone.GetEnergyMicrojoules()
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrCounter, filepath.Join(z.zone.Path, "energy_uj"), err)
	}
	return Energy(uj), nil
}

func (z sysfsZone) MaxEnergy() Energy {
	return Energy(z.zone.MaxMicrojoules)
}
