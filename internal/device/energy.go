// SPDX-FileCopyrightText: 2025 The capbench Authors
// SPDX-License-Identifier: Apache-2.0

package device

import (
	"encoding/json"
	"fmt"
	"time"
)

// Energy represents energy usage as an uint64 MicroJoule count, the unit
// RAPL counters are exposed in
type Energy uint64

const (
	MicroJoule Energy = 1
	MilliJoule        = 1000 * MicroJoule
	Joule             = 1000 * MilliJoule
)

func (e Energy) MicroJoules() uint64 {
	return uint64(e)
}

func (e Energy) Joules() float64 {
	return float64(e) / float64(Joule)
}

func (e Energy) String() string {
	return fmt.Sprintf("%.2fJ", e.Joules())
}

// DomainEnergy is the raw counter of one domain, eg: core0 or pkg1
type DomainEnergy struct {
	Domain string
	Energy Energy
}

// EnergySnapshot holds every counter read at once. Domain order never
// changes for snapshots produced by the same reader.
type EnergySnapshot struct {
	Timestamp time.Time
	Readings  []DomainEnergy
}

// DomainPower is the average power of one domain over a sampling interval
type DomainPower struct {
	Domain string `json:"domain"`
	Watts  uint64 `json:"power_watts"`
}

// PowerSample is the power of every domain at the midpoint of the interval
// between two snapshots
type PowerSample struct {
	Timestamp time.Time
	Data      []DomainPower
}

type powerSampleJSON struct {
	Timestamp int64         `json:"timestamp"` // ms since epoch
	Data      []DomainPower `json:"data"`
}

func (s PowerSample) MarshalJSON() ([]byte, error) {
	return json.Marshal(powerSampleJSON{
		Timestamp: s.Timestamp.UnixMilli(),
		Data:      s.Data,
	})
}

func (s *PowerSample) UnmarshalJSON(b []byte) error {
	var v powerSampleJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	s.Timestamp = time.UnixMilli(v.Timestamp)
	s.Data = v.Data
	return nil
}

// Domains returns the domain labels of the sample in order
func (s PowerSample) Domains() []string {
	ret := make([]string, len(s.Data))
	for i, d := range s.Data {
		ret[i] = d.Domain
	}
	return ret
}
