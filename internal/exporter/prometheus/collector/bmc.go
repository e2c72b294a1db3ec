// SPDX-FileCopyrightText: 2025 The capbench Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/capbench/capbench/internal/monitor"
)

const bmcSubsystem = "bmc"

// BMCCollector exposes the last sample of the BMC monitor
type BMCCollector struct {
	power     prom.Gauge
	capLevel  prom.Gauge
	capActive prom.Gauge
	samples   prom.Counter
}

// NewBMCCollector creates a collector fed through Observe
func NewBMCCollector() *BMCCollector {
	gauge := func(name, help string) prom.Gauge {
		return prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Subsystem: bmcSubsystem,
			Name:      name,
			Help:      help,
		})
	}

	return &BMCCollector{
		power:     gauge("power_watts", "Instantaneous power reported by the BMC"),
		capLevel:  gauge("cap_level_watts", "Power limit configured on the BMC"),
		capActive: gauge("cap_active", "1 if the BMC enforces its power limit"),
		samples: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Subsystem: bmcSubsystem,
			Name:      "samples_total",
			Help:      "Number of BMC samples taken",
		}),
	}
}

// Observe records s; it is safe to call from the monitor goroutine
func (c *BMCCollector) Observe(s monitor.BMCSample) {
	c.power.Set(float64(s.Power))
	c.capLevel.Set(float64(s.CapLevel))
	if s.CapIsActive {
		c.capActive.Set(1)
	} else {
		c.capActive.Set(0)
	}
	c.samples.Inc()
}

func (c *BMCCollector) Describe(ch chan<- *prom.Desc) {
	c.power.Describe(ch)
	c.capLevel.Describe(ch)
	c.capActive.Describe(ch)
	c.samples.Describe(ch)
}

func (c *BMCCollector) Collect(ch chan<- prom.Metric) {
	c.power.Collect(ch)
	c.capLevel.Collect(ch)
	c.capActive.Collect(ch)
	c.samples.Collect(ch)
}
