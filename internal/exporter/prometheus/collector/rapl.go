// SPDX-FileCopyrightText: 2025 The capbench Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/capbench/capbench/internal/device"
)

// RAPLCollector exposes the power of every RAPL domain from the last run
type RAPLCollector struct {
	watts *prom.GaugeVec
}

func NewRAPLCollector() *RAPLCollector {
	return &RAPLCollector{
		watts: prom.NewGaugeVec(
			prom.GaugeOpts{
				Namespace: namespace,
				Subsystem: "rapl",
				Name:      "power_watts",
				Help:      "Power of a RAPL domain averaged over one sampling interval",
			},
			[]string{"domain"},
		),
	}
}

// Observe records every domain of s
func (c *RAPLCollector) Observe(s device.PowerSample) {
	for _, d := range s.Data {
		c.watts.WithLabelValues(d.Domain).Set(float64(d.Watts))
	}
}

func (c *RAPLCollector) Describe(ch chan<- *prom.Desc) {
	c.watts.Describe(ch)
}

func (c *RAPLCollector) Collect(ch chan<- prom.Metric) {
	c.watts.Collect(ch)
}
