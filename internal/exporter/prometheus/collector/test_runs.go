// SPDX-FileCopyrightText: 2025 The capbench Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/capbench/capbench/internal/coordinator"
)

// TestRunCollector counts the finished test runs of the suite
type TestRunCollector struct {
	runs     *prom.CounterVec
	duration prom.Histogram
	lastEnd  prom.Gauge
}

var _ coordinator.ResultSink = (*TestRunCollector)(nil)

func NewTestRunCollector() *TestRunCollector {
	return &TestRunCollector{
		runs: prom.NewCounterVec(
			prom.CounterOpts{
				Namespace: namespace,
				Subsystem: "suite",
				Name:      "test_runs_total",
				Help:      "Number of completed test runs",
			},
			[]string{"capping_order", "operation", "cap_step"},
		),
		duration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Subsystem: "suite",
			Name:      "test_run_duration_seconds",
			Help:      "Duration of a test run from load start to collection",
			Buckets:   prom.LinearBuckets(60, 15, 8),
		}),
		lastEnd: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Subsystem: "suite",
			Name:      "last_test_run_end_timestamp_seconds",
			Help:      "Unix time the last test run ended",
		}),
	}
}

func (c *TestRunCollector) Name() string {
	return "prometheus"
}

func (c *TestRunCollector) Record(r coordinator.Result) error {
	run := r.Run
	c.runs.WithLabelValues(run.Order.String(), run.Operation.String(), run.Step.String()).Inc()
	c.duration.Observe(run.End.Sub(run.Start).Seconds())
	c.lastEnd.Set(float64(run.End.Unix()))
	return nil
}

func (c *TestRunCollector) Flush() error {
	return nil
}

func (c *TestRunCollector) Describe(ch chan<- *prom.Desc) {
	c.runs.Describe(ch)
	c.duration.Describe(ch)
	c.lastEnd.Describe(ch)
}

func (c *TestRunCollector) Collect(ch chan<- prom.Metric) {
	c.runs.Collect(ch)
	c.duration.Collect(ch)
	c.lastEnd.Collect(ch)
}
