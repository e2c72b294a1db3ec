// SPDX-FileCopyrightText: 2025 The capbench Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/procfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capbench/capbench/internal/coordinator"
	"github.com/capbench/capbench/internal/device"
	"github.com/capbench/capbench/internal/monitor"
	"github.com/capbench/capbench/internal/suite"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuildInfoCollector(t *testing.T) {
	c := NewBuildInfoCollector()

	descs := make(chan *prom.Desc, 1)
	c.Describe(descs)
	assert.Len(t, descs, 1, "expected one metric description")

	ch := make(chan prom.Metric, 1)
	c.Collect(ch)
	require.Len(t, ch, 1, "should have received exactly one metric")

	desc := (<-ch).Desc().String()
	assert.Contains(t, desc, "capbench_build_info")
	for _, label := range []string{"arch", "revision", "version", "goversion"} {
		assert.Contains(t, desc, label)
	}
}

func TestBMCCollector(t *testing.T) {
	c := NewBMCCollector()
	c.Observe(monitor.BMCSample{Power: 450, CapLevel: 580, CapIsActive: true})
	c.Observe(monitor.BMCSample{Power: 210, CapLevel: 200, CapIsActive: false})

	assert.Equal(t, 4, testutil.CollectAndCount(c))
	expected := `
# HELP capbench_bmc_power_watts Instantaneous power reported by the BMC
# TYPE capbench_bmc_power_watts gauge
capbench_bmc_power_watts 210
# HELP capbench_bmc_cap_level_watts Power limit configured on the BMC
# TYPE capbench_bmc_cap_level_watts gauge
capbench_bmc_cap_level_watts 200
# HELP capbench_bmc_cap_active 1 if the BMC enforces its power limit
# TYPE capbench_bmc_cap_active gauge
capbench_bmc_cap_active 0
# HELP capbench_bmc_samples_total Number of BMC samples taken
# TYPE capbench_bmc_samples_total counter
capbench_bmc_samples_total 2
`
	assert.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected)))
}

func TestRAPLCollector(t *testing.T) {
	c := NewRAPLCollector()
	c.Observe(device.PowerSample{
		Timestamp: time.Now(),
		Data: []device.DomainPower{
			{Domain: "core0", Watts: 80},
			{Domain: "pkg0", Watts: 150},
		},
	})

	assert.Equal(t, 2, testutil.CollectAndCount(c))
	assert.Equal(t, 150.0, testutil.ToFloat64(c.watts.WithLabelValues("pkg0")))
	assert.Equal(t, 80.0, testutil.ToFloat64(c.watts.WithLabelValues("core0")))
}

func TestTestRunCollector(t *testing.T) {
	c := NewTestRunCollector()
	start := time.Unix(1_700_000_000, 0)
	res := coordinator.Result{Run: suite.TestRun{
		Test: suite.Test{
			Order:     suite.LevelToLevel,
			Operation: suite.Deactivate,
			Step:      suite.Step,
			CapFrom:   580,
			CapTo:     200,
		},
		Start:      start,
		CapApplied: start.Add(30 * time.Second),
		End:        start.Add(112 * time.Second),
	}}

	require.NoError(t, c.Record(res))
	require.NoError(t, c.Record(res))
	assert.NoError(t, c.Flush())
	assert.Equal(t, "prometheus", c.Name())

	assert.Equal(t, 2.0, testutil.ToFloat64(c.runs.WithLabelValues("LevelToLevel", "Deactivate", "Step")))
	assert.Equal(t, float64(start.Unix()+112), testutil.ToFloat64(c.lastEnd))

	m := &dto.Metric{}
	require.NoError(t, c.duration.Write(m))
	assert.Equal(t, uint64(2), m.GetHistogram().GetSampleCount())
	assert.Equal(t, 224.0, m.GetHistogram().GetSampleSum())
}

// mockProcFS is a mock implementation of the procFS interface for testing.
type mockProcFS struct {
	cpus []procfs.CPUInfo
	err  error
}

func (m *mockProcFS) CPUInfo() ([]procfs.CPUInfo, error) {
	return m.cpus, m.err
}

func TestCPUInfoCollector(t *testing.T) {
	fs := &mockProcFS{cpus: []procfs.CPUInfo{
		{Processor: 0, ModelName: "Intel(R) Xeon(R) Gold 6338", PhysicalID: "0", CoreID: "0"},
		{Processor: 1, ModelName: "Intel(R) Xeon(R) Gold 6338", PhysicalID: "1", CoreID: "0"},
	}}
	c := newCPUInfoCollectorWithFS(fs, discard())
	assert.Contains(t, c.desc.String(), "capbench_node_cpu_info")

	ch := make(chan prom.Metric, 10)
	c.Collect(ch)
	close(ch)

	var physical []string
	for m := range ch {
		dtoMetric := &dto.Metric{}
		require.NoError(t, m.Write(dtoMetric))
		assert.Equal(t, 1.0, dtoMetric.GetGauge().GetValue())
		for _, l := range dtoMetric.GetLabel() {
			if l.GetName() == "physical_id" {
				physical = append(physical, l.GetValue())
			}
		}
	}
	assert.Equal(t, []string{"0", "1"}, physical)
}

func TestCPUInfoCollectorError(t *testing.T) {
	c := newCPUInfoCollectorWithFS(&mockProcFS{err: errors.New("failed to read CPU info")}, discard())

	ch := make(chan prom.Metric, 10)
	c.Collect(ch)
	close(ch)
	assert.Empty(t, ch)
}
