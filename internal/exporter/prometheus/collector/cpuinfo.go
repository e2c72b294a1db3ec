// SPDX-FileCopyrightText: 2025 The capbench Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"fmt"
	"log/slog"
	"sync"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/procfs"
)

// procFS is an interface for CPUInfo.
type procFS interface {
	CPUInfo() ([]procfs.CPUInfo, error)
}

// cpuInfoCollector exposes the processors of the system under test
type cpuInfoCollector struct {
	sync.Mutex

	logger *slog.Logger
	fs     procFS
	desc   *prom.Desc
}

// NewCPUInfoCollector creates a CPUInfoCollector using a procfs mount path.
func NewCPUInfoCollector(procPath string, logger *slog.Logger) (*cpuInfoCollector, error) {
	fs, err := procfs.NewFS(procPath)
	if err != nil {
		return nil, fmt.Errorf("creating procfs failed: %w", err)
	}
	return newCPUInfoCollectorWithFS(fs, logger), nil
}

func newCPUInfoCollectorWithFS(fs procFS, logger *slog.Logger) *cpuInfoCollector {
	return &cpuInfoCollector{
		logger: logger.With("collector", "cpu_info"),
		fs:     fs,
		desc: prom.NewDesc(
			prom.BuildFQName(namespace, "node", "cpu_info"),
			"CPU information from procfs",
			[]string{"processor", "model_name", "physical_id", "core_id"},
			nil,
		),
	}
}

func (c *cpuInfoCollector) Describe(ch chan<- *prom.Desc) {
	ch <- c.desc
}

func (c *cpuInfoCollector) Collect(ch chan<- prom.Metric) {
	c.Lock()
	defer c.Unlock()

	cpus, err := c.fs.CPUInfo()
	if err != nil {
		c.logger.Warn("failed to read cpuinfo", "error", err)
		return
	}
	for _, ci := range cpus {
		ch <- prom.MustNewConstMetric(
			c.desc,
			prom.GaugeValue,
			1,
			fmt.Sprintf("%d", ci.Processor),
			ci.ModelName,
			ci.PhysicalID,
			ci.CoreID,
		)
	}
}
