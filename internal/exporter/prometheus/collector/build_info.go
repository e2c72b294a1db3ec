// SPDX-FileCopyrightText: 2025 The capbench Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/capbench/capbench/internal/version"
)

const buildSubsystem = "build"

type BuildInfoCollector struct {
	buildInfo *prom.GaugeVec
}

// NewBuildInfoCollector creates a new collector for build information
func NewBuildInfoCollector() *BuildInfoCollector {
	buildInfo := prom.NewGaugeVec(
		prom.GaugeOpts{
			Namespace: namespace,
			Subsystem: buildSubsystem,
			Name:      "info",
			Help:      "A metric with a constant '1' value labeled with version information",
		},
		[]string{"arch", "revision", "version", "goversion"},
	)

	return &BuildInfoCollector{
		buildInfo: buildInfo,
	}
}

func (c *BuildInfoCollector) Describe(ch chan<- *prom.Desc) {
	c.buildInfo.Describe(ch)
}

func (c *BuildInfoCollector) Collect(ch chan<- prom.Metric) {
	info := version.Info()

	c.buildInfo.WithLabelValues(
		info.GoArch,
		info.GitCommit,
		info.Version,
		info.GoVersion,
	).Set(1)

	c.buildInfo.Collect(ch)
}
