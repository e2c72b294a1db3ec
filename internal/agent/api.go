// SPDX-FileCopyrightText: 2025 The capbench Authors
// SPDX-License-Identifier: Apache-2.0

// Package agent implements both ends of the API between the controller and
// the agent running on the system under test.
package agent

import (
	"errors"
	"slices"

	"github.com/capbench/capbench/internal/device"
	"github.com/capbench/capbench/internal/firestarter"
)

const (
	RunTestPath    = "/api/run_test"
	SystemInfoPath = "/api/system_info"
)

// ErrProtocol is returned when the agent cannot be reached or answers with
// something other than a well formed success response
var ErrProtocol = errors.New("agent protocol error")

// RunTestRequest asks the agent to run the load generator while sampling
// its energy counters
type RunTestRequest struct {
	RuntimeSecs  uint64 `json:"runtime_secs"`
	LoadPct      uint64 `json:"load_pct"`
	LoadPeriodUs uint64 `json:"load_period_us"`
	NThreads     uint64 `json:"n_threads"`
}

func (r RunTestRequest) params() firestarter.Params {
	return firestarter.Params{
		RuntimeSecs:  r.RuntimeSecs,
		LoadPct:      r.LoadPct,
		LoadPeriodUs: r.LoadPeriodUs,
		NThreads:     r.NThreads,
	}
}

// Validate rejects requests the load generator would not accept
func (r RunTestRequest) Validate() error {
	return r.params().Validate()
}

// ServerInfo describes the system under test
type ServerInfo struct {
	Hostname   string `json:"hostname"`
	CPUModel   string `json:"cpu_model"`
	OnlineCPUs int    `json:"online_cpus"`
	Sockets    int    `json:"sockets"`
}

// errorResponse is the body of every non 2xx answer
type errorResponse struct {
	Error string `json:"error"`
}

// consistentDomains reports whether every sample carries the domains of the
// first one, in the same order
func consistentDomains(samples []device.PowerSample) bool {
	if len(samples) == 0 {
		return true
	}
	want := samples[0].Domains()
	for _, s := range samples[1:] {
		if !slices.Equal(want, s.Domains()) {
			return false
		}
	}
	return true
}
