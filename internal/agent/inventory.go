// SPDX-FileCopyrightText: 2025 The capbench Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"fmt"
	"os"

	"github.com/prometheus/procfs"
)

// Inventory reports what the thread suite needs to know about the host
type Inventory interface {
	ServerInfo() (ServerInfo, error)
}

// procFS is the part of procfs.FS the inventory reads
type procFS interface {
	CPUInfo() ([]procfs.CPUInfo, error)
}

type hostInventory struct {
	fs       procFS
	hostname func() (string, error)
}

var _ Inventory = (*hostInventory)(nil)

// NewInventory reads the CPU inventory from the procfs mounted at procPath
func NewInventory(procPath string) (*hostInventory, error) {
	fs, err := procfs.NewFS(procPath)
	if err != nil {
		return nil, fmt.Errorf("creating procfs failed: %w", err)
	}
	return &hostInventory{fs: fs, hostname: os.Hostname}, nil
}

func (h *hostInventory) ServerInfo() (ServerInfo, error) {
	hostname, err := h.hostname()
	if err != nil {
		return ServerInfo{}, fmt.Errorf("failed to get hostname: %w", err)
	}

	cpus, err := h.fs.CPUInfo()
	if err != nil {
		return ServerInfo{}, fmt.Errorf("failed to read cpuinfo: %w", err)
	}
	if len(cpus) == 0 {
		return ServerInfo{}, fmt.Errorf("cpuinfo lists no processor")
	}

	sockets := map[string]struct{}{}
	for _, c := range cpus {
		sockets[c.PhysicalID] = struct{}{}
	}

	return ServerInfo{
		Hostname:   hostname,
		CPUModel:   cpus[0].ModelName,
		OnlineCPUs: len(cpus),
		Sockets:    len(sockets),
	}, nil
}
