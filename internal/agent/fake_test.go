// SPDX-FileCopyrightText: 2025 The capbench Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/prometheus/procfs"

	"github.com/capbench/capbench/internal/firestarter"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeLoad records its params and blocks until released when gate is set
type fakeLoad struct {
	mu     sync.Mutex
	params []firestarter.Params

	started chan struct{}
	gate    chan struct{}
	err     error
}

func (f *fakeLoad) Run(ctx context.Context, p firestarter.Params) error {
	f.mu.Lock()
	f.params = append(f.params, p)
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.err
}

func (f *fakeLoad) calls() []firestarter.Params {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]firestarter.Params(nil), f.params...)
}

type fakeProcFS struct {
	cpus []procfs.CPUInfo
	err  error
}

func (f fakeProcFS) CPUInfo() ([]procfs.CPUInfo, error) {
	return f.cpus, f.err
}

type fakeInventory struct {
	info ServerInfo
	err  error
}

func (f fakeInventory) ServerInfo() (ServerInfo, error) {
	return f.info, f.err
}
