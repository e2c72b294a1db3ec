// SPDX-FileCopyrightText: 2025 The capbench Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"sync"
)

// journal records lifecycle calls across services in order
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(e string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, e)
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

type plain struct{ name string }

func (p *plain) Name() string { return p.name }

// fake implements every lifecycle interface
type fake struct {
	plain
	j          *journal
	initErr    error
	runFn      func(ctx context.Context) error
	shutdownFn func() error
}

func (f *fake) Init() error {
	f.j.add("init " + f.name)
	return f.initErr
}

func (f *fake) Run(ctx context.Context) error {
	f.j.add("run " + f.name)
	if f.runFn != nil {
		return f.runFn(ctx)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (f *fake) Shutdown() error {
	f.j.add("shutdown " + f.name)
	if f.shutdownFn != nil {
		return f.shutdownFn()
	}
	return nil
}
