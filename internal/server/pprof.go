// SPDX-FileCopyrightText: 2025 The capbench Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"net/http"
	"net/http/pprof"

	"github.com/capbench/capbench/internal/service"
)

type pp struct {
	api APIService
}

var _ service.Initializer = (*pp)(nil)

// NewPprof exposes the runtime profiles on api; useful when the energy
// monitor falls behind its polling rate
func NewPprof(api APIService) *pp {
	return &pp{api: api}
}

func (p *pp) Name() string {
	return "pprof"
}

func (p *pp) Init() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	return p.api.Register("/debug/pprof/", "pprof", "Profiling data", mux)
}
