// SPDX-FileCopyrightText: 2025 The capbench Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"log/slog"
	"os"

	"github.com/oklog/run"
)

// Run runs every Runner in its own actor of a run group. The first actor
// to return interrupts the rest; its error is returned. Services that also
// implement Shutdowner are shut down when interrupted.
func Run(outer context.Context, logger *slog.Logger, services []Service) error {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	ctx, cancel := context.WithCancel(outer)
	defer cancel()

	var g run.Group
	for _, s := range services {
		r, ok := s.(Runner)
		if !ok {
			logger.Debug("not a runner", "service", s.Name())
			continue
		}

		g.Add(
			func() error {
				logger.Info("running", "service", r.Name())
				return r.Run(ctx)
			},
			func(err error) {
				cancel()
				if err != nil {
					logger.Info("stopping", "service", r.Name(), "reason", err)
				}

				sd, ok := r.(Shutdowner)
				if !ok {
					return
				}
				if err := sd.Shutdown(); err != nil {
					logger.Warn("shutdown failed", "service", r.Name(), "error", err)
				}
			},
		)
	}

	return g.Run()
}
