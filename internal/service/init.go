// SPDX-FileCopyrightText: 2025 The capbench Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"fmt"
	"log/slog"
	"os"
)

// Init initializes services in the given order. When one fails, the
// services already initialized are shut down in reverse order and the
// failure is returned.
func Init(logger *slog.Logger, services []Service) error {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	done := make([]Service, 0, len(services))
	for _, s := range services {
		i, ok := s.(Initializer)
		if !ok {
			continue
		}

		logger.Info("initializing", "service", s.Name())
		if err := i.Init(); err != nil {
			shutdownAll(logger, done)
			return fmt.Errorf("failed to initialize %s: %w", s.Name(), err)
		}
		done = append(done, s)
	}
	return nil
}

func shutdownAll(logger *slog.Logger, services []Service) {
	for i := len(services) - 1; i >= 0; i-- {
		s, ok := services[i].(Shutdowner)
		if !ok {
			continue
		}
		if err := s.Shutdown(); err != nil {
			logger.Error("shutdown failed", "service", s.Name(), "error", err)
		}
	}
}
