// SPDX-FileCopyrightText: 2025 The capbench Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
)

// ErrInterrupted is returned by the SignalHandler when a signal arrives.
// An interrupted suite has discarded the data of its in-flight test.
var ErrInterrupted = errors.New("interrupted")

type SignalHandler struct {
	logger  *slog.Logger
	signals []os.Signal
}

func NewSignalHandler(logger *slog.Logger, signals ...os.Signal) *SignalHandler {
	return &SignalHandler{
		logger:  logger.With("service", "signal-handler"),
		signals: signals,
	}
}

func (sh *SignalHandler) Name() string {
	return "signal-handler"
}

func (sh *SignalHandler) Run(ctx context.Context) error {
	c := make(chan os.Signal, 1)
	signal.Notify(c, sh.signals...)
	defer signal.Stop(c)

	select {
	case sig := <-c:
		sh.logger.Warn("received signal, stopping", "signal", sig.String())
		return fmt.Errorf("%w: %s", ErrInterrupted, sig)
	case <-ctx.Done():
		return ctx.Err()
	}
}
