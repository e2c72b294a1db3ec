// SPDX-FileCopyrightText: 2025 The capbench Authors
// SPDX-License-Identifier: Apache-2.0

// Package firestarter launches the FIRESTARTER processor stress test as the
// synthetic load of a capping test.
package firestarter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
)

var (
	// ErrInvalidParams is returned for a load that cannot be generated
	ErrInvalidParams = errors.New("invalid load parameters")
	// ErrLaunch is returned when the load generator fails to start or exits with an error
	ErrLaunch = errors.New("load generator failed")
)

// Params describe one load run
type Params struct {
	RuntimeSecs uint64
	LoadPct     uint64
	// LoadPeriodUs of 0 keeps the generator default
	LoadPeriodUs uint64
	// NThreads of 0 uses every online CPU
	NThreads uint64
}

// Validate checks the params are accepted by the load generator
func (p Params) Validate() error {
	var errs []error
	if p.RuntimeSecs == 0 {
		errs = append(errs, fmt.Errorf("%w: runtime must be at least 1s", ErrInvalidParams))
	}
	if p.LoadPct < 1 || p.LoadPct > 100 {
		errs = append(errs, fmt.Errorf("%w: load %d%% must be within 1..100", ErrInvalidParams, p.LoadPct))
	}
	if p.LoadPeriodUs != 0 && p.LoadPct > p.LoadPeriodUs {
		errs = append(errs, fmt.Errorf("%w: period %dus shorter than load %d", ErrInvalidParams, p.LoadPeriodUs, p.LoadPct))
	}
	return errors.Join(errs...)
}

// Args returns the command line arguments of the generator
func (p Params) Args() []string {
	return []string{
		"--quiet",
		"--timeout", strconv.FormatUint(p.RuntimeSecs, 10),
		"--load", strconv.FormatUint(p.LoadPct, 10),
		"--period", strconv.FormatUint(p.LoadPeriodUs, 10),
		"--threads", strconv.FormatUint(p.NThreads, 10),
	}
}

// Launcher runs the generator binary
type Launcher struct {
	logger *slog.Logger
	path   string
}

// NewLauncher returns a Launcher for the binary at path
func NewLauncher(path string, logger *slog.Logger) *Launcher {
	return &Launcher{
		logger: logger.With("service", "firestarter"),
		path:   path,
	}
}

// Run starts the generator and blocks until it exits. Cancelling ctx kills it.
func (l *Launcher) Run(ctx context.Context, p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}

	args := p.Args()
	l.logger.Info("launching", "cmd", l.path+" "+strings.Join(args, " "))

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, l.path, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %w: %s", ErrLaunch, err, strings.TrimSpace(stderr.String()))
	}

	l.logger.Debug("exited", "cmd", l.path)
	return nil
}
