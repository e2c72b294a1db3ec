// SPDX-FileCopyrightText: 2025 The capbench Authors
// SPDX-License-Identifier: Apache-2.0

// Package service wires the long running parts of the controller and the
// agent into a single lifecycle: initialise in order, run together, stop
// together once any of them returns.
package service

import "context"

// Service is a named component of a binary
type Service interface {
	Name() string
}

// Initializer is a service that must be prepared before anything runs,
// eg: discovering RAPL zones or connecting to the BMC
type Initializer interface {
	Service
	Init() error
}

// Runner is a service that blocks in Run until it is done or ctx is cancelled.
// A Runner returning, with or without an error, stops every other Runner.
type Runner interface {
	Service
	Run(ctx context.Context) error
}

// Shutdowner releases whatever Init acquired
type Shutdowner interface {
	Service
	Shutdown() error
}
