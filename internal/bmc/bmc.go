// SPDX-FileCopyrightText: 2025 The capbench Authors
// SPDX-License-Identifier: Apache-2.0

// Package bmc reads and controls the DCMI power capping of a baseboard
// management controller.
package bmc

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrParse is returned when BMC output cannot be interpreted
	ErrParse = errors.New("bmc parse error")
	// ErrCommand is returned when a BMC command cannot be run or reports a failure
	ErrCommand = errors.New("bmc command failed")
)

// PowerReading is the output of a DCMI power reading; all values in watts
type PowerReading struct {
	Instantaneous uint64
	Minimum       uint64
	Maximum       uint64
	Average       uint64
	// Timestamp is the BMC local time of the reading
	Timestamp time.Time
}

// CapSetting is the power limit configured on the BMC and whether it is enforced
type CapSetting struct {
	IsActive   bool
	PowerLimit uint64 // watts
}

// Reader reads power and cap state
type Reader interface {
	Power(ctx context.Context) (PowerReading, error)
	CapSettings(ctx context.Context) (CapSetting, error)
}

// Controller changes the power cap in addition to reading it
type Controller interface {
	Reader
	SetCapLevel(ctx context.Context, watts uint64) error
	Activate(ctx context.Context) error
	Deactivate(ctx context.Context) error
}
