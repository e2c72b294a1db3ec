// SPDX-FileCopyrightText: 2025 The capbench Authors
// SPDX-License-Identifier: Apache-2.0

package suite

import (
	"fmt"
	"time"
)

// CappingOrder is the sequence in which the cap level and its activation change
type CappingOrder int

const (
	// LevelBeforeActivate sets the target level while the cap is in its
	// starting state, then toggles activation
	LevelBeforeActivate CappingOrder = iota
	// LevelAfterActivate toggles activation at the starting level, then
	// moves the level to the target
	LevelAfterActivate
	// LevelToLevel moves an active cap from one level to another
	LevelToLevel
	// LevelToLevelActivate moves the level then activates the cap again
	LevelToLevelActivate
)

var cappingOrders = []CappingOrder{LevelBeforeActivate, LevelAfterActivate, LevelToLevel, LevelToLevelActivate}

func (o CappingOrder) String() string {
	switch o {
	case LevelBeforeActivate:
		return "LevelBeforeActivate"
	case LevelAfterActivate:
		return "LevelAfterActivate"
	case LevelToLevel:
		return "LevelToLevel"
	case LevelToLevelActivate:
		return "LevelToLevelActivate"
	default:
		return fmt.Sprintf("CappingOrder(%d)", int(o))
	}
}

func (o CappingOrder) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Operation is the change applied to the cap activation
type Operation int

const (
	Activate Operation = iota
	Deactivate
)

var operations = []Operation{Activate, Deactivate}

func (op Operation) String() string {
	switch op {
	case Activate:
		return "Activate"
	case Deactivate:
		return "Deactivate"
	default:
		return fmt.Sprintf("Operation(%d)", int(op))
	}
}

func (op Operation) MarshalText() ([]byte, error) {
	return []byte(op.String()), nil
}

// CapStep is how the level moves to its target
type CapStep int

const (
	// OneShot sets the target level in a single write
	OneShot CapStep = iota
	// Step ramps towards the target in fixed increments
	Step
)

var capSteps = []CapStep{OneShot, Step}

func (s CapStep) String() string {
	switch s {
	case OneShot:
		return "OneShot"
	case Step:
		return "Step"
	default:
		return fmt.Sprintf("CapStep(%d)", int(s))
	}
}

func (s CapStep) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Test is one capping experiment
type Test struct {
	Order     CappingOrder `json:"capping_order"`
	Operation Operation    `json:"operation"`
	Step      CapStep      `json:"cap_step"`
	CapFrom   uint64       `json:"cap_from"` // watts
	CapTo     uint64       `json:"cap_to"`   // watts
	LoadPct   uint64       `json:"load_pct"`
	// LoadPeriodUs of 0 lets the load generator pick its period
	LoadPeriodUs uint64 `json:"load_period_us"`
	// NThreads of 0 loads every online CPU
	NThreads uint64 `json:"n_threads"`
}

func (t Test) String() string {
	return fmt.Sprintf("%s/%s/%s %d->%dW load=%d%% period=%dus threads=%d",
		t.Order, t.Operation, t.Step, t.CapFrom, t.CapTo, t.LoadPct, t.LoadPeriodUs, t.NThreads)
}

// TestRun is an executed Test with the times its phases started
type TestRun struct {
	Test
	Start      time.Time `json:"start"`
	CapApplied time.Time `json:"cap_applied"`
	End        time.Time `json:"end"`
}
