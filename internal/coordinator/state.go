// SPDX-FileCopyrightText: 2025 The capbench Authors
// SPDX-License-Identifier: Apache-2.0

package coordinator

import "fmt"

// State is the phase of the test run in progress
type State int

const (
	Idle State = iota
	SettingPreconditions
	Warmup
	Capping
	AwaitingLoadCompletion
	Collecting
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case SettingPreconditions:
		return "SettingPreconditions"
	case Warmup:
		return "Warmup"
	case Capping:
		return "Capping"
	case AwaitingLoadCompletion:
		return "AwaitingLoadCompletion"
	case Collecting:
		return "Collecting"
	case Done:
		return "Done"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}
