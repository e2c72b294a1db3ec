// SPDX-FileCopyrightText: 2025 The capbench Authors
// SPDX-License-Identifier: Apache-2.0

// Package suite generates the tests of a capping experiment as the product
// of every capping order, operation, cap step, ordered pair of power levels
// and a load axis.
package suite

import (
	"iter"

	"github.com/samber/lo"
)

const (
	KindLoad   = "load"
	KindThread = "thread"
)

// threadSteps is the number of thread counts tried, from all CPUs down
const threadSteps = 11

// load is a point of the innermost axis
type load struct {
	pct      uint64
	periodUs uint64
	threads  uint64
}

// Suite is a finite, restartable sequence of tests
type Suite struct {
	kind   string
	levels []uint64
	loads  []load
}

// NewLoadSuite varies the load percentage and period on every online CPU
func NewLoadSuite(levels, loadPcts, periodsUs []uint64) *Suite {
	return &Suite{
		kind:   KindLoad,
		levels: levels,
		loads: lo.FlatMap(loadPcts, func(pct uint64, _ int) []load {
			return lo.Map(periodsUs, func(period uint64, _ int) load {
				return load{pct: pct, periodUs: period}
			})
		}),
	}
}

// NewThreadSuite varies the number of fully loaded threads from onlineCPUs
// down to onlineCPUs-10, skipping counts below 1
func NewThreadSuite(levels []uint64, onlineCPUs uint64) *Suite {
	return &Suite{
		kind:   KindThread,
		levels: levels,
		loads: lo.FilterMap(lo.Range(threadSteps), func(k int, _ int) (load, bool) {
			n := int64(onlineCPUs) - int64(k)
			return load{pct: 100, threads: uint64(n)}, n >= 1
		}),
	}
}

func (s *Suite) Kind() string {
	return s.kind
}

// Len returns the number of tests All yields
func (s *Suite) Len() int {
	n := len(s.levels)
	return len(cappingOrders) * len(operations) * len(capSteps) * n * (n - 1) * len(s.loads)
}

// All yields every test in a fixed order; it can be iterated any number of times
func (s *Suite) All() iter.Seq[Test] {
	return func(yield func(Test) bool) {
		for _, order := range cappingOrders {
			for _, op := range operations {
				for _, step := range capSteps {
					for i, from := range s.levels {
						for j, to := range s.levels {
							if i == j {
								continue
							}
							for _, l := range s.loads {
								t := Test{
									Order:        order,
									Operation:    op,
									Step:         step,
									CapFrom:      from,
									CapTo:        to,
									LoadPct:      l.pct,
									LoadPeriodUs: l.periodUs,
									NThreads:     l.threads,
								}
								if !yield(t) {
									return
								}
							}
						}
					}
				}
			}
		}
	}
}
