// SPDX-FileCopyrightText: 2025 The capbench Authors
// SPDX-License-Identifier: Apache-2.0

package coordinator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capbench/capbench/internal/agent"
	"github.com/capbench/capbench/internal/bmc"
	"github.com/capbench/capbench/internal/monitor"
	"github.com/capbench/capbench/internal/suite"
)

func newTestCoordinator(b *recordingBMC, a *fakeAgent, opts ...OptionFn) *Coordinator {
	c := New(b, a, append([]OptionFn{
		WithLogger(discard()),
		WithSettle(time.Millisecond),
		WithTiming(20*time.Millisecond, time.Second),
		WithStep(100, time.Millisecond),
		WithMonitorOptions(
			monitor.WithInterval(5*time.Millisecond),
			monitor.WithInterCommandDelay(0),
		),
	}, opts...)...)
	b.state = c.State
	return c
}

func TestLevelBeforeActivateOrdering(t *testing.T) {
	b := &recordingBMC{}
	a := &fakeAgent{delay: 40 * time.Millisecond}
	c := newTestCoordinator(b, a)

	test := suite.Test{
		Order:     suite.LevelBeforeActivate,
		Operation: suite.Activate,
		Step:      suite.OneShot,
		CapFrom:   200,
		CapTo:     580,
		LoadPct:   100,
	}
	res, err := c.RunTest(context.Background(), test)
	require.NoError(t, err)

	assert.Equal(t, []write{
		{"level 580", SettingPreconditions},
		{"deactivate", SettingPreconditions},
		{"activate", Capping},
	}, b.log())
	assert.Equal(t, Done, c.State())

	assert.Equal(t, test, res.Run.Test)
	assert.False(t, res.Run.CapApplied.Before(res.Run.Start))
	assert.False(t, res.Run.End.Before(res.Run.CapApplied))
	assert.Len(t, res.Energy, 2)
	require.NotEmpty(t, res.BMC)
	assert.Equal(t, uint64(450), res.BMC[0].Power)
	assert.Equal(t, uint64(580), res.BMC[0].CapLevel)

	require.Len(t, a.reqs(), 1)
	assert.Equal(t, agent.RunTestRequest{RuntimeSecs: 2, LoadPct: 100}, a.reqs()[0])
}

func TestCappingOrders(t *testing.T) {
	tt := []struct {
		name string
		test suite.Test
		want []string
	}{{
		name: "level before deactivate",
		test: suite.Test{Order: suite.LevelBeforeActivate, Operation: suite.Deactivate, CapFrom: 580, CapTo: 200},
		want: []string{"level 200", "activate", "deactivate"},
	}, {
		name: "level after activate one shot",
		test: suite.Test{Order: suite.LevelAfterActivate, Operation: suite.Activate, Step: suite.OneShot, CapFrom: 580, CapTo: 200},
		want: []string{"level 580", "activate", "level 200"},
	}, {
		name: "level after deactivate stepped",
		test: suite.Test{Order: suite.LevelAfterActivate, Operation: suite.Deactivate, Step: suite.Step, CapFrom: 580, CapTo: 200},
		want: []string{"level 580", "deactivate", "level 480", "level 380", "level 280", "level 200"},
	}, {
		name: "level to level",
		test: suite.Test{Order: suite.LevelToLevel, Operation: suite.Deactivate, CapFrom: 200, CapTo: 580},
		want: []string{"level 200", "activate", "level 580"},
	}, {
		name: "level to level then activate",
		test: suite.Test{Order: suite.LevelToLevelActivate, Operation: suite.Activate, CapFrom: 200, CapTo: 580},
		want: []string{"level 200", "activate", "level 580", "activate"},
	}}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			tc.test.LoadPct = 95
			b := &recordingBMC{}
			c := newTestCoordinator(b, &fakeAgent{delay: 30 * time.Millisecond})

			_, err := c.RunTest(context.Background(), tc.test)
			require.NoError(t, err)
			assert.Equal(t, tc.want, b.cmds())
		})
	}
}

func TestRunTestRejectsNeutralTest(t *testing.T) {
	b := &recordingBMC{}
	a := &fakeAgent{}
	c := newTestCoordinator(b, a)

	_, err := c.RunTest(context.Background(), suite.Test{CapFrom: 200, CapTo: 200, LoadPct: 100})
	assert.ErrorIs(t, err, ErrInvalidTest)
	assert.Empty(t, b.cmds())
	assert.Empty(t, a.reqs())
}

func TestRunTestPreconditionFailure(t *testing.T) {
	b := &recordingBMC{failWrite: "deactivate"}
	a := &fakeAgent{}
	c := newTestCoordinator(b, a)

	_, err := c.RunTest(context.Background(), suite.Test{
		Order: suite.LevelBeforeActivate, Operation: suite.Activate, CapFrom: 200, CapTo: 580, LoadPct: 100,
	})
	require.ErrorIs(t, err, bmc.ErrCommand)
	assert.Contains(t, err.Error(), "failed to set preconditions")
	assert.Empty(t, a.reqs(), "no load without preconditions")
	assert.Equal(t, Idle, c.State())
}

func TestRunTestLoadFailure(t *testing.T) {
	b := &recordingBMC{}
	boom := errors.New("agent unreachable")
	c := newTestCoordinator(b, &fakeAgent{err: boom, delay: time.Millisecond})

	res, err := c.RunTest(context.Background(), suite.Test{
		Order: suite.LevelToLevel, CapFrom: 200, CapTo: 580, LoadPct: 100,
	})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, res.BMC)
	assert.Empty(t, res.Energy)
	assert.Equal(t, Idle, c.State())
}

func TestRunTestBMCMonitorFailure(t *testing.T) {
	b := &recordingBMC{readErr: bmc.ErrParse}
	c := newTestCoordinator(b, &fakeAgent{delay: time.Second})

	start := time.Now()
	_, err := c.RunTest(context.Background(), suite.Test{
		Order: suite.LevelToLevel, CapFrom: 200, CapTo: 580, LoadPct: 100,
	})
	assert.ErrorIs(t, err, bmc.ErrParse)
	assert.Less(t, time.Since(start), time.Second, "a failing monitor must cancel the load")
}

func TestRunTestMonitorReader(t *testing.T) {
	writes := &recordingBMC{}
	reads := &recordingBMC{level: 333, active: true}
	c := newTestCoordinator(writes, &fakeAgent{delay: 30 * time.Millisecond}, WithMonitorReader(reads))

	res, err := c.RunTest(context.Background(), suite.Test{
		Order: suite.LevelToLevel, CapFrom: 200, CapTo: 580, LoadPct: 100,
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.BMC)
	assert.Equal(t, uint64(333), res.BMC[0].CapLevel)
	assert.Empty(t, reads.cmds())
}

func TestRunTestCancelled(t *testing.T) {
	b := &recordingBMC{}
	c := newTestCoordinator(b, &fakeAgent{delay: time.Minute}, WithTiming(time.Minute, time.Minute))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.RunTest(ctx, suite.Test{Order: suite.LevelToLevel, CapFrom: 200, CapTo: 580, LoadPct: 100})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRampLevels(t *testing.T) {
	assert.Equal(t, []uint64{480, 380, 280, 200}, rampLevels(580, 200, 100))
	assert.Equal(t, []uint64{300, 400, 500, 580}, rampLevels(200, 580, 100))
	assert.Equal(t, []uint64{250}, rampLevels(200, 250, 100))
	assert.Equal(t, []uint64{300}, rampLevels(200, 300, 100))
	assert.Equal(t, []uint64{580}, rampLevels(200, 580, 0))
}

func TestRampBudget(t *testing.T) {
	// 480 380 280 200: three pauses
	assert.Equal(t, 15*time.Second, rampBudget(580, 200, 100, 5*time.Second))
	assert.Equal(t, 15*time.Second, rampBudget(200, 580, 100, 5*time.Second))
	assert.Equal(t, 5*time.Second, rampBudget(580, 200, 100, 1500*time.Millisecond))
	// a single write needs no pause
	assert.Equal(t, time.Duration(0), rampBudget(200, 300, 100, 5*time.Second))
	assert.Equal(t, time.Duration(0), rampBudget(580, 200, 0, time.Second))
	// every pause applyCap takes fits in the budget
	for _, tc := range [][2]uint64{{580, 200}, {200, 580}, {200, 250}, {200, 900}} {
		pauses := len(rampLevels(tc[0], tc[1], 100)) - 1
		assert.GreaterOrEqual(t, rampBudget(tc[0], tc[1], 100, time.Second), time.Duration(pauses)*time.Second)
	}
}

func TestRuntime(t *testing.T) {
	c := New(&recordingBMC{}, &fakeAgent{}, WithTiming(30*time.Second, 60*time.Second), WithStep(100, 5*time.Second))

	oneShot := suite.Test{Step: suite.OneShot, CapFrom: 580, CapTo: 200}
	stepped := suite.Test{Step: suite.Step, CapFrom: 580, CapTo: 200}
	assert.Equal(t, 90*time.Second, c.Runtime(oneShot))
	assert.Equal(t, 105*time.Second, c.Runtime(stepped))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "SettingPreconditions", SettingPreconditions.String())
	assert.Equal(t, "AwaitingLoadCompletion", AwaitingLoadCompletion.String())
	assert.Equal(t, "State(42)", State(42).String())
}
