// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianSwarm/services/swarm/datatypes"
	"github.com/AleutianAI/AleutianSwarm/services/swarm/world"
)

// instantSleeper makes waits free so tests run in microseconds.
type instantSleeper struct {
	slept []time.Duration
}

func (s *instantSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.slept = append(s.slept, d)
	return ctx.Err()
}

// fakeExec scripts launch outcomes and counts polls until completion.
type fakeExec struct {
	refuse     map[string]bool
	launchErr  error
	pollsLeft  map[world.Handle]int
	launches   []string
	nextHandle int
}

func newFakeExec() *fakeExec {
	return &fakeExec{
		refuse:    make(map[string]bool),
		pollsLeft: make(map[world.Handle]int),
	}
}

func (f *fakeExec) Launch(_ context.Context, unit datatypes.ExecutionUnit, host string, slots int, target string) (world.Handle, bool, error) {
	if f.launchErr != nil {
		return "", false, f.launchErr
	}
	if f.refuse[host] {
		return "", false, nil
	}
	f.nextHandle++
	h := world.Handle(host)
	f.launches = append(f.launches, host)
	// each batch reports running for one poll round, then finishes
	f.pollsLeft[h] = 1
	return h, true, nil
}

func (f *fakeExec) IsRunning(_ context.Context, h world.Handle) (bool, error) {
	if f.pollsLeft[h] > 0 {
		f.pollsLeft[h]--
		return true, nil
	}
	return false, nil
}

func alloc(entries ...datatypes.Slice) datatypes.Allocation {
	return datatypes.Allocation{Entries: entries}
}

var testUnit = datatypes.ExecutionUnit{
	Kind:     datatypes.ActionExtract,
	Cost:     1.7,
	Duration: 20 * time.Second,
}

func TestRunLaunchesAllEntriesBeforeWaiting(t *testing.T) {
	exec := newFakeExec()
	sleeper := &instantSleeper{}
	d := NewDispatcher(exec, 2*time.Second, nil)
	d.Sleeper = sleeper

	result, err := d.Run(context.Background(),
		alloc(
			datatypes.Slice{Host: "a", Slots: 10},
			datatypes.Slice{Host: "b", Slots: 2},
		), testUnit, "ledger-a")
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, exec.launches)
	assert.Equal(t, 2, result.Hosts)
	assert.Equal(t, 12, result.Slots)
	assert.NotEmpty(t, result.BatchID)
	// first wait is the unit's expected duration, before any polling
	require.NotEmpty(t, sleeper.slept)
	assert.Equal(t, testUnit.Duration, sleeper.slept[0])
}

func TestRunSkipsZeroSlotEntries(t *testing.T) {
	exec := newFakeExec()
	d := NewDispatcher(exec, time.Second, nil)
	d.Sleeper = &instantSleeper{}

	result, err := d.Run(context.Background(),
		alloc(
			datatypes.Slice{Host: "a", Slots: 0},
			datatypes.Slice{Host: "b", Slots: 3},
		), testUnit, "ledger-a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, exec.launches)
	assert.Equal(t, 3, result.Slots)
}

func TestRunRefusedLaunchIsARaceNotAnError(t *testing.T) {
	exec := newFakeExec()
	exec.refuse["a"] = true
	d := NewDispatcher(exec, time.Second, nil)
	d.Sleeper = &instantSleeper{}

	result, err := d.Run(context.Background(),
		alloc(
			datatypes.Slice{Host: "a", Slots: 5},
			datatypes.Slice{Host: "b", Slots: 5},
		), testUnit, "ledger-a")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Hosts)
	assert.Equal(t, 5, result.Slots)
}

func TestRunAllRefusedIsANoop(t *testing.T) {
	exec := newFakeExec()
	exec.refuse["a"] = true
	sleeper := &instantSleeper{}
	d := NewDispatcher(exec, time.Second, nil)
	d.Sleeper = sleeper

	result, err := d.Run(context.Background(),
		alloc(datatypes.Slice{Host: "a", Slots: 5}), testUnit, "ledger-a")
	require.NoError(t, err, "a fully refused allocation is a no-op, not a failure")
	assert.Equal(t, 0, result.Slots)
	assert.Empty(t, sleeper.slept, "no-op dispatches must not wait")
}

func TestRunLaunchErrorPropagates(t *testing.T) {
	exec := newFakeExec()
	exec.launchErr = errors.New("environment down")
	d := NewDispatcher(exec, time.Second, nil)
	d.Sleeper = &instantSleeper{}

	_, err := d.Run(context.Background(),
		alloc(datatypes.Slice{Host: "a", Slots: 1}), testUnit, "ledger-a")
	assert.ErrorContains(t, err, "environment down")
}

func TestRunPollsUntilAllComplete(t *testing.T) {
	exec := newFakeExec()
	sleeper := &instantSleeper{}
	d := NewDispatcher(exec, 3*time.Second, nil)
	d.Sleeper = sleeper

	_, err := d.Run(context.Background(),
		alloc(
			datatypes.Slice{Host: "a", Slots: 1},
			datatypes.Slice{Host: "b", Slots: 1},
		), testUnit, "ledger-a")
	require.NoError(t, err)

	// duration wait, then one coarse poll interval while batches ran one
	// extra round
	assert.Equal(t, []time.Duration{testUnit.Duration, 3 * time.Second}, sleeper.slept)
	for h, left := range exec.pollsLeft {
		assert.Zero(t, left, "handle %s still had polls left", h)
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	exec := newFakeExec()
	d := NewDispatcher(exec, time.Second, nil)
	d.Sleeper = &instantSleeper{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Run(ctx, alloc(datatypes.Slice{Host: "a", Slots: 1}), testUnit, "ledger-a")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTimerSleeperReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := TimerSleeper{}.Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTimerSleeperNonPositiveDuration(t *testing.T) {
	err := TimerSleeper{}.Sleep(context.Background(), 0)
	assert.NoError(t, err)
}
