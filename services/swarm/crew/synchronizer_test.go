// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package crew

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianSwarm/services/swarm/datatypes"
)

var syncCfg = SyncConfig{
	RosterTarget:       3,
	WinChanceThreshold: 0.6,
	TickLength:         20 * time.Second,
	SafetyMargin:       2 * time.Second,
	CombatStatFloor:    30,
}

var t0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// readyCrew is a full roster of combat-capable members with strong win
// chances against both rivals.
func readyCrew() *fakeCrew {
	f := newFakeCrew()
	f.territory = 0.4
	f.addMember("ash", 50, datatypes.TaskEarn)
	f.addMember("bram", 40, datatypes.TaskEarn)
	f.addMember("cato", 35, datatypes.TaskEarn)
	f.addRival("red-claw", 120, 0.8)
	f.addRival("night-sect", 90, 0.85)
	return f
}

func TestPeacetimeToArmed(t *testing.T) {
	f := readyCrew()
	s := NewSynchronizer(f, syncCfg, nil)

	require.NoError(t, s.Update(context.Background(), t0))
	assert.Equal(t, Armed, s.State(),
		"full roster with 0.8 minimum win chance over a 0.6 threshold arms")
}

func TestStaysPeacetimeWhenWinChanceLow(t *testing.T) {
	f := readyCrew()
	f.winChances["night-sect"] = 0.5 // below threshold
	s := NewSynchronizer(f, syncCfg, nil)

	require.NoError(t, s.Update(context.Background(), t0))
	assert.Equal(t, Peacetime, s.State(),
		"the minimum across rivals gates arming, not the best")
}

func TestStaysPeacetimeWhenRosterShort(t *testing.T) {
	f := newFakeCrew()
	f.territory = 0.4
	f.addMember("ash", 50, datatypes.TaskEarn)
	f.addRival("red-claw", 120, 0.9)
	s := NewSynchronizer(f, syncCfg, nil)

	require.NoError(t, s.Update(context.Background(), t0))
	assert.Equal(t, Peacetime, s.State())
}

func TestArmedToInConflictWhenAllCombatantsCommit(t *testing.T) {
	f := readyCrew()
	s := NewSynchronizer(f, syncCfg, nil)
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, t0))
	require.Equal(t, Armed, s.State())

	// the manager moves everyone onto the conflict task
	for _, m := range f.members {
		m.Task = datatypes.TaskConflict
	}
	require.NoError(t, s.Update(ctx, t0.Add(time.Second)))
	assert.Equal(t, InConflict, s.State())
}

func TestArmedStallsWhileCombatantsUncommitted(t *testing.T) {
	f := readyCrew()
	s := NewSynchronizer(f, syncCfg, nil)
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, t0))
	require.Equal(t, Armed, s.State())

	// one member still on an earning task, deadline not reached
	f.members["ash"].Task = datatypes.TaskConflict
	f.members["bram"].Task = datatypes.TaskConflict
	require.NoError(t, s.Update(ctx, t0.Add(time.Second)))
	assert.Equal(t, Armed, s.State())
	assert.Empty(t, f.assigned, "no forced assignment before the deadline")
}

func TestDeadlineForcesConflictEntry(t *testing.T) {
	f := readyCrew()
	s := NewSynchronizer(f, syncCfg, nil)
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, t0))
	require.Equal(t, Armed, s.State())

	// deadline is t0 + 20s - 2s; update just past it
	require.NoError(t, s.Update(ctx, t0.Add(19*time.Second)))
	assert.Equal(t, InConflict, s.State())
	for name, m := range f.members {
		assert.Equal(t, datatypes.TaskConflict, m.Task,
			"member %s must be forced onto the conflict task", name)
	}
}

func TestTickBoundaryEndsTheConflict(t *testing.T) {
	f := readyCrew()
	s := NewSynchronizer(f, syncCfg, nil)
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, t0))
	for _, m := range f.members {
		m.Task = datatypes.TaskConflict
	}
	require.NoError(t, s.Update(ctx, t0.Add(time.Second)))
	require.Equal(t, InConflict, s.State())

	// no boundary yet: state holds
	require.NoError(t, s.Update(ctx, t0.Add(2*time.Second)))
	assert.Equal(t, InConflict, s.State())

	// rival power changed: the tick resolved
	f.bumpRival("red-claw")
	require.NoError(t, s.Update(ctx, t0.Add(3*time.Second)))
	assert.Equal(t, Peacetime, s.State())
	for name, m := range f.members {
		assert.Equal(t, datatypes.TaskPatrol, m.Task,
			"combatant %s returns to neutral duty after the tick", name)
	}
}

func TestFullTerritoryDisablesConflictPermanently(t *testing.T) {
	f := readyCrew()
	f.territory = 1.0
	s := NewSynchronizer(f, syncCfg, nil)
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, t0))
	assert.Equal(t, Disabled, s.State())

	// even a new tick and perfect conditions never re-enable conflict
	f.bumpRival("red-claw")
	f.territory = 0.4
	require.NoError(t, s.Update(ctx, t0.Add(time.Minute)))
	assert.Equal(t, Disabled, s.State(), "disabled is terminal")
}

func TestFirstRivalObservationIsNotABoundary(t *testing.T) {
	f := readyCrew()
	s := NewSynchronizer(f, syncCfg, nil)

	// force straight into conflict, then verify the very first rival
	// snapshot (taken in the same pass) did not count as a boundary
	require.NoError(t, s.Update(context.Background(), t0))
	assert.Equal(t, Armed, s.State())
}

func TestConflictStateString(t *testing.T) {
	assert.Equal(t, "peacetime", Peacetime.String())
	assert.Equal(t, "armed", Armed.String())
	assert.Equal(t, "in_conflict", InConflict.String())
	assert.Equal(t, "disabled", Disabled.String())
	assert.Equal(t, "unknown", ConflictState(9).String())
}
