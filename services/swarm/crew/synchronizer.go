// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package crew manages the roster and gates turf conflict around the
// external tick clock.
package crew

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/AleutianAI/AleutianSwarm/services/swarm/datatypes"
	"github.com/AleutianAI/AleutianSwarm/services/swarm/observability"
	"github.com/AleutianAI/AleutianSwarm/services/swarm/world"
)

// =============================================================================
// Conflict States
// =============================================================================

// ConflictState is the synchronizer's position in the conflict gate.
type ConflictState int

const (
	// Peacetime: conflict entry conditions not met.
	Peacetime ConflictState = iota

	// Armed: full roster and sufficient win chance; waiting for all
	// combat-capable members to hold the conflict task.
	Armed

	// InConflict: entered only from Armed once every combat-capable member
	// is assigned to the conflict task. Left at the next tick boundary.
	InConflict

	// Disabled: full territorial control is held; conflict is permanently
	// off. Terminal.
	Disabled
)

// String returns the snake_case name of the state.
func (s ConflictState) String() string {
	switch s {
	case Peacetime:
		return "peacetime"
	case Armed:
		return "armed"
	case InConflict:
		return "in_conflict"
	case Disabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// =============================================================================
// Synchronizer
// =============================================================================

// SyncConfig tunes the conflict gate.
type SyncConfig struct {
	// RosterTarget is the roster size required before arming.
	RosterTarget int

	// WinChanceThreshold is the minimum estimated victory probability,
	// across every rival pool, required before arming.
	WinChanceThreshold float64

	// TickLength is the external tick period.
	TickLength time.Duration

	// SafetyMargin is subtracted from the tick length when computing the
	// next deadline, so forced assignment lands before the boundary.
	SafetyMargin time.Duration

	// CombatStatFloor is the combat aggregate at or above which a member
	// counts as combat-capable.
	CombatStatFloor float64
}

// Synchronizer tracks the external tick clock and gates the conflict mode
// around its boundaries.
//
// # Description
//
// The external environment resolves conflicts only at tick boundaries, and
// the boundary itself is invisible: the only signal is that some rival's
// observable power or territory changed between two reads. The
// synchronizer therefore diffs rival snapshots to detect boundaries, keeps
// a deadline slightly ahead of the predicted next boundary, and makes sure
// every combat-capable member holds the conflict task before the boundary
// lands — forcibly, if the deadline arrives first.
//
// # Thread Safety
//
// Update must run from a single goroutine. State is safe to read
// concurrently (the status API does).
type Synchronizer struct {
	crew    world.CrewOps
	cfg     SyncConfig
	metrics *observability.SchedulerMetrics

	state      atomic.Int32
	lastRivals map[string]datatypes.RivalInfo
	deadline   time.Time
}

// NewSynchronizer returns a Synchronizer starting in Peacetime.
// Metrics may be nil.
func NewSynchronizer(crew world.CrewOps, cfg SyncConfig, metrics *observability.SchedulerMetrics) *Synchronizer {
	return &Synchronizer{
		crew:    crew,
		cfg:     cfg,
		metrics: metrics,
	}
}

// State returns the current conflict state.
func (s *Synchronizer) State() ConflictState {
	return ConflictState(s.state.Load())
}

// Update runs one synchronization pass at the given time.
//
// # Description
//
// One pass: read territory (full control disables conflict permanently),
// diff the rival snapshot to detect a tick boundary, then advance the
// state machine. See the state constants for the transition rules.
//
// # Outputs
//
//   - error: environment failure; the caller retries next pass.
func (s *Synchronizer) Update(ctx context.Context, now time.Time) error {
	if s.State() == Disabled {
		return nil
	}

	territory, err := s.crew.Territory(ctx)
	if err != nil {
		return fmt.Errorf("territory: %w", err)
	}
	if territory >= 1.0 {
		s.setState(Disabled)
		return s.reassignCombatants(ctx, datatypes.TaskPatrol)
	}

	rivals, err := s.crew.RivalInfo(ctx)
	if err != nil {
		return fmt.Errorf("rival info: %w", err)
	}
	tickStarted := s.rivalsChanged(rivals)
	s.lastRivals = rivals

	switch s.State() {
	case Peacetime:
		armed, err := s.shouldArm(ctx, rivals)
		if err != nil {
			return err
		}
		if armed {
			s.setState(Armed)
			s.deadline = now.Add(s.cfg.TickLength - s.cfg.SafetyMargin)
		}

	case Armed:
		ready, err := s.combatantsCommitted(ctx)
		if err != nil {
			return err
		}
		switch {
		case ready:
			s.setState(InConflict)
		case now.After(s.deadline):
			// boundary is imminent; commit everyone rather than miss it
			if err := s.reassignAll(ctx, datatypes.TaskConflict); err != nil {
				return err
			}
			s.setState(InConflict)
		}

	case InConflict:
		if tickStarted {
			s.deadline = now.Add(s.cfg.TickLength - s.cfg.SafetyMargin)
			if err := s.reassignCombatants(ctx, datatypes.TaskPatrol); err != nil {
				return err
			}
			s.setState(Peacetime)
		}
	}
	return nil
}

// shouldArm evaluates the Peacetime→Armed conditions: full roster and the
// minimum win chance across all rivals at or above the threshold.
func (s *Synchronizer) shouldArm(ctx context.Context, rivals map[string]datatypes.RivalInfo) (bool, error) {
	roster, err := s.crew.Roster(ctx)
	if err != nil {
		return false, fmt.Errorf("roster: %w", err)
	}
	if len(roster) < s.cfg.RosterTarget {
		return false, nil
	}
	for name := range rivals {
		chance, err := s.crew.WinChance(ctx, name)
		if err != nil {
			return false, fmt.Errorf("win chance %q: %w", name, err)
		}
		if chance < s.cfg.WinChanceThreshold {
			return false, nil
		}
	}
	return true, nil
}

// combatantsCommitted reports whether every combat-capable member holds
// the conflict task.
func (s *Synchronizer) combatantsCommitted(ctx context.Context) (bool, error) {
	roster, err := s.crew.Roster(ctx)
	if err != nil {
		return false, fmt.Errorf("roster: %w", err)
	}
	any := false
	for _, name := range roster {
		m, err := s.crew.Member(ctx, name)
		if err != nil {
			return false, fmt.Errorf("member %q: %w", name, err)
		}
		if m.Stats.Combat() < s.cfg.CombatStatFloor {
			continue
		}
		any = true
		if m.Task != datatypes.TaskConflict {
			return false, nil
		}
	}
	return any, nil
}

// reassignCombatants moves every combat-capable member to the task.
func (s *Synchronizer) reassignCombatants(ctx context.Context, task datatypes.MemberTask) error {
	roster, err := s.crew.Roster(ctx)
	if err != nil {
		return fmt.Errorf("roster: %w", err)
	}
	for _, name := range roster {
		m, err := s.crew.Member(ctx, name)
		if err != nil {
			return fmt.Errorf("member %q: %w", name, err)
		}
		if m.Stats.Combat() < s.cfg.CombatStatFloor {
			continue
		}
		if err := s.crew.AssignTask(ctx, name, task); err != nil {
			return fmt.Errorf("assign %q: %w", name, err)
		}
	}
	return nil
}

// reassignAll moves every member to the task, capable or not.
func (s *Synchronizer) reassignAll(ctx context.Context, task datatypes.MemberTask) error {
	roster, err := s.crew.Roster(ctx)
	if err != nil {
		return fmt.Errorf("roster: %w", err)
	}
	for _, name := range roster {
		if err := s.crew.AssignTask(ctx, name, task); err != nil {
			return fmt.Errorf("assign %q: %w", name, err)
		}
	}
	return nil
}

// rivalsChanged diffs the new snapshot against the previous one. The first
// observation never counts as a boundary.
func (s *Synchronizer) rivalsChanged(rivals map[string]datatypes.RivalInfo) bool {
	if s.lastRivals == nil {
		return false
	}
	if len(rivals) != len(s.lastRivals) {
		return true
	}
	for name, info := range rivals {
		prev, ok := s.lastRivals[name]
		if !ok || prev != info {
			return true
		}
	}
	return false
}

// setState records a state transition.
func (s *Synchronizer) setState(next ConflictState) {
	current := s.State()
	if current == next {
		return
	}
	slog.Info("conflict state transition",
		"from", current.String(),
		"to", next.String(),
	)
	s.state.Store(int32(next))
	if s.metrics != nil {
		s.metrics.ConflictState.Set(float64(next))
	}
}
