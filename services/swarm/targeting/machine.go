// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package targeting decides which action to apply to a target next, and
// which target to address at all.
package targeting

import (
	"log/slog"

	"github.com/AleutianAI/AleutianSwarm/services/swarm/datatypes"
	"github.com/AleutianAI/AleutianSwarm/services/swarm/observability"
)

// =============================================================================
// Phases
// =============================================================================

// Phase is the target state machine's current position.
type Phase int

const (
	// PhasePrepReplenish is preparation with replenishment pending.
	PhasePrepReplenish Phase = iota

	// PhasePrepMitigate is preparation with mitigation pending.
	PhasePrepMitigate

	// PhasePrepDone means both preparation predicates held simultaneously
	// on the last observation; extraction is next.
	PhasePrepDone

	// PhaseExtracting is the extraction cycle. It always perturbs both
	// levels, so the machine loops back to preparation afterwards.
	PhaseExtracting
)

// String returns the snake_case name of the phase.
func (p Phase) String() string {
	switch p {
	case PhasePrepReplenish:
		return "prep_replenish"
	case PhasePrepMitigate:
		return "prep_mitigate"
	case PhasePrepDone:
		return "prep_done"
	case PhaseExtracting:
		return "extracting"
	default:
		return "unknown"
	}
}

// =============================================================================
// Decision
// =============================================================================

// Decision is what the machine wants dispatched this cycle.
type Decision struct {
	// Action is the unit kind to run.
	Action datatypes.ActionKind

	// Prep is true during preparation, where demand is not slot-bounded
	// and the assembler's "use everything" mode applies.
	Prep bool
}

// =============================================================================
// Machine
// =============================================================================

// Machine drives one target through prepare/extract cycles.
//
// # Description
//
// Preparation alternates whichever single predicate (not at max wealth /
// not at min penalty) is unsatisfied; when both are unsatisfied the
// target's archetype picks which runs first. Only when both predicates hold
// simultaneously does the machine pass through PhasePrepDone into
// PhaseExtracting — it never emits an extraction while either predicate is
// still unsatisfied. Extraction perturbs both levels, so the machine
// returns to preparation afterwards.
//
// # Thread Safety
//
// Not safe for concurrent use; the engine owns one Machine and calls it
// from its single loop goroutine.
type Machine struct {
	target  datatypes.Target
	phase   Phase
	metrics *observability.SchedulerMetrics
}

// NewMachine returns a Machine positioned at the archetype's initial
// preparation phase. Metrics may be nil.
func NewMachine(target datatypes.Target, metrics *observability.SchedulerMetrics) *Machine {
	m := &Machine{metrics: metrics}
	m.Reset(target)
	return m
}

// Target returns the target the machine currently drives.
func (m *Machine) Target() datatypes.Target {
	return m.target
}

// Phase returns the machine's current phase.
func (m *Machine) Phase() Phase {
	return m.phase
}

// Reset repoints the machine at a (possibly new) target and restarts
// preparation at the archetype's preferred opening action.
func (m *Machine) Reset(target datatypes.Target) {
	m.target = target
	switch target.Archetype {
	case datatypes.ArchetypeSecurityHigh:
		m.phase = PhasePrepMitigate
	default:
		m.phase = PhasePrepReplenish
	}
}

// Next observes a fresh target snapshot and returns the action to dispatch.
//
// # Inputs
//
//   - state: the target's current levels, read this loop iteration.
//
// # Outputs
//
//   - Decision: the action to run and whether preparation (unbounded
//     demand) applies.
func (m *Machine) Next(state datatypes.TargetState) Decision {
	if state.Prepared() {
		m.transition(PhasePrepDone)
		m.transition(PhaseExtracting)
		return Decision{Action: datatypes.ActionExtract}
	}

	// at least one predicate is unsatisfied: stay in (or return to) prep
	atMax := state.AtMaxWealth()
	atMin := state.AtMinPenalty()

	var next Phase
	switch {
	case !atMax && !atMin:
		// both unsatisfied: archetype picks the opener
		if m.target.Archetype == datatypes.ArchetypeSecurityHigh {
			next = PhasePrepMitigate
		} else {
			next = PhasePrepReplenish
		}
	case !atMax:
		next = PhasePrepReplenish
	default:
		next = PhasePrepMitigate
	}
	m.transition(next)

	if next == PhasePrepMitigate {
		return Decision{Action: datatypes.ActionMitigate, Prep: true}
	}
	return Decision{Action: datatypes.ActionReplenish, Prep: true}
}

// transition moves to the phase, recording the edge when it changes state.
func (m *Machine) transition(next Phase) {
	if m.phase == next {
		return
	}
	slog.Debug("target phase transition",
		"target", m.target.Name,
		"from", m.phase.String(),
		"to", next.String(),
	)
	if m.metrics != nil {
		m.metrics.PhaseTransitionsTotal.WithLabelValues(next.String()).Inc()
	}
	m.phase = next
}
