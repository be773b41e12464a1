// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package targeting

// =============================================================================
// Target Selection
// =============================================================================

import (
	"github.com/AleutianAI/AleutianSwarm/services/swarm/datatypes"
)

// Snapshot is the per-iteration view of actor state that eligibility
// predicates evaluate against. Taken once at the top of each engine loop so
// selection is deterministic within an iteration.
type Snapshot struct {
	// UnlocksHeld is how many unlock tools the actor currently holds.
	UnlocksHeld int

	// Funds is the actor's current funds.
	Funds float64
}

// Candidate is one entry of the ordered target preference list.
type Candidate struct {
	// Target is the candidate itself.
	Target datatypes.Target

	// Eligible overrides the default addressability predicate. When nil,
	// the candidate is eligible once the actor holds at least
	// Target.UnlocksNeeded unlock tools.
	Eligible func(Snapshot) bool
}

// Selector walks an ordered preference list and picks the first eligible
// target.
//
// # Description
//
// The list is ordered best-first. Because eligibility is driven by
// externally-changing state (tools acquired, funds earned), the best
// eligible candidate can change between iterations; the engine treats a
// change as the target-abandonment signal and resets its state machine
// mid-cycle.
type Selector struct {
	prefs []Candidate
}

// NewSelector returns a Selector over the given preference list. The slice
// is used as-is; callers must not mutate it afterwards.
func NewSelector(prefs []Candidate) *Selector {
	return &Selector{prefs: prefs}
}

// Select returns the first eligible target in preference order. The
// boolean is false when no candidate is eligible yet.
func (s *Selector) Select(snap Snapshot) (datatypes.Target, bool) {
	for _, c := range s.prefs {
		if c.Eligible != nil {
			if c.Eligible(snap) {
				return c.Target, true
			}
			continue
		}
		if snap.UnlocksHeld >= c.Target.UnlocksNeeded {
			return c.Target, true
		}
	}
	return datatypes.Target{}, false
}
