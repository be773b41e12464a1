// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

// =============================================================================
// Target Archetypes
// =============================================================================

// Archetype classifies a target by its typical initial condition, which
// decides the ordering of the two preparation actions.
//
// Both orderings converge: preparation alternates whichever single predicate
// (not-at-max-wealth / not-at-min-penalty) remains unsatisfied until both
// hold at once. The archetype only picks which action runs first when both
// predicates are unsatisfied.
type Archetype int

const (
	// ArchetypeMoneyStarved targets usually start far below maximum wealth;
	// preparation replenishes first.
	ArchetypeMoneyStarved Archetype = iota

	// ArchetypeSecurityHigh targets usually start far above minimum penalty;
	// preparation mitigates first.
	ArchetypeSecurityHigh
)

// String returns the name of the archetype.
func (a Archetype) String() string {
	switch a {
	case ArchetypeMoneyStarved:
		return "money_starved"
	case ArchetypeSecurityHigh:
		return "security_high"
	default:
		return "unknown"
	}
}

// =============================================================================
// Target
// =============================================================================

// Target identifies the object of scheduling plus its static tuning.
//
// # Description
//
// The mutable wealth/penalty figures live in TargetState and are re-read
// from the external environment each loop iteration; Target itself only
// carries identity and static parameters.
type Target struct {
	// Name uniquely identifies the target.
	Name string

	// Archetype picks the initial preparation ordering.
	Archetype Archetype

	// Skim is the fraction of the target's wealth extracted per cycle.
	// The remainder is deliberately preserved so replenishment stays cheap.
	Skim float64

	// UnlocksNeeded is the number of unlock prerequisites required before
	// this target is addressable at all. Drives the eligibility predicate
	// of the target preference list.
	UnlocksNeeded int
}

// TargetState is a point-in-time snapshot of a target's mutable levels.
//
// # Fields
//
//   - Wealth / WealthMax: current and maximum wealth.
//   - Penalty / PenaltyMin: current and minimum penalty (security-like;
//     higher is worse).
type TargetState struct {
	Wealth     float64
	WealthMax  float64
	Penalty    float64
	PenaltyMin float64
}

// AtMaxWealth reports whether the target's wealth is at its maximum.
func (s TargetState) AtMaxWealth() bool {
	return s.Wealth >= s.WealthMax
}

// AtMinPenalty reports whether the target's penalty is at its minimum.
func (s TargetState) AtMinPenalty() bool {
	return s.Penalty <= s.PenaltyMin
}

// Prepared reports whether both preparation predicates hold simultaneously,
// the condition for entering the extraction phase.
func (s TargetState) Prepared() bool {
	return s.AtMaxWealth() && s.AtMinPenalty()
}

// =============================================================================
// Rivals
// =============================================================================

// RivalInfo is the observable state of one rival pool. A change in either
// field between two reads signals that a new external tick has begun.
type RivalInfo struct {
	Power     float64
	Territory float64
}
