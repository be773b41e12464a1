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

import "time"

// =============================================================================
// Action Kinds
// =============================================================================

// ActionKind identifies one of the three executable actions the scheduler
// can run against a target.
//
// # Description
//
// The set is closed by design. Dispatch logic switches exhaustively over
// ActionKind so that adding a new variant fails compilation everywhere a
// case is missing, instead of silently falling through a string lookup.
type ActionKind int

const (
	// ActionExtract skims a fraction of the target's wealth. It perturbs
	// both wealth and penalty away from their extremes.
	ActionExtract ActionKind = iota

	// ActionReplenish drives the target's wealth back toward its maximum.
	ActionReplenish

	// ActionMitigate drives the target's penalty back toward its minimum.
	ActionMitigate
)

// String returns the lowercase wire/name form of the action kind.
func (k ActionKind) String() string {
	switch k {
	case ActionExtract:
		return "extract"
	case ActionReplenish:
		return "replenish"
	case ActionMitigate:
		return "mitigate"
	default:
		return "unknown"
	}
}

// Valid reports whether k is one of the defined action kinds.
func (k ActionKind) Valid() bool {
	switch k {
	case ActionExtract, ActionReplenish, ActionMitigate:
		return true
	default:
		return false
	}
}

// =============================================================================
// Execution Unit
// =============================================================================

// ExecutionUnit is the immutable specification of one dispatchable action:
// which action, what each parallel slot costs, and how long the external
// environment reports the action will take against the chosen target.
//
// # Fields
//
//   - Kind: the action to run.
//   - Cost: capacity consumed per slot, in GB. Must be > 0.
//   - Duration: externally-reported expected runtime for the current target.
//     Used as the dispatcher's first wait before completion polling begins.
//
// # Assumptions
//
//   - Duration is a point-in-time report; the actual runtime may differ, so
//     the dispatcher always polls for completion after the first wait.
type ExecutionUnit struct {
	Kind     ActionKind
	Cost     float64
	Duration time.Duration
}
