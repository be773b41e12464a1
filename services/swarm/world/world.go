// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package world abstracts the external environment the scheduler operates
// in: the host graph, the launch/track primitives, target levels, and crew
// state.
//
// # Description
//
// The environment owns all mutable state. Every read through these
// interfaces is a fresh snapshot that may already be stale by the time the
// next action lands; the scheduler is designed around that, so partial
// allocations and race-driven no-ops are normal outcomes, not errors.
//
// The interface is split by concern (HostOps, ExecOps, TargetOps, CrewOps)
// so components depend only on the slice they use and tests can fake a
// single concern at a time. World composes all four for the service wiring.
//
// # Error Model
//
// Transient unavailability (no privilege yet, no funds, tool missing) is a
// boolean "not yet", never an error. Errors are reserved for
// programmer-error-class misuse (sentinels below) and for failures of the
// environment itself, which callers treat as retryable next tick.
package world

import (
	"context"
	"errors"
	"time"

	"github.com/AleutianAI/AleutianSwarm/services/swarm/datatypes"
)

// =============================================================================
// Sentinel Errors
// =============================================================================

var (
	// ErrUnknownHost is returned when an operation names a host that was
	// never discovered. Calling code has a bug; this is not retryable.
	ErrUnknownHost = errors.New("world: unknown host")

	// ErrUnknownTarget is returned when an operation names an undefined
	// target.
	ErrUnknownTarget = errors.New("world: unknown target")

	// ErrUnknownMember is returned when a crew operation names someone who
	// is not on the roster.
	ErrUnknownMember = errors.New("world: unknown crew member")
)

// =============================================================================
// Unlock Operations
// =============================================================================

// UnlockOp is one of the fixed idempotent unlock operations tried, in
// order, before escalation.
type UnlockOp int

const (
	UnlockAuthBypass UnlockOp = iota
	UnlockRelayExploit
	UnlockWormInject
	UnlockProxyPivot
	UnlockDataTap
)

// UnlockSequence is the fixed order in which unlock operations are
// attempted. Individual unavailability is swallowed by the admission
// controller; only the finalizing escalation decides success.
var UnlockSequence = []UnlockOp{
	UnlockAuthBypass,
	UnlockRelayExploit,
	UnlockWormInject,
	UnlockProxyPivot,
	UnlockDataTap,
}

// String returns the name of the unlock operation.
func (op UnlockOp) String() string {
	switch op {
	case UnlockAuthBypass:
		return "auth_bypass"
	case UnlockRelayExploit:
		return "relay_exploit"
	case UnlockWormInject:
		return "worm_inject"
	case UnlockProxyPivot:
		return "proxy_pivot"
	case UnlockDataTap:
		return "data_tap"
	default:
		return "unknown"
	}
}

// UnlockResult is the tagged outcome of a single unlock attempt.
//
// Modeling unavailability as a value instead of an error keeps the
// admission fold free of exception-as-control-flow.
type UnlockResult int

const (
	// Unlocked means the operation applied (or had already applied; the
	// operations are idempotent).
	Unlocked UnlockResult = iota

	// Unavailable means the actor lacks the prerequisite tool for this
	// operation. Swallowed by the caller, not fatal.
	Unavailable
)

// =============================================================================
// Handles
// =============================================================================

// Handle identifies one launched batch of unit instances on one host.
// Opaque to the scheduler; only useful for IsRunning polling.
type Handle string

// =============================================================================
// Interfaces
// =============================================================================

// HostOps is the read/escalate surface of the host graph.
type HostOps interface {
	// Scan returns the nodes adjacent to the given node. Failure of the
	// adjacency source is propagated, not retried.
	Scan(ctx context.Context, node string) ([]string, error)

	// Host returns a fresh capacity/flag snapshot for the named host.
	// Returns ErrUnknownHost for names outside the graph.
	Host(ctx context.Context, name string) (datatypes.Host, error)

	// HasPrivilege reports whether the scheduler holds root access on the
	// host. Monotonic within a session.
	HasPrivilege(ctx context.Context, host string) (bool, error)

	// Unlock attempts one unlock operation on the host. Unavailable means
	// the actor lacks the prerequisite tool; that is a normal outcome.
	Unlock(ctx context.Context, host string, op UnlockOp) (UnlockResult, error)

	// Escalate performs the finalizing escalation call. Returns false when
	// the host still has unmet unlock prerequisites.
	Escalate(ctx context.Context, host string) (bool, error)
}

// ExecOps launches units and tracks their completion.
type ExecOps interface {
	// Launch starts slots parallel instances of the unit on the host
	// against the target. The boolean is false when the host could not
	// accept the batch (capacity evaporated since planning); that is a
	// race, not an error.
	Launch(ctx context.Context, unit datatypes.ExecutionUnit, host string, slots int, target string) (Handle, bool, error)

	// IsRunning reports whether the batch behind the handle is still
	// executing. Unknown handles report not-running.
	IsRunning(ctx context.Context, h Handle) (bool, error)
}

// TargetOps reads target levels and action parameters.
type TargetOps interface {
	// TargetState returns a fresh wealth/penalty snapshot.
	// Returns ErrUnknownTarget for undefined targets.
	TargetState(ctx context.Context, target string) (datatypes.TargetState, error)

	// ActionDuration returns the externally-reported expected runtime of
	// the action against the target, at current conditions.
	ActionDuration(ctx context.Context, kind datatypes.ActionKind, target string) (time.Duration, error)

	// ExtractYield returns the fraction of the target's wealth one extract
	// slot skims at current conditions. Drives demand computation.
	ExtractYield(ctx context.Context, target string) (float64, error)

	// UnlocksHeld returns how many unlock tools the actor currently holds.
	// Target eligibility predicates compare this against UnlocksNeeded.
	UnlocksHeld(ctx context.Context) (int, error)

	// Funds returns the actor's current funds.
	Funds(ctx context.Context) (float64, error)
}

// CrewOps manages the roster and observes rival pools.
type CrewOps interface {
	// Roster returns the names of all current members.
	Roster(ctx context.Context) ([]string, error)

	// Member returns a fresh snapshot of the named member.
	// Returns ErrUnknownMember for names not on the roster.
	Member(ctx context.Context, name string) (datatypes.CrewMember, error)

	// Recruit attempts to add a member. False when the roster bound or
	// recruitment requirements are not met yet.
	Recruit(ctx context.Context, name string) (bool, error)

	// AssignTask sets the member's current task.
	// Returns ErrUnknownMember for names not on the roster.
	AssignTask(ctx context.Context, member string, task datatypes.MemberTask) error

	// Ascend resets the member's stats, respect, and non-persistent
	// equipment in exchange for a persistent multiplier. False when the
	// member has not earned enough to ascend.
	Ascend(ctx context.Context, member string) (bool, error)

	// PurchaseEquipment buys the named item for the member. False when
	// funds are insufficient; owning the item already is also false.
	PurchaseEquipment(ctx context.Context, member, item string, class datatypes.EquipmentClass) (bool, error)

	// RivalInfo returns the observable state of every rival pool. A change
	// in any rival's power or territory between reads marks a new tick.
	RivalInfo(ctx context.Context) (map[string]datatypes.RivalInfo, error)

	// Territory returns the crew's own territorial share in [0, 1].
	Territory(ctx context.Context) (float64, error)

	// WinChance returns the estimated probability of defeating the named
	// rival in conflict.
	WinChance(ctx context.Context, rival string) (float64, error)
}

// World composes every environment concern for service wiring.
type World interface {
	HostOps
	ExecOps
	TargetOps
	CrewOps
}
