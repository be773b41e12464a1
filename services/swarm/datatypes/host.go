// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes defines the shared data model for the swarm scheduler:
// hosts, execution units, allocations, targets, and crew members.
//
// Every type here is a snapshot of externally-owned state. The scheduler
// never mutates a Host or Target directly; it re-reads fresh snapshots on
// each loop iteration and tolerates the staleness that implies.
package datatypes

// =============================================================================
// Host
// =============================================================================

// Host is a snapshot of one execution node in the resource pool.
//
// # Description
//
// Capacity figures are in gigabytes and are refreshed on every scheduling
// decision because they change externally between ticks. The Privileged flag
// is monotonic within a session: once escalation succeeds it is never
// revoked.
//
// # Invariants
//
//   - UsedCapacity <= MaxCapacity
//   - Purchased hosts are owned by the operator and excluded from discovery
type Host struct {
	// Name uniquely identifies the host in the resource graph.
	Name string

	// MaxCapacity is the total execution capacity of the host, in GB.
	MaxCapacity float64

	// UsedCapacity is the capacity currently consumed by running units, in GB.
	UsedCapacity float64

	// Privileged reports whether the scheduler currently holds root access.
	Privileged bool

	// UnlocksRequired is the number of unlock prerequisites still needed
	// before escalation can succeed.
	UnlocksRequired int

	// Purchased marks operator-owned hosts, which the discovery pass skips.
	Purchased bool
}

// FreeCapacity returns the capacity currently available for new units, in GB.
//
// The result is clamped at zero: a host whose used figure momentarily
// exceeds its maximum (a race with external mutation) reports no free
// capacity rather than a negative number.
func (h Host) FreeCapacity() float64 {
	free := h.MaxCapacity - h.UsedCapacity
	if free < 0 {
		return 0
	}
	return free
}
