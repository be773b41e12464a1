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
// Allocation
// =============================================================================

// Slice is one (host, slot count) entry of an allocation.
type Slice struct {
	// Host is the name of the host the slots were planned on.
	Host string

	// Slots is the number of parallel unit instances planned for the host.
	// Always > 0 in a well-formed allocation; zero-slot hosts are filtered
	// out before assembly.
	Slots int
}

// Allocation is an ordered list of (host, slot count) pairs produced by the
// assembler for a single dispatch.
//
// # Description
//
// Allocations are created fresh for every dispatch and discarded after the
// dispatch completes; they are never persisted or reused, because the
// capacity figures they were planned against go stale immediately.
//
// # Invariants
//
//   - Each entry's Slots never exceeds the host's planned maximum at
//     assembly time.
//   - TotalSlots() never exceeds the demand the allocation was built for
//     (prep-mode allocations have no demand and are exempt).
type Allocation struct {
	Entries []Slice
}

// TotalSlots returns the sum of slot counts across all entries.
func (a Allocation) TotalSlots() int {
	total := 0
	for _, e := range a.Entries {
		total += e.Slots
	}
	return total
}

// Empty reports whether the allocation holds no entries.
//
// An empty allocation is a valid assembler result: it means no eligible
// host had free capacity for even one slot at planning time. Callers treat
// it as "re-plan next tick", not as an error.
func (a Allocation) Empty() bool {
	return len(a.Entries) == 0
}
