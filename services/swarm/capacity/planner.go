// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package capacity computes how many parallel slots of an execution unit a
// host's free capacity supports.
package capacity

import (
	"math"

	"github.com/AleutianAI/AleutianSwarm/services/swarm/datatypes"
)

// =============================================================================
// Planner
// =============================================================================

// Planner converts free capacity into slot counts.
//
// # Description
//
// Slots(host, unit) = floor(free / unit.Cost), with a configurable reserve
// subtracted first on the primary host only. The reserve guarantees the
// primary host keeps a minimum operating margin for the scheduler's own
// processes; other hosts are consumed fully.
//
// Planner is a small value type; copy it freely.
type Planner struct {
	// Home names the primary host the reserve applies to.
	Home string

	// HomeReserve is the capacity, in GB, withheld from planning on the
	// primary host.
	HomeReserve float64
}

// Slots returns the number of parallel instances of the unit the host can
// run right now. Never negative; zero when the remaining capacity after the
// reserve is below one slot's cost, or when the unit's cost is not positive.
func (p Planner) Slots(host datatypes.Host, unit datatypes.ExecutionUnit) int {
	if unit.Cost <= 0 {
		return 0
	}
	free := host.FreeCapacity()
	if host.Name == p.Home {
		free -= p.HomeReserve
	}
	if free < unit.Cost {
		return 0
	}
	return int(math.Floor(free / unit.Cost))
}
