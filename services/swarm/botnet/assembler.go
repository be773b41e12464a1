// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package botnet assembles an allocation of execution slots from the host
// pool to meet a target's demand.
package botnet

import (
	"sort"

	"github.com/AleutianAI/AleutianSwarm/services/swarm/capacity"
	"github.com/AleutianAI/AleutianSwarm/services/swarm/datatypes"
)

// =============================================================================
// Assembler
// =============================================================================

// Assembler builds allocations with a greedy largest-first fill.
//
// # Description
//
// Dispatch overhead is per-host, so the assembler minimizes the number of
// hosts touched: it filters out hosts yielding zero slots, stable-sorts the
// rest descending by slot yield (stable, so hosts with equal yield keep
// their discovery order and the result is deterministic for a given
// snapshot), and walks the sorted list taking min(yield, remaining demand)
// from each host until demand is met or the pool runs out.
//
// A partial allocation is a valid result, not an error: the pool being
// momentarily short is normal under externally-mutated capacity, and the
// caller's loop re-plans next tick.
type Assembler struct {
	planner capacity.Planner
}

// NewAssembler returns an Assembler planning with the given policy.
func NewAssembler(planner capacity.Planner) Assembler {
	return Assembler{planner: planner}
}

// Assemble allocates up to demand slots of the unit across the hosts.
//
// # Inputs
//
//   - hosts: the pool, in discovery order (fixes tie-breaks).
//   - unit: the unit to plan; its Cost drives per-host yields.
//   - demand: total slots wanted. Non-positive demand yields an empty
//     allocation.
//
// # Outputs
//
//   - datatypes.Allocation: entries in fill order; total slots never exceed
//     demand, and may fall short when the pool is exhausted.
func (a Assembler) Assemble(hosts []datatypes.Host, unit datatypes.ExecutionUnit, demand int) datatypes.Allocation {
	if demand <= 0 {
		return datatypes.Allocation{}
	}

	yields := a.eligible(hosts, unit)
	sort.SliceStable(yields, func(i, j int) bool {
		return yields[i].slots > yields[j].slots
	})

	var alloc datatypes.Allocation
	accumulated := 0
	for _, y := range yields {
		if accumulated >= demand {
			break
		}
		take := y.slots
		if remaining := demand - accumulated; take > remaining {
			take = remaining
		}
		alloc.Entries = append(alloc.Entries, datatypes.Slice{Host: y.host, Slots: take})
		accumulated += take
	}
	return alloc
}

// AssembleAll is the preparation mode: demand is not slot-bounded, so every
// eligible host contributes its own maximum and no demand cap applies.
func (a Assembler) AssembleAll(hosts []datatypes.Host, unit datatypes.ExecutionUnit) datatypes.Allocation {
	var alloc datatypes.Allocation
	for _, y := range a.eligible(hosts, unit) {
		alloc.Entries = append(alloc.Entries, datatypes.Slice{Host: y.host, Slots: y.slots})
	}
	return alloc
}

type hostYield struct {
	host  string
	slots int
}

// eligible computes per-host yields and drops hosts that cannot run even
// one slot.
func (a Assembler) eligible(hosts []datatypes.Host, unit datatypes.ExecutionUnit) []hostYield {
	yields := make([]hostYield, 0, len(hosts))
	for _, h := range hosts {
		if slots := a.planner.Slots(h, unit); slots > 0 {
			yields = append(yields, hostYield{host: h.Name, slots: slots})
		}
	}
	return yields
}
