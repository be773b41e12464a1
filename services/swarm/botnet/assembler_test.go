// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package botnet

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AleutianAI/AleutianSwarm/services/swarm/capacity"
	"github.com/AleutianAI/AleutianSwarm/services/swarm/datatypes"
)

// unitCost builds a pool where each host yields exactly its capacity in
// slots, keeping the arithmetic readable.
var unitCost = datatypes.ExecutionUnit{Kind: datatypes.ActionExtract, Cost: 1}

func pool(caps ...float64) []datatypes.Host {
	hosts := make([]datatypes.Host, 0, len(caps))
	for i, c := range caps {
		hosts = append(hosts, datatypes.Host{
			Name:        string(rune('a' + i)),
			MaxCapacity: c,
		})
	}
	return hosts
}

func TestAssembleLargestFirst(t *testing.T) {
	a := NewAssembler(capacity.Planner{})
	// yields 10, 4, 2; demand 12 should use the 10-host fully and take the
	// remainder from the next largest, never touching the third
	hosts := pool(10, 4, 2)

	alloc := a.Assemble(hosts, unitCost, 12)
	assert.Equal(t, []datatypes.Slice{
		{Host: "a", Slots: 10},
		{Host: "b", Slots: 2},
	}, alloc.Entries)
}

func TestAssemblePartialWhenPoolShort(t *testing.T) {
	a := NewAssembler(capacity.Planner{})
	hosts := pool(10, 4, 2)

	alloc := a.Assemble(hosts, unitCost, 20)
	assert.Equal(t, 16, alloc.TotalSlots(), "pool exhaustion yields a partial allocation")
	assert.Len(t, alloc.Entries, 3)
}

func TestAssembleNeverExceedsDemand(t *testing.T) {
	a := NewAssembler(capacity.Planner{})
	hosts := pool(10, 10, 10)

	alloc := a.Assemble(hosts, unitCost, 5)
	assert.Equal(t, 5, alloc.TotalSlots())
	assert.Len(t, alloc.Entries, 1, "one host covers the whole demand")
}

func TestAssembleSkipsZeroYieldHosts(t *testing.T) {
	a := NewAssembler(capacity.Planner{})
	hosts := pool(0, 6, 0)

	alloc := a.Assemble(hosts, unitCost, 10)
	assert.Equal(t, []datatypes.Slice{{Host: "b", Slots: 6}}, alloc.Entries)
}

func TestAssembleDeterministicTieBreak(t *testing.T) {
	a := NewAssembler(capacity.Planner{})
	// equal yields keep discovery order thanks to the stable sort
	hosts := pool(4, 4, 4)

	first := a.Assemble(hosts, unitCost, 6)
	for i := 0; i < 10; i++ {
		again := a.Assemble(hosts, unitCost, 6)
		assert.Equal(t, first, again, "same snapshot must produce the same allocation")
	}
	assert.Equal(t, "a", first.Entries[0].Host)
	assert.Equal(t, "b", first.Entries[1].Host)
}

func TestAssembleNonPositiveDemand(t *testing.T) {
	a := NewAssembler(capacity.Planner{})
	hosts := pool(10)

	assert.True(t, a.Assemble(hosts, unitCost, 0).Empty())
	assert.True(t, a.Assemble(hosts, unitCost, -3).Empty())
}

func TestAssembleAllTakesEverything(t *testing.T) {
	a := NewAssembler(capacity.Planner{})
	hosts := pool(10, 0, 4)

	alloc := a.AssembleAll(hosts, unitCost)
	assert.Equal(t, 14, alloc.TotalSlots())
	assert.Len(t, alloc.Entries, 2, "zero-yield hosts stay out even in prep mode")
}

func TestAssembleRespectsHomeReserve(t *testing.T) {
	a := NewAssembler(capacity.Planner{Home: "a", HomeReserve: 6})
	hosts := pool(10, 4)

	alloc := a.AssembleAll(hosts, unitCost)
	// home yields 10-6=4, tying with b; stable sort keeps home first
	assert.Equal(t, []datatypes.Slice{
		{Host: "a", Slots: 4},
		{Host: "b", Slots: 4},
	}, alloc.Entries)
}
