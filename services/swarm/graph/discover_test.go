// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianSwarm/services/swarm/world"
)

func TestDiscoverExcludesRootAndPurchased(t *testing.T) {
	sim := world.NewDemo()
	d := NewDiscoverer(sim)

	hosts, err := d.Discover(context.Background(), "home")
	require.NoError(t, err)

	found := make(map[string]bool, len(hosts))
	for _, h := range hosts {
		found[h.Name] = true
	}
	assert.False(t, found["home"], "root must be excluded")
	assert.False(t, found["owned-1"], "purchased hosts must be excluded")
	assert.True(t, found["relay-alpha"])
	assert.True(t, found["relay-beta"])
	assert.True(t, found["node-gamma"])
	assert.True(t, found["vault-core"])
	assert.True(t, found["deadend"], "zero-capacity hosts still appear; filtering is the planner's job")
	assert.Len(t, hosts, 5)
}

func TestDiscoverVisitsEachNodeOnce(t *testing.T) {
	sim := world.NewSim()
	sim.AddHost("root", 8, 0, true, 0, true)
	sim.AddHost("a", 8, 0, false, 0, false)
	sim.AddHost("b", 8, 0, false, 0, false)
	// cycle: root-a, a-b, b-root
	sim.Link("root", "a")
	sim.Link("a", "b")
	sim.Link("b", "root")

	d := NewDiscoverer(sim)
	hosts, err := d.Discover(context.Background(), "root")
	require.NoError(t, err)
	assert.Len(t, hosts, 2, "cycles must not duplicate or hang")
}

func TestDiscoverPropagatesScanFailure(t *testing.T) {
	sim := world.NewSim()
	d := NewDiscoverer(sim)

	_, err := d.Discover(context.Background(), "ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, world.ErrUnknownHost)
}

func TestDiscoverHonorsCancellation(t *testing.T) {
	sim := world.NewDemo()
	d := NewDiscoverer(sim)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Discover(ctx, "home")
	assert.ErrorIs(t, err, context.Canceled)
}
