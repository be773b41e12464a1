// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph discovers the pool of execution hosts reachable from a root
// node through the external adjacency relation.
package graph

import (
	"context"
	"fmt"

	"github.com/AleutianAI/AleutianSwarm/services/swarm/datatypes"
	"github.com/AleutianAI/AleutianSwarm/services/swarm/world"
)

// =============================================================================
// Discoverer
// =============================================================================

// Discoverer walks the adjacency relation and snapshots every reachable,
// eligible host.
//
// # Description
//
// The traversal is iterative (explicit stack plus visited set, never
// recursion, so graph depth cannot overflow) and visits each node at most
// once. Visit order does not affect correctness; it only fixes the
// tie-break order the assembler's stable sort preserves downstream.
//
// The root itself and purchased (operator-owned) hosts are excluded from
// the result. Discovery is read-only: it never escalates, launches, or
// mutates anything.
type Discoverer struct {
	hosts world.HostOps
}

// NewDiscoverer returns a Discoverer backed by the given host surface.
func NewDiscoverer(hosts world.HostOps) *Discoverer {
	return &Discoverer{hosts: hosts}
}

// Discover returns snapshots of every eligible host reachable from root.
//
// # Inputs
//
//   - ctx: cancels the traversal between node visits.
//   - root: the starting node. Excluded from the result.
//
// # Outputs
//
//   - []datatypes.Host: eligible hosts in first-visit order.
//   - error: non-nil only when the adjacency source itself fails; the
//     failure is propagated, not retried.
func (d *Discoverer) Discover(ctx context.Context, root string) ([]datatypes.Host, error) {
	visited := map[string]bool{root: true}
	stack := []string{root}
	var out []datatypes.Host

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		neighbors, err := d.hosts.Scan(ctx, node)
		if err != nil {
			return nil, fmt.Errorf("scan %q: %w", node, err)
		}
		for _, name := range neighbors {
			if visited[name] {
				continue
			}
			visited[name] = true
			stack = append(stack, name)

			host, err := d.hosts.Host(ctx, name)
			if err != nil {
				return nil, fmt.Errorf("snapshot %q: %w", name, err)
			}
			if host.Purchased {
				continue
			}
			out = append(out, host)
		}
	}
	return out, nil
}
