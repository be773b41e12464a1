// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package admission decides whether the scheduler may use a host, and
// escalates privilege when it can.
package admission

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/AleutianSwarm/services/swarm/world"
)

// =============================================================================
// Controller
// =============================================================================

// Controller performs idempotent privilege escalation.
//
// # Description
//
// EnsurePrivilege short-circuits when the host is already privileged.
// Otherwise it folds the fixed unlock sequence into a per-op tagged result
// list — Unavailable entries are swallowed, they just mean the actor lacks
// that tool today — and then issues the single finalizing escalation call,
// whose boolean is the only thing that decides success.
//
// "Not yet escalatable" is `false, nil`; the caller retries next tick.
// Errors are reserved for misuse (unknown host) and for environment
// failures.
type Controller struct {
	hosts world.HostOps
}

// NewController returns a Controller backed by the given host surface.
func NewController(hosts world.HostOps) *Controller {
	return &Controller{hosts: hosts}
}

// EnsurePrivilege returns true when the scheduler holds (or just obtained)
// root access on the host.
//
// # Description
//
// Idempotent: once a call has returned true, later calls return true from
// the privilege check alone, without re-running any unlock or escalation
// operation.
//
// # Outputs
//
//   - bool: privilege held after this call.
//   - error: non-nil for unknown hosts (wraps world.ErrUnknownHost) or
//     environment failures. Never non-nil merely because escalation is not
//     possible yet.
func (c *Controller) EnsurePrivilege(ctx context.Context, host string) (bool, error) {
	privileged, err := c.hosts.HasPrivilege(ctx, host)
	if err != nil {
		return false, fmt.Errorf("privilege check %q: %w", host, err)
	}
	if privileged {
		return true, nil
	}

	unlocked := 0
	for _, op := range world.UnlockSequence {
		result, err := c.hosts.Unlock(ctx, host, op)
		if err != nil {
			return false, fmt.Errorf("unlock %s on %q: %w", op, host, err)
		}
		if result == world.Unlocked {
			unlocked++
		}
	}

	granted, err := c.hosts.Escalate(ctx, host)
	if err != nil {
		return false, fmt.Errorf("escalate %q: %w", host, err)
	}
	if granted {
		slog.Debug("privilege escalated", "host", host, "unlocks_applied", unlocked)
	}
	return granted, nil
}
