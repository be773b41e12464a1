// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package dispatch launches an assembled allocation against a target and
// blocks until every launched batch completes.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianSwarm/services/swarm/datatypes"
	"github.com/AleutianAI/AleutianSwarm/services/swarm/observability"
	"github.com/AleutianAI/AleutianSwarm/services/swarm/world"
)

// =============================================================================
// Sleeper
// =============================================================================

// Sleeper abstracts cooperative waiting so tests can drive a virtual clock
// instead of the wall clock.
type Sleeper interface {
	// Sleep blocks for the duration or until the context is cancelled,
	// returning the context's error in that case.
	Sleep(ctx context.Context, d time.Duration) error
}

// TimerSleeper waits on the wall clock. The zero value is ready to use.
type TimerSleeper struct{}

// Sleep blocks on a timer, yielding early on context cancellation.
func (TimerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// =============================================================================
// Dispatcher
// =============================================================================

// Result summarizes one dispatch.
type Result struct {
	// BatchID is a fresh identifier for the dispatch, used by the journal.
	BatchID string

	// Hosts is the number of hosts that accepted a launch.
	Hosts int

	// Slots is the total slot count actually launched. May be less than
	// the allocation's total when host capacity evaporated between
	// planning and launch.
	Slots int

	// Elapsed is the wall time from first launch to collective completion.
	// Zero for no-op dispatches.
	Elapsed time.Duration
}

// Dispatcher launches allocations and awaits their collective completion.
//
// # Description
//
// All launches happen before any wait; no ordering is guaranteed between
// hosts within one dispatch. The first wait uses the unit's
// externally-reported expected duration, after which completion is polled
// at the configured coarse interval. Waiting is cooperative (timer-based),
// never a hard spin.
//
// An allocation whose every entry fails to launch is a no-op for this tick,
// not an error: the caller's loop re-plans against a fresh snapshot.
//
// # Thread Safety
//
// A Dispatcher is stateless between calls; concurrent Run calls are safe
// as long as the underlying ExecOps is.
type Dispatcher struct {
	// PollInterval is the coarse completion-polling period after the
	// initial duration wait.
	PollInterval time.Duration

	// Sleeper performs cooperative waits. Defaults to TimerSleeper.
	Sleeper Sleeper

	exec    world.ExecOps
	metrics *observability.SchedulerMetrics
}

// NewDispatcher returns a Dispatcher with the given polling interval.
// Metrics may be nil (recording is skipped), which keeps unit tests free of
// the global Prometheus registry.
func NewDispatcher(exec world.ExecOps, pollInterval time.Duration, metrics *observability.SchedulerMetrics) *Dispatcher {
	return &Dispatcher{
		PollInterval: pollInterval,
		Sleeper:      TimerSleeper{},
		exec:         exec,
		metrics:      metrics,
	}
}

// Run launches the allocation and blocks until every launched batch has
// terminated.
//
// # Inputs
//
//   - alloc: the planned (host, slots) pairs. Zero-slot entries are skipped.
//   - unit: the unit to launch; its Duration seeds the first wait.
//   - target: the object of the action.
//
// # Outputs
//
//   - Result: what actually launched and how long completion took.
//   - error: environment failure or context cancellation. A no-op dispatch
//     (nothing launched) is a nil error with Result.Slots == 0.
func (d *Dispatcher) Run(ctx context.Context, alloc datatypes.Allocation, unit datatypes.ExecutionUnit, target string) (Result, error) {
	result := Result{BatchID: uuid.NewString()}

	var handles []world.Handle
	for _, entry := range alloc.Entries {
		if entry.Slots <= 0 {
			continue
		}
		handle, ok, err := d.exec.Launch(ctx, unit, entry.Host, entry.Slots, target)
		if err != nil {
			return result, fmt.Errorf("launch %s on %q: %w", unit.Kind, entry.Host, err)
		}
		if !ok {
			// capacity evaporated since planning; re-plan next tick
			slog.Debug("launch refused",
				"host", entry.Host,
				"action", unit.Kind.String(),
				"slots", entry.Slots,
			)
			continue
		}
		handles = append(handles, handle)
		result.Hosts++
		result.Slots += entry.Slots
	}

	if len(handles) == 0 {
		if d.metrics != nil {
			d.metrics.BatchesTotal.WithLabelValues(unit.Kind.String(), "noop").Inc()
		}
		return result, nil
	}

	start := time.Now()
	if err := d.await(ctx, handles, unit.Duration); err != nil {
		return result, err
	}
	result.Elapsed = time.Since(start)

	if d.metrics != nil {
		d.metrics.BatchesTotal.WithLabelValues(unit.Kind.String(), "launched").Inc()
		d.metrics.SlotsAllocatedTotal.WithLabelValues(unit.Kind.String()).Add(float64(result.Slots))
		d.metrics.DispatchSeconds.WithLabelValues(unit.Kind.String()).Observe(result.Elapsed.Seconds())
	}

	slog.Info("batch completed",
		"batch_id", result.BatchID,
		"action", unit.Kind.String(),
		"target", target,
		"hosts", result.Hosts,
		"slots", result.Slots,
		"elapsed", result.Elapsed.String(),
	)
	return result, nil
}

// await sleeps through the expected duration, then polls the surviving
// handles at the coarse interval until all report terminated.
func (d *Dispatcher) await(ctx context.Context, handles []world.Handle, expected time.Duration) error {
	if err := d.Sleeper.Sleep(ctx, expected); err != nil {
		return err
	}

	remaining := handles
	for len(remaining) > 0 {
		alive := remaining[:0]
		for _, h := range remaining {
			running, err := d.exec.IsRunning(ctx, h)
			if err != nil {
				return fmt.Errorf("poll %q: %w", h, err)
			}
			if running {
				alive = append(alive, h)
			}
		}
		remaining = alive
		if len(remaining) == 0 {
			break
		}
		if err := d.Sleeper.Sleep(ctx, d.PollInterval); err != nil {
			return err
		}
	}
	return nil
}
