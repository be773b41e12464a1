// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package engine runs the scheduling loop: select a target, build the host
// pool, decide the next action, assemble an allocation, dispatch it, and
// journal the outcome.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/AleutianAI/AleutianSwarm/services/swarm/admission"
	"github.com/AleutianAI/AleutianSwarm/services/swarm/botnet"
	"github.com/AleutianAI/AleutianSwarm/services/swarm/capacity"
	"github.com/AleutianAI/AleutianSwarm/services/swarm/datatypes"
	"github.com/AleutianAI/AleutianSwarm/services/swarm/dispatch"
	"github.com/AleutianAI/AleutianSwarm/services/swarm/graph"
	"github.com/AleutianAI/AleutianSwarm/services/swarm/journal"
	"github.com/AleutianAI/AleutianSwarm/services/swarm/observability"
	"github.com/AleutianAI/AleutianSwarm/services/swarm/targeting"
	"github.com/AleutianAI/AleutianSwarm/services/swarm/world"
)

// =============================================================================
// Engine
// =============================================================================

// Config tunes one Engine.
type Config struct {
	// HomeHost is the controller's own host. It joins the pool alongside
	// discovered hosts, with HomeReserve capacity withheld.
	HomeHost    string
	HomeReserve float64

	// Per-action capacity cost of one slot.
	ExtractCost   float64
	ReplenishCost float64
	MitigateCost  float64

	// PollInterval is the dispatcher's coarse completion-polling period.
	PollInterval time.Duration

	// IdleWait is the backoff between loop iterations that dispatched
	// nothing.
	IdleWait time.Duration
}

// Engine owns one target at a time and drives it through prepare/extract
// cycles against whatever host pool is currently reachable.
//
// # Description
//
// Each iteration works on fresh snapshots: target eligibility, the host
// pool, and the target's levels are all re-read, so externally caused
// drift (capacity taken, privilege gained, tools acquired) is absorbed at
// the iteration boundary instead of corrupting a long-lived plan. When the
// best eligible target changes, the engine abandons the current one
// mid-cycle and restarts preparation on the new target.
//
// # Thread Safety
//
// Not safe for concurrent use; run exactly one Run goroutine per Engine.
type Engine struct {
	cfg Config

	env        world.World
	selector   *targeting.Selector
	machine    *targeting.Machine
	discoverer *graph.Discoverer
	controller *admission.Controller
	assembler  botnet.Assembler
	dispatcher *dispatch.Dispatcher
	journal    journal.Journal
	metrics    *observability.SchedulerMetrics

	// Sleeper paces the idle backoff. Defaults to the dispatcher's
	// wall-clock sleeper; tests substitute a virtual clock.
	Sleeper dispatch.Sleeper

	// observed holds the latest Observation for concurrent readers.
	observed atomic.Value
}

// Observation is a point-in-time view of what the engine is doing, safe to
// read from other goroutines (the status API).
type Observation struct {
	// Target is the target currently driven; empty before the first
	// eligible selection.
	Target string

	// Phase is the target state machine's phase name.
	Phase string
}

// SetSleeper replaces the wall-clock sleeper for both the idle backoff and
// the dispatcher's waits. Used by the simulator and by tests to drive a
// virtual clock. Call before Run.
func (e *Engine) SetSleeper(s dispatch.Sleeper) {
	e.Sleeper = s
	e.dispatcher.Sleeper = s
}

// Observe returns the engine's latest observation.
func (e *Engine) Observe() Observation {
	if obs, ok := e.observed.Load().(Observation); ok {
		return obs
	}
	return Observation{}
}

// New wires an Engine from its environment and configuration.
// Metrics may be nil.
func New(env world.World, sel *targeting.Selector, jrnl journal.Journal, cfg Config, metrics *observability.SchedulerMetrics) *Engine {
	planner := capacity.Planner{Home: cfg.HomeHost, HomeReserve: cfg.HomeReserve}
	return &Engine{
		cfg:        cfg,
		env:        env,
		selector:   sel,
		discoverer: graph.NewDiscoverer(env),
		controller: admission.NewController(env),
		assembler:  botnet.NewAssembler(planner),
		dispatcher: dispatch.NewDispatcher(env, cfg.PollInterval, metrics),
		journal:    jrnl,
		metrics:    metrics,
		Sleeper:    dispatch.TimerSleeper{},
	}
}

// Run loops Tick until the context is cancelled, backing off on idle
// iterations.
func (e *Engine) Run(ctx context.Context) error {
	for {
		worked, err := e.Tick(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Warn("scheduler iteration failed", "error", err)
		}
		if !worked {
			if err := e.Sleeper.Sleep(ctx, e.cfg.IdleWait); err != nil {
				return err
			}
		}
	}
}

// Tick runs one scheduling iteration.
//
// # Outputs
//
//   - bool: true when a batch was dispatched; false means idle (no
//     eligible target, empty pool, or nothing launched) and the caller
//     should back off.
//   - error: environment failure; the iteration is abandoned and retried.
func (e *Engine) Tick(ctx context.Context) (bool, error) {
	snap, err := e.snapshot(ctx)
	if err != nil {
		return false, err
	}

	target, ok := e.selector.Select(snap)
	if !ok {
		return false, nil
	}
	if e.machine == nil {
		e.machine = targeting.NewMachine(target, e.metrics)
	} else if e.machine.Target().Name != target.Name {
		// a better target became eligible; abandon the current cycle
		slog.Info("retargeting",
			"from", e.machine.Target().Name,
			"to", target.Name,
		)
		e.machine.Reset(target)
	}
	e.observed.Store(Observation{
		Target: target.Name,
		Phase:  e.machine.Phase().String(),
	})

	pool, err := e.buildPool(ctx)
	if err != nil {
		return false, err
	}
	if len(pool) == 0 {
		return false, nil
	}

	state, err := e.env.TargetState(ctx, target.Name)
	if err != nil {
		return false, fmt.Errorf("target state %q: %w", target.Name, err)
	}
	decision := e.machine.Next(state)

	unit, err := e.buildUnit(ctx, decision.Action, target.Name)
	if err != nil {
		return false, err
	}

	alloc, demand, err := e.plan(ctx, pool, unit, target, decision)
	if err != nil {
		return false, err
	}
	if alloc.Empty() {
		return false, nil
	}

	result, err := e.dispatcher.Run(ctx, alloc, unit, target.Name)
	if err != nil {
		return false, err
	}
	if result.Slots == 0 {
		return false, nil
	}

	rec := journal.Record{
		BatchID: result.BatchID,
		Time:    time.Now(),
		Target:  target.Name,
		Action:  unit.Kind.String(),
		Hosts:   result.Hosts,
		Slots:   result.Slots,
		Demand:  demand,
		Elapsed: result.Elapsed,
	}
	if err := e.journal.Append(ctx, rec); err != nil {
		// the dispatch itself succeeded; losing one journal entry is
		// not worth failing the iteration over
		slog.Warn("journal append failed", "batch_id", result.BatchID, "error", err)
	}
	return true, nil
}

// snapshot reads the per-iteration actor state used by eligibility
// predicates.
func (e *Engine) snapshot(ctx context.Context) (targeting.Snapshot, error) {
	unlocks, err := e.env.UnlocksHeld(ctx)
	if err != nil {
		return targeting.Snapshot{}, fmt.Errorf("unlocks held: %w", err)
	}
	funds, err := e.env.Funds(ctx)
	if err != nil {
		return targeting.Snapshot{}, fmt.Errorf("funds: %w", err)
	}
	return targeting.Snapshot{UnlocksHeld: unlocks, Funds: funds}, nil
}

// buildPool discovers the reachable hosts, appends the home host, and
// keeps those the controller can hold privilege on.
func (e *Engine) buildPool(ctx context.Context) ([]datatypes.Host, error) {
	discovered, err := e.discoverer.Discover(ctx, e.cfg.HomeHost)
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}
	if e.metrics != nil {
		e.metrics.HostsDiscovered.Set(float64(len(discovered)))
	}

	home, err := e.env.Host(ctx, e.cfg.HomeHost)
	if err != nil {
		return nil, fmt.Errorf("snapshot %q: %w", e.cfg.HomeHost, err)
	}
	candidates := append(discovered, home)

	pool := make([]datatypes.Host, 0, len(candidates))
	for _, h := range candidates {
		admitted, err := e.controller.EnsurePrivilege(ctx, h.Name)
		if err != nil {
			return nil, err
		}
		if admitted {
			pool = append(pool, h)
		}
	}
	if e.metrics != nil {
		e.metrics.HostsPrivileged.Set(float64(len(pool)))
	}
	return pool, nil
}

// buildUnit constructs the execution unit for the action, with the
// externally-reported expected duration.
func (e *Engine) buildUnit(ctx context.Context, kind datatypes.ActionKind, target string) (datatypes.ExecutionUnit, error) {
	duration, err := e.env.ActionDuration(ctx, kind, target)
	if err != nil {
		return datatypes.ExecutionUnit{}, fmt.Errorf("action duration %s on %q: %w", kind, target, err)
	}
	return datatypes.ExecutionUnit{
		Kind:     kind,
		Cost:     e.costOf(kind),
		Duration: duration,
	}, nil
}

// plan assembles the allocation for the decision. Preparation uses the
// unbounded mode; extraction derives demand from the skim fraction and the
// per-slot yield. The returned demand is zero for preparation.
func (e *Engine) plan(ctx context.Context, pool []datatypes.Host, unit datatypes.ExecutionUnit, target datatypes.Target, decision targeting.Decision) (datatypes.Allocation, int, error) {
	if decision.Prep {
		return e.assembler.AssembleAll(pool, unit), 0, nil
	}

	yield, err := e.env.ExtractYield(ctx, target.Name)
	if err != nil {
		return datatypes.Allocation{}, 0, fmt.Errorf("extract yield %q: %w", target.Name, err)
	}
	if yield <= 0 {
		return datatypes.Allocation{}, 0, nil
	}
	demand := int(math.Ceil(target.Skim / yield))
	alloc := e.assembler.Assemble(pool, unit, demand)

	if short := demand - alloc.TotalSlots(); short > 0 {
		slog.Debug("allocation short of demand",
			"target", target.Name,
			"demand", demand,
			"allocated", alloc.TotalSlots(),
		)
		if e.metrics != nil {
			e.metrics.SlotsShortfallTotal.WithLabelValues(unit.Kind.String()).Add(float64(short))
		}
	}
	return alloc, demand, nil
}

// costOf maps an action to its per-slot capacity cost.
func (e *Engine) costOf(kind datatypes.ActionKind) float64 {
	switch kind {
	case datatypes.ActionExtract:
		return e.cfg.ExtractCost
	case datatypes.ActionReplenish:
		return e.cfg.ReplenishCost
	case datatypes.ActionMitigate:
		return e.cfg.MitigateCost
	default:
		return 0
	}
}
