// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the swarm scheduler.
//
// # Description
//
// Metrics cover the scheduling loop (batches, slots, under-allocation),
// the host pool (discovered/privileged counts), and the crew synchronizer
// (conflict state transitions). Exposed via the /metrics endpoint; use with
// Prometheus + Grafana for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "swarm"

// Subsystem for scheduler loop metrics
const schedulerSubsystem = "scheduler"

// Subsystem for crew/conflict metrics
const crewSubsystem = "crew"

// SchedulerMetrics holds all Prometheus metrics for the scheduling loop and
// the crew synchronizer.
//
// # Fields
//
//   - BatchesTotal: dispatched batches by action and outcome
//   - SlotsAllocatedTotal: slots actually launched, by action
//   - SlotsShortfallTotal: demand minus allocation, by action
//   - DispatchSeconds: wall time of a dispatch (launch through completion)
//   - HostsDiscovered / HostsPrivileged: pool size gauges
//   - PhaseTransitionsTotal: target state machine transitions by phase
//   - ConflictState: current synchronizer state as a small integer
//   - RosterSize: current crew roster size
//
// # Thread Safety
//
// All operations are thread-safe.
type SchedulerMetrics struct {
	// BatchesTotal counts dispatched batches.
	// Labels: action (extract, replenish, mitigate), outcome (launched, noop)
	BatchesTotal *prometheus.CounterVec

	// SlotsAllocatedTotal counts slots launched by action.
	// Labels: action
	SlotsAllocatedTotal *prometheus.CounterVec

	// SlotsShortfallTotal counts slots of unmet demand by action. A rising
	// rate means the pool is persistently short of the extraction demand.
	// Labels: action
	SlotsShortfallTotal *prometheus.CounterVec

	// DispatchSeconds measures launch-to-completion wall time.
	// Labels: action
	DispatchSeconds *prometheus.HistogramVec

	// HostsDiscovered tracks the size of the discovered pool.
	HostsDiscovered prometheus.Gauge

	// HostsPrivileged tracks how many pool hosts admit the scheduler.
	HostsPrivileged prometheus.Gauge

	// PhaseTransitionsTotal counts target state machine transitions.
	// Labels: phase (prep_replenish, prep_mitigate, extracting)
	PhaseTransitionsTotal *prometheus.CounterVec

	// ConflictState exports the synchronizer state:
	// 0 peacetime, 1 armed, 2 in_conflict, 3 disabled.
	ConflictState prometheus.Gauge

	// RosterSize tracks the crew roster size.
	RosterSize prometheus.Gauge
}

// DefaultMetrics is the singleton instance of SchedulerMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *SchedulerMetrics

// InitMetrics initializes the default metrics instance.
//
// # Description
//
// Creates and registers all Prometheus metrics against the default
// registry. Call once at service startup.
//
// # Limitations
//
//   - Panics if called twice (duplicate registration).
func InitMetrics() *SchedulerMetrics {
	DefaultMetrics = &SchedulerMetrics{
		BatchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: schedulerSubsystem,
				Name:      "batches_total",
				Help:      "Total dispatched batches by action and outcome",
			},
			[]string{"action", "outcome"},
		),

		SlotsAllocatedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: schedulerSubsystem,
				Name:      "slots_allocated_total",
				Help:      "Total execution slots launched by action",
			},
			[]string{"action"},
		),

		SlotsShortfallTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: schedulerSubsystem,
				Name:      "slots_shortfall_total",
				Help:      "Total slots of demand the pool could not satisfy",
			},
			[]string{"action"},
		),

		DispatchSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: schedulerSubsystem,
				Name:      "dispatch_seconds",
				Help:      "Wall time from batch launch to collective completion",
				Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
			},
			[]string{"action"},
		),

		HostsDiscovered: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: schedulerSubsystem,
				Name:      "hosts_discovered",
				Help:      "Hosts found by the last discovery pass",
			},
		),

		HostsPrivileged: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: schedulerSubsystem,
				Name:      "hosts_privileged",
				Help:      "Hosts the scheduler currently holds privilege on",
			},
		),

		PhaseTransitionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: schedulerSubsystem,
				Name:      "phase_transitions_total",
				Help:      "Target state machine transitions by destination phase",
			},
			[]string{"phase"},
		),

		ConflictState: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: crewSubsystem,
				Name:      "conflict_state",
				Help:      "Synchronizer state: 0 peacetime, 1 armed, 2 in_conflict, 3 disabled",
			},
		),

		RosterSize: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: crewSubsystem,
				Name:      "roster_size",
				Help:      "Current crew roster size",
			},
		),
	}
	return DefaultMetrics
}
