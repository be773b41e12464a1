// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package journal persists a record of every dispatched batch so the status
// API can answer "what has the scheduler been doing" across restarts.
package journal

import (
	"context"
	"sync"
	"time"
)

// Record is one journaled dispatch.
type Record struct {
	// BatchID is the dispatcher-assigned identifier.
	BatchID string `json:"batch_id"`

	// Time is when the dispatch completed.
	Time time.Time `json:"time"`

	// Target is the object of the action.
	Target string `json:"target"`

	// Action is the unit kind, in string form.
	Action string `json:"action"`

	// Hosts is the number of hosts that accepted a launch.
	Hosts int `json:"hosts"`

	// Slots is the total slot count launched.
	Slots int `json:"slots"`

	// Demand is the slot count the planner asked for. Zero for unbounded
	// preparation dispatches.
	Demand int `json:"demand"`

	// Elapsed is launch-to-completion wall time.
	Elapsed time.Duration `json:"elapsed"`
}

// Journal appends and reads dispatch records.
type Journal interface {
	// Append persists one record.
	Append(ctx context.Context, rec Record) error

	// Recent returns up to n records, newest first.
	Recent(ctx context.Context, n int) ([]Record, error)

	// Close releases backing resources.
	Close() error
}

// =============================================================================
// In-Memory Journal
// =============================================================================

// Memory is a bounded in-memory Journal for tests and journal-less runs.
type Memory struct {
	mu      sync.Mutex
	records []Record
	limit   int
}

// NewMemory returns a Memory journal keeping at most limit records.
func NewMemory(limit int) *Memory {
	if limit <= 0 {
		limit = 256
	}
	return &Memory{limit: limit}
}

// Append stores the record, evicting the oldest past the limit.
func (m *Memory) Append(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	if len(m.records) > m.limit {
		m.records = m.records[len(m.records)-m.limit:]
	}
	return nil
}

// Recent returns up to n records, newest first.
func (m *Memory) Recent(_ context.Context, n int) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > len(m.records) {
		n = len(m.records)
	}
	out := make([]Record, 0, n)
	for i := len(m.records) - 1; i >= len(m.records)-n; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

var _ Journal = (*Memory)(nil)
