// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package crew

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/AleutianAI/AleutianSwarm/services/swarm/datatypes"
	"github.com/AleutianAI/AleutianSwarm/services/swarm/observability"
	"github.com/AleutianAI/AleutianSwarm/services/swarm/world"
)

// =============================================================================
// Roster Management
// =============================================================================

// FundsSource reads the actor's current funds. Satisfied by world.TargetOps.
type FundsSource interface {
	Funds(ctx context.Context) (float64, error)
}

// EquipmentItem is one purchasable catalog entry.
type EquipmentItem struct {
	Name  string
	Class datatypes.EquipmentClass
}

// ManagerConfig tunes roster management.
type ManagerConfig struct {
	// RosterTarget is the roster size to recruit toward.
	RosterTarget int

	// RecruitNames are candidate member names, tried in order.
	RecruitNames []string

	// AscendRespect is the respect level at which a member ascends.
	AscendRespect float64

	// TrainStatFloor: members whose combat aggregate is below this train;
	// at or above it they earn.
	TrainStatFloor float64

	// EquipFundsFloor: equipment is only purchased while funds stay above
	// this reserve.
	EquipFundsFloor float64

	// Catalog is the equipment purchase order, cheapest-first by
	// convention.
	Catalog []EquipmentItem
}

// Manager runs the steady-state roster loop: recruit to the target size,
// point members at training or earning, buy equipment out of surplus funds,
// and ascend members whose respect has peaked.
//
// # Description
//
// The Manager defers to the conflict gate: while the synchronizer is Armed
// it moves combat-capable members onto the conflict task instead of their
// normal duty, and while InConflict it leaves assignments alone entirely so
// the tick boundary sees a stable roster.
//
// # Thread Safety
//
// Update must run from a single goroutine. SetConfig may be called
// concurrently (config hot reload); the new configuration takes effect on
// the next pass.
type Manager struct {
	crew    world.CrewOps
	funds   FundsSource
	metrics *observability.SchedulerMetrics

	mu  sync.Mutex
	cfg ManagerConfig
}

// NewManager returns a Manager. Metrics may be nil.
func NewManager(crew world.CrewOps, funds FundsSource, cfg ManagerConfig, metrics *observability.SchedulerMetrics) *Manager {
	return &Manager{
		crew:    crew,
		funds:   funds,
		cfg:     cfg,
		metrics: metrics,
	}
}

// SetConfig replaces the management configuration, effective next pass.
func (m *Manager) SetConfig(cfg ManagerConfig) {
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
}

// config returns a snapshot of the current configuration.
func (m *Manager) config() ManagerConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// Update runs one management pass under the given conflict state.
func (m *Manager) Update(ctx context.Context, state ConflictState, combatFloor float64) error {
	cfg := m.config()

	roster, err := m.recruit(ctx, cfg)
	if err != nil {
		return err
	}
	if m.metrics != nil {
		m.metrics.RosterSize.Set(float64(len(roster)))
	}

	if state == InConflict {
		// assignments are frozen until the tick resolves
		return nil
	}

	for _, name := range roster {
		member, err := m.crew.Member(ctx, name)
		if err != nil {
			return fmt.Errorf("member %q: %w", name, err)
		}
		if err := m.direct(ctx, member, state, combatFloor, cfg); err != nil {
			return err
		}
	}
	return m.equip(ctx, roster, cfg)
}

// recruit fills the roster toward the target and returns the resulting
// member list.
func (m *Manager) recruit(ctx context.Context, cfg ManagerConfig) ([]string, error) {
	roster, err := m.crew.Roster(ctx)
	if err != nil {
		return nil, fmt.Errorf("roster: %w", err)
	}
	if len(roster) >= cfg.RosterTarget {
		return roster, nil
	}

	current := make(map[string]struct{}, len(roster))
	for _, name := range roster {
		current[name] = struct{}{}
	}
	for _, name := range cfg.RecruitNames {
		if len(roster) >= cfg.RosterTarget {
			break
		}
		if _, ok := current[name]; ok {
			continue
		}
		ok, err := m.crew.Recruit(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("recruit %q: %w", name, err)
		}
		if !ok {
			// recruitment requirements not met yet; try again next pass
			break
		}
		slog.Info("recruited member", "name", name)
		roster = append(roster, name)
		current[name] = struct{}{}
	}
	return roster, nil
}

// direct assigns one member its duty for this pass.
func (m *Manager) direct(ctx context.Context, member datatypes.CrewMember, state ConflictState, combatFloor float64, cfg ManagerConfig) error {
	// Armed: combat-capable members commit to the conflict task so the
	// synchronizer can enter InConflict before the boundary.
	if state == Armed && member.Stats.Combat() >= combatFloor {
		if member.Task == datatypes.TaskConflict {
			return nil
		}
		return m.assign(ctx, member.Name, datatypes.TaskConflict)
	}

	if member.Respect >= cfg.AscendRespect {
		ok, err := m.crew.Ascend(ctx, member.Name)
		if err != nil {
			return fmt.Errorf("ascend %q: %w", member.Name, err)
		}
		if ok {
			slog.Info("member ascended", "name", member.Name)
			return m.assign(ctx, member.Name, datatypes.TaskTrain)
		}
	}

	task := datatypes.TaskEarn
	if member.Stats.Combat() < cfg.TrainStatFloor {
		task = datatypes.TaskTrain
	}
	if member.Task == task {
		return nil
	}
	return m.assign(ctx, member.Name, task)
}

// equip buys, per member, the first catalog item they lack, while funds
// stay above the reserve.
func (m *Manager) equip(ctx context.Context, roster []string, cfg ManagerConfig) error {
	if len(cfg.Catalog) == 0 {
		return nil
	}
	funds, err := m.funds.Funds(ctx)
	if err != nil {
		return fmt.Errorf("funds: %w", err)
	}
	if funds <= cfg.EquipFundsFloor {
		return nil
	}

	for _, name := range roster {
		member, err := m.crew.Member(ctx, name)
		if err != nil {
			return fmt.Errorf("member %q: %w", name, err)
		}
		for _, item := range cfg.Catalog {
			if member.Owns(item.Class, item.Name) {
				continue
			}
			ok, err := m.crew.PurchaseEquipment(ctx, name, item.Name, item.Class)
			if err != nil {
				return fmt.Errorf("purchase %q for %q: %w", item.Name, name, err)
			}
			if ok {
				slog.Debug("equipment purchased",
					"member", name,
					"item", item.Name,
					"class", item.Class.String(),
				)
			}
			// one attempt per member per pass, bought or not
			break
		}
	}
	return nil
}

// assign wraps AssignTask with uniform error context.
func (m *Manager) assign(ctx context.Context, member string, task datatypes.MemberTask) error {
	if err := m.crew.AssignTask(ctx, member, task); err != nil {
		return fmt.Errorf("assign %q: %w", member, err)
	}
	return nil
}
