// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package world

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/AleutianAI/AleutianSwarm/services/swarm/datatypes"
)

// =============================================================================
// Simulated World
// =============================================================================

// Sim is a deterministic in-memory World used by unit tests and the
// `swarm simulate` command.
//
// # Description
//
// Sim advances on its own virtual clock, never the wall clock: Advance moves
// time forward and settles any launched batches whose end time has passed,
// applying their effects to target levels and freeing host capacity. This
// makes every scheduling scenario reproducible.
//
// # Thread Safety
//
// All methods are safe for concurrent use; a single mutex guards the whole
// model, which is fine at simulation scale.
type Sim struct {
	mu sync.Mutex

	now time.Time

	adj     map[string][]string
	hosts   map[string]*simHost
	tools   map[UnlockOp]bool
	targets map[string]*simTarget
	procs   map[Handle]*simProc
	seq     int

	funds float64

	members    map[string]*datatypes.CrewMember
	rosterCap  int
	ascendBar  float64
	rivals     map[string]datatypes.RivalInfo
	territory  float64
	winChances map[string]float64
}

type simHost struct {
	max        float64
	used       float64
	privileged bool
	unlocked   map[UnlockOp]bool
	required   int
	purchased  bool
}

type simTarget struct {
	wealth     float64
	wealthMax  float64
	penalty    float64
	penaltyMin float64

	// yield is the wealth fraction one extract slot skims.
	yield float64

	// baseDuration scales all action durations for this target.
	baseDuration time.Duration
}

type simProc struct {
	unit   datatypes.ExecutionUnit
	host   string
	slots  int
	target string
	endAt  time.Time
}

// NewSim returns an empty simulation anchored at a fixed epoch.
func NewSim() *Sim {
	return &Sim{
		now:        time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		adj:        make(map[string][]string),
		hosts:      make(map[string]*simHost),
		tools:      make(map[UnlockOp]bool),
		targets:    make(map[string]*simTarget),
		procs:      make(map[Handle]*simProc),
		members:    make(map[string]*datatypes.CrewMember),
		rosterCap:  6,
		ascendBar:  100,
		rivals:     make(map[string]datatypes.RivalInfo),
		winChances: make(map[string]float64),
	}
}

// NewDemo returns a small populated simulation: a six-node graph behind the
// "home" root, two targets of opposite archetypes, two unlock tools held,
// and a two-rival territory map. Used by `swarm simulate` and as the
// default fixture in engine tests.
func NewDemo() *Sim {
	s := NewSim()

	s.AddHost("home", 64, 0, true, 0, true)
	s.AddHost("relay-alpha", 16, 0, false, 0, false)
	s.AddHost("relay-beta", 8, 0, false, 1, false)
	s.AddHost("node-gamma", 4, 0, false, 1, false)
	s.AddHost("vault-core", 32, 0, false, 4, false)
	s.AddHost("deadend", 0, 0, false, 0, false)
	s.AddHost("owned-1", 128, 0, true, 0, true)

	s.Link("home", "relay-alpha")
	s.Link("home", "relay-beta")
	s.Link("relay-alpha", "node-gamma")
	s.Link("relay-beta", "vault-core")
	s.Link("relay-beta", "deadend")
	s.Link("home", "owned-1")

	s.GrantTool(UnlockAuthBypass)
	s.GrantTool(UnlockRelayExploit)

	s.AddTarget("ledger-a", 2_000, 10_000, 8, 2, 0.002, 20*time.Second)
	s.AddTarget("vault-b", 40_000, 50_000, 60, 10, 0.001, 45*time.Second)

	s.SetTerritory(0.4)
	s.AddRival("red-claw", 120, 0.3, 0.8)
	s.AddRival("night-sect", 90, 0.3, 0.85)

	s.funds = 1_000
	return s
}

// =============================================================================
// Builder Methods
// =============================================================================

// AddHost registers a host. Purchased hosts are skipped by discovery.
func (s *Sim) AddHost(name string, maxCap, used float64, privileged bool, unlocksRequired int, purchased bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hosts[name] = &simHost{
		max:        maxCap,
		used:       used,
		privileged: privileged,
		unlocked:   make(map[UnlockOp]bool),
		required:   unlocksRequired,
		purchased:  purchased,
	}
}

// Link adds a bidirectional adjacency edge between two nodes.
func (s *Sim) Link(a, b string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adj[a] = append(s.adj[a], b)
	s.adj[b] = append(s.adj[b], a)
}

// GrantTool makes an unlock operation available to the actor.
func (s *Sim) GrantTool(op UnlockOp) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tools[op] = true
}

// AddTarget registers a target with its level bounds and tuning.
func (s *Sim) AddTarget(name string, wealth, wealthMax, penalty, penaltyMin, yield float64, baseDuration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targets[name] = &simTarget{
		wealth:       wealth,
		wealthMax:    wealthMax,
		penalty:      penalty,
		penaltyMin:   penaltyMin,
		yield:        yield,
		baseDuration: baseDuration,
	}
}

// AddRival registers a rival pool with its observable state and the win
// chance the actor's crew holds against it.
func (s *Sim) AddRival(name string, power, territory, winChance float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rivals[name] = datatypes.RivalInfo{Power: power, Territory: territory}
	s.winChances[name] = winChance
}

// SetTerritory sets the crew's own territorial share.
func (s *Sim) SetTerritory(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.territory = v
}

// SetWinChance overrides the win chance against one rival.
func (s *Sim) SetWinChance(rival string, v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.winChances[rival] = v
}

// SetRosterCap bounds recruitment.
func (s *Sim) SetRosterCap(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rosterCap = n
}

// SetAscendBar sets the respect a member needs before Ascend succeeds.
func (s *Sim) SetAscendBar(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ascendBar = v
}

// SetFunds sets the actor's funds.
func (s *Sim) SetFunds(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.funds = v
}

// AddRespect grants respect to a member; test helper for ascension paths.
func (s *Sim) AddRespect(member string, v float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[member]
	if !ok {
		return fmt.Errorf("add respect %q: %w", member, ErrUnknownMember)
	}
	m.Respect += v
	return nil
}

// =============================================================================
// Clock
// =============================================================================

// Now returns the current virtual time.
func (s *Sim) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Advance moves the virtual clock forward and settles every batch whose end
// time has passed, applying its effects.
func (s *Sim) Advance(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = s.now.Add(d)
	s.settleLocked()
}

// AdvanceTick perturbs every rival's observable power, which is how the
// external environment signals a new tick to the synchronizer.
func (s *Sim) AdvanceTick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, info := range s.rivals {
		info.Power += 1
		s.rivals[name] = info
	}
}

// settleLocked completes finished batches. Caller holds s.mu.
func (s *Sim) settleLocked() {
	for h, p := range s.procs {
		if p.endAt.After(s.now) {
			continue
		}
		if host, ok := s.hosts[p.host]; ok {
			host.used -= p.unit.Cost * float64(p.slots)
			if host.used < 0 {
				host.used = 0
			}
		}
		if t, ok := s.targets[p.target]; ok {
			s.applyEffectLocked(t, p)
		}
		delete(s.procs, h)
	}
}

// applyEffectLocked mutates a target for one completed batch.
// Caller holds s.mu.
func (s *Sim) applyEffectLocked(t *simTarget, p *simProc) {
	n := float64(p.slots)
	switch p.unit.Kind {
	case datatypes.ActionExtract:
		frac := t.yield * n
		if frac > 1 {
			frac = 1
		}
		amount := t.wealth * frac
		t.wealth -= amount
		t.penalty += 0.02 * n
		s.funds += amount
	case datatypes.ActionReplenish:
		t.wealth *= 1 + 0.03*n
		if t.wealth > t.wealthMax {
			t.wealth = t.wealthMax
		}
		t.penalty += 0.04 * n
	case datatypes.ActionMitigate:
		t.penalty -= 0.5 * n
		if t.penalty < t.penaltyMin {
			t.penalty = t.penaltyMin
		}
	}
}

// =============================================================================
// HostOps
// =============================================================================

// Scan returns the adjacency list of a node in insertion order.
func (s *Sim) Scan(_ context.Context, node string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hosts[node]; !ok {
		return nil, fmt.Errorf("scan %q: %w", node, ErrUnknownHost)
	}
	out := make([]string, len(s.adj[node]))
	copy(out, s.adj[node])
	return out, nil
}

// Host returns a fresh snapshot of the named host.
func (s *Sim) Host(_ context.Context, name string) (datatypes.Host, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hosts[name]
	if !ok {
		return datatypes.Host{}, fmt.Errorf("host %q: %w", name, ErrUnknownHost)
	}
	remaining := h.required - len(h.unlocked)
	if remaining < 0 {
		remaining = 0
	}
	return datatypes.Host{
		Name:            name,
		MaxCapacity:     h.max,
		UsedCapacity:    h.used,
		Privileged:      h.privileged,
		UnlocksRequired: remaining,
		Purchased:       h.purchased,
	}, nil
}

// HasPrivilege reports root access on the host.
func (s *Sim) HasPrivilege(_ context.Context, host string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hosts[host]
	if !ok {
		return false, fmt.Errorf("has privilege %q: %w", host, ErrUnknownHost)
	}
	return h.privileged, nil
}

// Unlock applies one unlock operation if the actor holds the tool.
func (s *Sim) Unlock(_ context.Context, host string, op UnlockOp) (UnlockResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hosts[host]
	if !ok {
		return Unavailable, fmt.Errorf("unlock %q: %w", host, ErrUnknownHost)
	}
	if !s.tools[op] {
		return Unavailable, nil
	}
	h.unlocked[op] = true
	return Unlocked, nil
}

// Escalate grants privilege if enough unlock prerequisites are satisfied.
func (s *Sim) Escalate(_ context.Context, host string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hosts[host]
	if !ok {
		return false, fmt.Errorf("escalate %q: %w", host, ErrUnknownHost)
	}
	if h.privileged {
		return true, nil
	}
	if len(h.unlocked) >= h.required {
		h.privileged = true
	}
	return h.privileged, nil
}

// =============================================================================
// ExecOps
// =============================================================================

// Launch consumes host capacity and schedules the batch's completion on the
// virtual clock. Returns ok=false when the host cannot fit the batch, which
// models capacity evaporating between planning and launch.
func (s *Sim) Launch(_ context.Context, unit datatypes.ExecutionUnit, host string, slots int, target string) (Handle, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hosts[host]
	if !ok {
		return "", false, fmt.Errorf("launch on %q: %w", host, ErrUnknownHost)
	}
	if _, ok := s.targets[target]; !ok {
		return "", false, fmt.Errorf("launch against %q: %w", target, ErrUnknownTarget)
	}
	if slots <= 0 || !h.privileged {
		return "", false, nil
	}
	need := unit.Cost * float64(slots)
	if h.max-h.used < need {
		return "", false, nil
	}
	h.used += need
	s.seq++
	handle := Handle(fmt.Sprintf("proc-%d", s.seq))
	s.procs[handle] = &simProc{
		unit:   unit,
		host:   host,
		slots:  slots,
		target: target,
		endAt:  s.now.Add(unit.Duration),
	}
	return handle, true, nil
}

// IsRunning settles finished batches, then reports whether the handle is
// still live. Unknown handles report not-running.
func (s *Sim) IsRunning(_ context.Context, h Handle) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settleLocked()
	_, ok := s.procs[h]
	return ok, nil
}

// =============================================================================
// TargetOps
// =============================================================================

// TargetState returns a fresh wealth/penalty snapshot.
func (s *Sim) TargetState(_ context.Context, target string) (datatypes.TargetState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.targets[target]
	if !ok {
		return datatypes.TargetState{}, fmt.Errorf("target state %q: %w", target, ErrUnknownTarget)
	}
	return datatypes.TargetState{
		Wealth:     t.wealth,
		WealthMax:  t.wealthMax,
		Penalty:    t.penalty,
		PenaltyMin: t.penaltyMin,
	}, nil
}

// ActionDuration scales the target's base duration per action kind.
// Mitigation is the slowest action and extraction the fastest, matching the
// ratios the scheduler was tuned against.
func (s *Sim) ActionDuration(_ context.Context, kind datatypes.ActionKind, target string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.targets[target]
	if !ok {
		return 0, fmt.Errorf("action duration %q: %w", target, ErrUnknownTarget)
	}
	switch kind {
	case datatypes.ActionExtract:
		return t.baseDuration, nil
	case datatypes.ActionReplenish:
		return t.baseDuration * 16 / 5, nil
	case datatypes.ActionMitigate:
		return t.baseDuration * 4, nil
	default:
		return 0, fmt.Errorf("action duration: invalid kind %d", kind)
	}
}

// ExtractYield returns the wealth fraction one extract slot skims.
func (s *Sim) ExtractYield(_ context.Context, target string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.targets[target]
	if !ok {
		return 0, fmt.Errorf("extract yield %q: %w", target, ErrUnknownTarget)
	}
	return t.yield, nil
}

// UnlocksHeld counts the unlock tools the actor holds.
func (s *Sim) UnlocksHeld(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, held := range s.tools {
		if held {
			n++
		}
	}
	return n, nil
}

// Funds returns the actor's current funds.
func (s *Sim) Funds(_ context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.funds, nil
}

// =============================================================================
// CrewOps
// =============================================================================

// Roster returns member names in recruitment order.
func (s *Sim) Roster(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.members))
	for name := range s.members {
		names = append(names, name)
	}
	// map iteration order is random; sort for deterministic rosters
	sort.Strings(names)
	return names, nil
}

// Member returns a deep-copied snapshot of the named member.
func (s *Sim) Member(_ context.Context, name string) (datatypes.CrewMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[name]
	if !ok {
		return datatypes.CrewMember{}, fmt.Errorf("member %q: %w", name, ErrUnknownMember)
	}
	return copyMember(*m), nil
}

// Recruit adds a member when the roster is below its bound.
func (s *Sim) Recruit(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.members) >= s.rosterCap {
		return false, nil
	}
	if _, exists := s.members[name]; exists {
		return false, nil
	}
	role := datatypes.Role(len(s.members) % 3)
	s.members[name] = &datatypes.CrewMember{
		Name:          name,
		Role:          role,
		Task:          datatypes.TaskUnassigned,
		AscensionMult: 1.0,
		Weapons:       make(map[string]struct{}),
		Armor:         make(map[string]struct{}),
		Vehicles:      make(map[string]struct{}),
		Augments:      make(map[string]struct{}),
	}
	return true, nil
}

// AssignTask sets the member's current task and applies the sim's coarse
// training/earning model for it.
func (s *Sim) AssignTask(_ context.Context, member string, task datatypes.MemberTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[member]
	if !ok {
		return fmt.Errorf("assign task %q: %w", member, ErrUnknownMember)
	}
	if !task.Valid() {
		return fmt.Errorf("assign task %q: invalid task %d", member, task)
	}
	m.Task = task
	switch task {
	case datatypes.TaskTrain:
		m.Stats.Muscle += 2 * m.AscensionMult
		m.Stats.Reflexes += 2 * m.AscensionMult
		m.Stats.Guile += 1 * m.AscensionMult
		m.Stats.Resolve += 1 * m.AscensionMult
	case datatypes.TaskEarn:
		s.funds += 50 * m.AscensionMult
		m.Respect += 2 * m.AscensionMult
	}
	return nil
}

// Ascend resets a member who has earned enough respect, granting the
// persistent multiplier. Augments survive; the other equipment sets do not.
func (s *Sim) Ascend(_ context.Context, member string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[member]
	if !ok {
		return false, fmt.Errorf("ascend %q: %w", member, ErrUnknownMember)
	}
	if m.Respect < s.ascendBar {
		return false, nil
	}
	m.Stats = datatypes.MemberStats{}
	m.Respect = 0
	m.Weapons = make(map[string]struct{})
	m.Armor = make(map[string]struct{})
	m.Vehicles = make(map[string]struct{})
	m.AscensionMult *= 1.1
	m.Task = datatypes.TaskUnassigned
	return true, nil
}

// PurchaseEquipment buys an item when funds allow and the member does not
// already own it. Every item in the demo economy costs the same.
func (s *Sim) PurchaseEquipment(_ context.Context, member, item string, class datatypes.EquipmentClass) (bool, error) {
	const itemCost = 500

	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[member]
	if !ok {
		return false, fmt.Errorf("purchase for %q: %w", member, ErrUnknownMember)
	}
	var set map[string]struct{}
	switch class {
	case datatypes.EquipWeapon:
		set = m.Weapons
	case datatypes.EquipArmor:
		set = m.Armor
	case datatypes.EquipVehicle:
		set = m.Vehicles
	case datatypes.EquipAugment:
		set = m.Augments
	default:
		return false, fmt.Errorf("purchase for %q: invalid class %d", member, class)
	}
	if _, owned := set[item]; owned {
		return false, nil
	}
	if s.funds < itemCost {
		return false, nil
	}
	s.funds -= itemCost
	set[item] = struct{}{}
	return true, nil
}

// RivalInfo returns a copy of every rival's observable state.
func (s *Sim) RivalInfo(_ context.Context) (map[string]datatypes.RivalInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]datatypes.RivalInfo, len(s.rivals))
	for name, info := range s.rivals {
		out[name] = info
	}
	return out, nil
}

// Territory returns the crew's territorial share.
func (s *Sim) Territory(_ context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.territory, nil
}

// WinChance returns the configured win chance against a rival.
func (s *Sim) WinChance(_ context.Context, rival string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chance, ok := s.winChances[rival]
	if !ok {
		return 0, fmt.Errorf("win chance: unknown rival %q", rival)
	}
	return chance, nil
}

// =============================================================================
// Helpers
// =============================================================================

// copyMember deep-copies the equipment sets so callers cannot mutate the
// sim's state through a snapshot.
func copyMember(m datatypes.CrewMember) datatypes.CrewMember {
	m.Weapons = copySet(m.Weapons)
	m.Armor = copySet(m.Armor)
	m.Vehicles = copySet(m.Vehicles)
	m.Augments = copySet(m.Augments)
	return m
}

func copySet(in map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}

// Sim implements the full World interface.
var _ World = (*Sim)(nil)
