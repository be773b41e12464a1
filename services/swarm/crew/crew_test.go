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

	"github.com/AleutianAI/AleutianSwarm/services/swarm/datatypes"
)

// fakeCrew is a scripted CrewOps (plus funds) giving tests full control
// over member stats, tasks, and rival state.
type fakeCrew struct {
	members    map[string]*datatypes.CrewMember
	order      []string
	rosterCap  int
	rivals     map[string]datatypes.RivalInfo
	territory  float64
	winChances map[string]float64
	funds      float64
	ascendBar  float64

	assigned  []string // "name:task" log of AssignTask calls
	purchased []string // "name:item" log of successful purchases
}

func newFakeCrew() *fakeCrew {
	return &fakeCrew{
		members:    make(map[string]*datatypes.CrewMember),
		rosterCap:  12,
		rivals:     make(map[string]datatypes.RivalInfo),
		winChances: make(map[string]float64),
		ascendBar:  1_000,
	}
}

// addMember seeds a member whose muscle and reflexes both equal combat.
func (f *fakeCrew) addMember(name string, combat float64, task datatypes.MemberTask) *datatypes.CrewMember {
	m := &datatypes.CrewMember{
		Name:          name,
		Task:          task,
		Stats:         datatypes.MemberStats{Muscle: combat, Reflexes: combat},
		AscensionMult: 1.0,
		Weapons:       make(map[string]struct{}),
		Armor:         make(map[string]struct{}),
		Vehicles:      make(map[string]struct{}),
		Augments:      make(map[string]struct{}),
	}
	f.members[name] = m
	f.order = append(f.order, name)
	return m
}

func (f *fakeCrew) addRival(name string, power, winChance float64) {
	f.rivals[name] = datatypes.RivalInfo{Power: power, Territory: 0.3}
	f.winChances[name] = winChance
}

func (f *fakeCrew) bumpRival(name string) {
	info := f.rivals[name]
	info.Power++
	f.rivals[name] = info
}

func (f *fakeCrew) Roster(context.Context) ([]string, error) {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out, nil
}

func (f *fakeCrew) Member(_ context.Context, name string) (datatypes.CrewMember, error) {
	m, ok := f.members[name]
	if !ok {
		return datatypes.CrewMember{}, fmt.Errorf("no member %q", name)
	}
	return *m, nil
}

func (f *fakeCrew) Recruit(_ context.Context, name string) (bool, error) {
	if len(f.order) >= f.rosterCap {
		return false, nil
	}
	if _, ok := f.members[name]; ok {
		return false, nil
	}
	f.addMember(name, 0, datatypes.TaskUnassigned)
	return true, nil
}

func (f *fakeCrew) AssignTask(_ context.Context, member string, task datatypes.MemberTask) error {
	m, ok := f.members[member]
	if !ok {
		return fmt.Errorf("no member %q", member)
	}
	m.Task = task
	f.assigned = append(f.assigned, fmt.Sprintf("%s:%s", member, task))
	return nil
}

func (f *fakeCrew) Ascend(_ context.Context, member string) (bool, error) {
	m, ok := f.members[member]
	if !ok {
		return false, fmt.Errorf("no member %q", member)
	}
	if m.Respect < f.ascendBar {
		return false, nil
	}
	m.Respect = 0
	m.Stats = datatypes.MemberStats{}
	m.AscensionMult *= 1.1
	return true, nil
}

func (f *fakeCrew) PurchaseEquipment(_ context.Context, member, item string, class datatypes.EquipmentClass) (bool, error) {
	const itemCost = 500
	m, ok := f.members[member]
	if !ok {
		return false, fmt.Errorf("no member %q", member)
	}
	if m.Owns(class, item) || f.funds < itemCost {
		return false, nil
	}
	f.funds -= itemCost
	switch class {
	case datatypes.EquipWeapon:
		m.Weapons[item] = struct{}{}
	case datatypes.EquipArmor:
		m.Armor[item] = struct{}{}
	case datatypes.EquipVehicle:
		m.Vehicles[item] = struct{}{}
	case datatypes.EquipAugment:
		m.Augments[item] = struct{}{}
	}
	f.purchased = append(f.purchased, fmt.Sprintf("%s:%s", member, item))
	return true, nil
}

func (f *fakeCrew) RivalInfo(context.Context) (map[string]datatypes.RivalInfo, error) {
	out := make(map[string]datatypes.RivalInfo, len(f.rivals))
	for k, v := range f.rivals {
		out[k] = v
	}
	return out, nil
}

func (f *fakeCrew) Territory(context.Context) (float64, error) {
	return f.territory, nil
}

func (f *fakeCrew) WinChance(_ context.Context, rival string) (float64, error) {
	chance, ok := f.winChances[rival]
	if !ok {
		return 0, fmt.Errorf("no rival %q", rival)
	}
	return chance, nil
}

func (f *fakeCrew) Funds(context.Context) (float64, error) {
	return f.funds, nil
}
