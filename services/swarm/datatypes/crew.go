// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

// =============================================================================
// Crew Roles
// =============================================================================

// Role is a crew member's fixed specialization.
//
// The enumeration is closed; assignment logic switches exhaustively over it.
type Role int

const (
	// RoleEnforcer members carry the conflict load; their combat stats gate
	// entry into turf conflict.
	RoleEnforcer Role = iota

	// RoleInfiltrator members favor stealth work and earning tasks.
	RoleInfiltrator

	// RoleFixer members handle logistics and recovery duty.
	RoleFixer
)

// String returns the name of the role.
func (r Role) String() string {
	switch r {
	case RoleEnforcer:
		return "enforcer"
	case RoleInfiltrator:
		return "infiltrator"
	case RoleFixer:
		return "fixer"
	default:
		return "unknown"
	}
}

// =============================================================================
// Member Tasks
// =============================================================================

// MemberTask is the single task a crew member is currently assigned to.
// A member's task is always exactly one value from this enumeration.
type MemberTask int

const (
	// TaskUnassigned is the zero value for freshly recruited members.
	TaskUnassigned MemberTask = iota

	// TaskTrain builds the member's trainable stats.
	TaskTrain

	// TaskEarn generates funds and respect.
	TaskEarn

	// TaskPatrol is the neutral duty combatants return to after a conflict
	// tick resolves.
	TaskPatrol

	// TaskConflict is the turf-conflict task. All combat-capable members
	// must hold it for the synchronizer to consider the crew in conflict.
	TaskConflict

	// TaskRecover restores a member after sustained conflict.
	TaskRecover
)

// String returns the name of the task.
func (t MemberTask) String() string {
	switch t {
	case TaskUnassigned:
		return "unassigned"
	case TaskTrain:
		return "train"
	case TaskEarn:
		return "earn"
	case TaskPatrol:
		return "patrol"
	case TaskConflict:
		return "conflict"
	case TaskRecover:
		return "recover"
	default:
		return "unknown"
	}
}

// Valid reports whether t is one of the defined member tasks.
func (t MemberTask) Valid() bool {
	return t >= TaskUnassigned && t <= TaskRecover
}

// =============================================================================
// Equipment
// =============================================================================

// EquipmentClass partitions purchasable equipment into its membership sets.
type EquipmentClass int

const (
	// EquipWeapon items are cleared by ascension.
	EquipWeapon EquipmentClass = iota

	// EquipArmor items are cleared by ascension.
	EquipArmor

	// EquipVehicle items are cleared by ascension.
	EquipVehicle

	// EquipAugment items persist through ascension.
	EquipAugment
)

// String returns the name of the equipment class.
func (c EquipmentClass) String() string {
	switch c {
	case EquipWeapon:
		return "weapon"
	case EquipArmor:
		return "armor"
	case EquipVehicle:
		return "vehicle"
	case EquipAugment:
		return "augment"
	default:
		return "unknown"
	}
}

// =============================================================================
// Crew Member
// =============================================================================

// MemberStats are the four trainable stat values of a crew member.
type MemberStats struct {
	Muscle   float64
	Reflexes float64
	Guile    float64
	Resolve  float64
}

// Combat returns the combat-relevant aggregate used to decide whether a
// member is conflict-capable.
func (s MemberStats) Combat() float64 {
	return (s.Muscle + s.Reflexes) / 2
}

// CrewMember is a snapshot of one roster member.
//
// # Description
//
// Equipment sets only grow within the model: purchases are never reversed
// individually. The sole wholesale reset is Ascend, which clears stats,
// respect, and the non-persistent sets (weapons, armor, vehicles) together
// while augments and the ascension multiplier persist.
//
// # Lifecycle
//
// Created by recruitment (bounded by the roster target), ascended as a
// deliberate explicit operation, never deleted within scope.
type CrewMember struct {
	Name    string
	Role    Role
	Task    MemberTask
	Stats   MemberStats
	Respect float64

	// AscensionMult is the persistent multiplier accumulated across
	// ascensions. Starts at 1.0.
	AscensionMult float64

	// Equipment membership sets, keyed by item name.
	Weapons  map[string]struct{}
	Armor    map[string]struct{}
	Vehicles map[string]struct{}
	Augments map[string]struct{}
}

// Owns reports whether the member owns the named item in the given class.
func (m CrewMember) Owns(class EquipmentClass, item string) bool {
	set := m.equipmentSet(class)
	if set == nil {
		return false
	}
	_, ok := set[item]
	return ok
}

// equipmentSet maps a class to the member's backing set.
func (m CrewMember) equipmentSet(class EquipmentClass) map[string]struct{} {
	switch class {
	case EquipWeapon:
		return m.Weapons
	case EquipArmor:
		return m.Armor
	case EquipVehicle:
		return m.Vehicles
	case EquipAugment:
		return m.Augments
	default:
		return nil
	}
}
