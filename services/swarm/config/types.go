// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads, validates, and watches the swarm service
// configuration.
package config

import "time"

// Config is the root service configuration.
type Config struct {
	// Server configures the HTTP surface.
	Server ServerConfig `yaml:"server"`

	// Scheduler configures the batch scheduling loop.
	Scheduler SchedulerConfig `yaml:"scheduler"`

	// Crew configures roster management and the conflict gate.
	Crew CrewConfig `yaml:"crew"`

	// Targets is the ordered target preference list, best-first.
	Targets []TargetConfig `yaml:"targets" validate:"min=1,dive"`

	// Journal configures the dispatch journal.
	Journal JournalConfig `yaml:"journal"`

	// Tracing configures optional OTLP trace export.
	Tracing TracingConfig `yaml:"tracing"`
}

type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr" validate:"required"`
}

type SchedulerConfig struct {
	// HomeHost is the controller's own host; it joins the pool but keeps
	// HomeReserve capacity free.
	HomeHost    string  `yaml:"home_host" validate:"required"`
	HomeReserve float64 `yaml:"home_reserve" validate:"gte=0"`

	// Per-action capacity cost of one slot.
	ExtractCost   float64 `yaml:"extract_cost" validate:"gt=0"`
	ReplenishCost float64 `yaml:"replenish_cost" validate:"gt=0"`
	MitigateCost  float64 `yaml:"mitigate_cost" validate:"gt=0"`

	// PollInterval is the coarse completion-polling period.
	PollInterval time.Duration `yaml:"poll_interval" validate:"gt=0"`

	// IdleWait is the loop backoff when no target is eligible or nothing
	// launched.
	IdleWait time.Duration `yaml:"idle_wait" validate:"gt=0"`
}

type CrewConfig struct {
	RosterTarget   int           `yaml:"roster_target" validate:"gte=0"`
	RecruitNames   []string      `yaml:"recruit_names"`
	AscendRespect  float64       `yaml:"ascend_respect" validate:"gte=0"`
	TrainStatFloor float64       `yaml:"train_stat_floor" validate:"gte=0"`
	CombatFloor    float64       `yaml:"combat_floor" validate:"gte=0"`
	WinThreshold   float64       `yaml:"win_threshold" validate:"gte=0,lte=1"`
	TickLength     time.Duration `yaml:"tick_length" validate:"gt=0"`
	SafetyMargin   time.Duration `yaml:"safety_margin" validate:"gte=0"`
	UpdateInterval time.Duration `yaml:"update_interval" validate:"gt=0"`

	// EquipFundsFloor is the funds reserve below which no equipment is
	// purchased.
	EquipFundsFloor float64           `yaml:"equip_funds_floor" validate:"gte=0"`
	Equipment       []EquipmentConfig `yaml:"equipment" validate:"dive"`
}

type EquipmentConfig struct {
	Name string `yaml:"name" validate:"required"`
	// Class is one of weapon, armor, vehicle, augment.
	Class string `yaml:"class" validate:"oneof=weapon armor vehicle augment"`
}

type TargetConfig struct {
	Name string `yaml:"name" validate:"required"`
	// Archetype is one of money_starved, security_high.
	Archetype string `yaml:"archetype" validate:"oneof=money_starved security_high"`
	// Skim is the wealth fraction one extraction cycle takes, in (0, 1).
	Skim          float64 `yaml:"skim" validate:"gt=0,lt=1"`
	UnlocksNeeded int     `yaml:"unlocks_needed" validate:"gte=0"`
}

type JournalConfig struct {
	// Path is the on-disk journal directory. Empty selects the in-memory
	// journal.
	Path string `yaml:"path"`
	// RecentLimit caps how many records the status API returns.
	RecentLimit int `yaml:"recent_limit" validate:"gte=1"`
}

type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// DefaultConfig returns a runnable configuration for local use.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			ListenAddr: ":8095",
		},
		Scheduler: SchedulerConfig{
			HomeHost:      "home",
			HomeReserve:   8,
			ExtractCost:   1.70,
			ReplenishCost: 1.75,
			MitigateCost:  1.75,
			PollInterval:  2 * time.Second,
			IdleWait:      5 * time.Second,
		},
		Crew: CrewConfig{
			RosterTarget:    6,
			RecruitNames:    []string{"ash", "bram", "cato", "dara", "edda", "finn", "gale", "hart"},
			AscendRespect:   500,
			TrainStatFloor:  40,
			CombatFloor:     30,
			WinThreshold:    0.6,
			TickLength:      20 * time.Second,
			SafetyMargin:    2 * time.Second,
			UpdateInterval:  3 * time.Second,
			EquipFundsFloor: 5000,
			Equipment: []EquipmentConfig{
				{Name: "baton", Class: "weapon"},
				{Name: "vest", Class: "armor"},
				{Name: "runner", Class: "vehicle"},
			},
		},
		Targets: []TargetConfig{
			{Name: "ledger-a", Archetype: "money_starved", Skim: 0.25, UnlocksNeeded: 0},
			{Name: "vault-b", Archetype: "security_high", Skim: 0.10, UnlocksNeeded: 2},
		},
		Journal: JournalConfig{
			Path:        "",
			RecentLimit: 50,
		},
		Tracing: TracingConfig{
			Enabled:  false,
			Endpoint: "localhost:4317",
		},
	}
}
