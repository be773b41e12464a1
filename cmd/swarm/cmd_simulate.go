// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianSwarm/services/swarm/config"
	"github.com/AleutianAI/AleutianSwarm/services/swarm/datatypes"
	"github.com/AleutianAI/AleutianSwarm/services/swarm/engine"
	"github.com/AleutianAI/AleutianSwarm/services/swarm/journal"
	"github.com/AleutianAI/AleutianSwarm/services/swarm/targeting"
	"github.com/AleutianAI/AleutianSwarm/services/swarm/world"
)

// simSleeper advances the simulator's virtual clock instead of blocking on
// the wall clock, so long action durations resolve instantly.
type simSleeper struct {
	sim *world.Sim
}

func (s simSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d > 0 {
		s.sim.Advance(d)
	}
	return ctx.Err()
}

// runSimulate drives the scheduling loop against the simulator and prints
// the resulting dispatch journal.
func runSimulate(cmd *cobra.Command, args []string) {
	logger := newLogger("swarm-sim")
	defer logger.Close()
	logger.SetAsDefault()

	cfg := config.DefaultConfig()

	sim := world.NewSim()
	if simSeedDemo {
		sim = world.NewDemo()
	}

	prefs := make([]targeting.Candidate, 0, len(cfg.Targets))
	for _, t := range cfg.Targets {
		archetype := datatypes.ArchetypeMoneyStarved
		if t.Archetype == "security_high" {
			archetype = datatypes.ArchetypeSecurityHigh
		}
		prefs = append(prefs, targeting.Candidate{Target: datatypes.Target{
			Name:          t.Name,
			Archetype:     archetype,
			Skim:          t.Skim,
			UnlocksNeeded: t.UnlocksNeeded,
		}})
	}

	jrnl := journal.NewMemory(simIterations)
	eng := engine.New(sim, targeting.NewSelector(prefs), jrnl, engine.Config{
		HomeHost:      cfg.Scheduler.HomeHost,
		HomeReserve:   cfg.Scheduler.HomeReserve,
		ExtractCost:   cfg.Scheduler.ExtractCost,
		ReplenishCost: cfg.Scheduler.ReplenishCost,
		MitigateCost:  cfg.Scheduler.MitigateCost,
		PollInterval:  cfg.Scheduler.PollInterval,
		IdleWait:      cfg.Scheduler.IdleWait,
	}, nil)
	eng.SetSleeper(simSleeper{sim: sim})

	ctx := context.Background()
	dispatched := 0
	for i := 0; i < simIterations; i++ {
		worked, err := eng.Tick(ctx)
		if err != nil {
			log.Fatalf("Simulation failed at iteration %d: %v", i, err)
		}
		if worked {
			dispatched++
		} else {
			sim.Advance(cfg.Scheduler.IdleWait)
		}
	}

	records, err := jrnl.Recent(ctx, simIterations)
	if err != nil {
		log.Fatalf("Failed to read simulation journal: %v", err)
	}

	fmt.Printf("iterations: %d   dispatched: %d\n", simIterations, dispatched)
	fmt.Printf("%-10s %-10s %6s %6s %6s %12s\n",
		"TARGET", "ACTION", "HOSTS", "SLOTS", "WANT", "ELAPSED")
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		fmt.Printf("%-10s %-10s %6d %6d %6d %12s\n",
			r.Target, r.Action, r.Hosts, r.Slots, r.Demand, r.Elapsed)
	}
}
