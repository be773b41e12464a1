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
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	configPath string
	logDir     string
	verbose    bool
	noWatch    bool

	simIterations int
	simSeedDemo   bool

	statusAddr string

	rootCmd = &cobra.Command{
		Use:   "swarm",
		Short: "A resource-pool batch scheduler with crew conflict management",
		Long: `Swarm discovers a graph of capacity-bearing hosts, escalates access
where it can, and schedules batches of extract/replenish/mitigate work
against configured targets. Alongside the scheduler it manages a crew
roster and times turf-conflict entry around the external tick clock.`,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the swarm scheduler service",
		Run:   runServe, // Defined in cmd_serve.go
	}

	simulateCmd = &cobra.Command{
		Use:   "simulate",
		Short: "Run the scheduling loop against the built-in simulator",
		Run:   runSimulate, // Defined in cmd_simulate.go
	}

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Query a running swarm service for its current state",
		Run:   runStatus, // Defined in cmd_status.go
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the swarm version",
		Run:   runVersion, // Defined in cmd_version.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "swarm.yaml",
		"path to the service configuration file")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "",
		"directory for JSON log files (disabled when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"enable debug logging")

	serveCmd.Flags().BoolVar(&noWatch, "no-watch", false,
		"disable config hot reload")

	simulateCmd.Flags().IntVar(&simIterations, "iterations", 50,
		"number of scheduling iterations to run")
	simulateCmd.Flags().BoolVar(&simSeedDemo, "demo", true,
		"seed the simulator with the demo topology")

	statusCmd.Flags().StringVar(&statusAddr, "addr", "http://localhost:8095",
		"base URL of the running service")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}
