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
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianSwarm/pkg/logging"
	"github.com/AleutianAI/AleutianSwarm/services/swarm"
	"github.com/AleutianAI/AleutianSwarm/services/swarm/config"
	"github.com/AleutianAI/AleutianSwarm/services/swarm/world"
)

// runServe starts the full service: scheduler, crew loops, and HTTP
// surface, wired against the built-in simulator environment.
func runServe(cmd *cobra.Command, args []string) {
	logger := newLogger("swarm")
	defer logger.Close()
	logger.SetAsDefault()

	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		slog.Info("first run detected, writing default config", "path", configPath)
		if err := config.WriteDefault(configPath); err != nil {
			log.Fatalf("Failed to write default config: %v", err)
		}
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	env := world.NewDemo()
	svc, err := swarm.NewService(cfg, env)
	if err != nil {
		log.Fatalf("Failed to assemble service: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !noWatch {
		go func() {
			err := config.Watch(ctx, configPath, svc.ApplyConfig)
			if err != nil && !errors.Is(err, context.Canceled) {
				slog.Warn("config watcher stopped", "error", err)
			}
		}()
	}

	slog.Info("swarm service starting", "config", configPath)
	if err := svc.Run(ctx); err != nil {
		log.Fatalf("Service exited with error: %v", err)
	}
	slog.Info("swarm service stopped")
}

// newLogger builds the process logger from the persistent flags.
func newLogger(service string) *logging.Logger {
	level := logging.LevelInfo
	if verbose {
		level = logging.LevelDebug
	}
	return logging.New(logging.Config{
		Level:   level,
		LogDir:  logDir,
		Service: service,
	})
}
