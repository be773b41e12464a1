// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package swarm wires the scheduling engine, the crew loops, and the HTTP
// surface into one runnable service.
package swarm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/AleutianAI/AleutianSwarm/services/swarm/config"
	"github.com/AleutianAI/AleutianSwarm/services/swarm/crew"
	"github.com/AleutianAI/AleutianSwarm/services/swarm/datatypes"
	"github.com/AleutianAI/AleutianSwarm/services/swarm/engine"
	"github.com/AleutianAI/AleutianSwarm/services/swarm/handlers"
	"github.com/AleutianAI/AleutianSwarm/services/swarm/journal"
	"github.com/AleutianAI/AleutianSwarm/services/swarm/observability"
	"github.com/AleutianAI/AleutianSwarm/services/swarm/routes"
	"github.com/AleutianAI/AleutianSwarm/services/swarm/targeting"
	"github.com/AleutianAI/AleutianSwarm/services/swarm/world"
)

const serviceName = "swarm-service"

// Service is the assembled swarm scheduler.
type Service struct {
	cfg     config.Config
	env     world.World
	eng     *engine.Engine
	sync    *crew.Synchronizer
	manager *crew.Manager
	jrnl    journal.Journal
	metrics *observability.SchedulerMetrics
}

// NewService wires a Service from configuration and an environment.
//
// # Limitations
//
//   - Registers metrics against the default Prometheus registry; construct
//     at most one Service per process.
func NewService(cfg config.Config, env world.World) (*Service, error) {
	metrics := observability.InitMetrics()

	var jrnl journal.Journal
	if cfg.Journal.Path != "" {
		b, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		jrnl = b
	} else {
		jrnl = journal.NewMemory(cfg.Journal.RecentLimit)
	}

	selector, err := buildSelector(cfg.Targets)
	if err != nil {
		return nil, err
	}

	eng := engine.New(env, selector, jrnl, engine.Config{
		HomeHost:      cfg.Scheduler.HomeHost,
		HomeReserve:   cfg.Scheduler.HomeReserve,
		ExtractCost:   cfg.Scheduler.ExtractCost,
		ReplenishCost: cfg.Scheduler.ReplenishCost,
		MitigateCost:  cfg.Scheduler.MitigateCost,
		PollInterval:  cfg.Scheduler.PollInterval,
		IdleWait:      cfg.Scheduler.IdleWait,
	}, metrics)

	sync := crew.NewSynchronizer(env, crew.SyncConfig{
		RosterTarget:       cfg.Crew.RosterTarget,
		WinChanceThreshold: cfg.Crew.WinThreshold,
		TickLength:         cfg.Crew.TickLength,
		SafetyMargin:       cfg.Crew.SafetyMargin,
		CombatStatFloor:    cfg.Crew.CombatFloor,
	}, metrics)

	mgrCfg, err := buildManagerConfig(cfg.Crew)
	if err != nil {
		return nil, err
	}
	manager := crew.NewManager(env, env, mgrCfg, metrics)

	return &Service{
		cfg:     cfg,
		env:     env,
		eng:     eng,
		sync:    sync,
		manager: manager,
		jrnl:    jrnl,
		metrics: metrics,
	}, nil
}

// Run starts the HTTP server, the scheduling loop, and the crew loop, and
// blocks until the context is cancelled or one of them fails.
func (s *Service) Run(ctx context.Context) error {
	defer s.jrnl.Close()

	if s.cfg.Tracing.Enabled {
		shutdown, err := initTracer(ctx, s.cfg.Tracing.Endpoint)
		if err != nil {
			return fmt.Errorf("init tracer: %w", err)
		}
		defer shutdown(context.Background())
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if s.cfg.Tracing.Enabled {
		router.Use(otelgin.Middleware(serviceName))
	}
	routes.SetupRoutes(router, s, s.jrnl, s.cfg.Journal.RecentLimit)

	server := &http.Server{
		Addr:    s.cfg.Server.ListenAddr,
		Handler: router,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return s.eng.Run(ctx)
	})

	g.Go(func() error {
		return s.crewLoop(ctx)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// ApplyConfig absorbs a hot-reloaded configuration. Only crew management
// settings take effect live; scheduler and server changes need a restart.
func (s *Service) ApplyConfig(cfg config.Config) {
	mgrCfg, err := buildManagerConfig(cfg.Crew)
	if err != nil {
		slog.Warn("reloaded crew config rejected", "error", err)
		return
	}
	s.manager.SetConfig(mgrCfg)
}

// Status implements handlers.StatusSource.
func (s *Service) Status(ctx context.Context) (handlers.Status, error) {
	funds, err := s.env.Funds(ctx)
	if err != nil {
		return handlers.Status{}, fmt.Errorf("funds: %w", err)
	}
	roster, err := s.env.Roster(ctx)
	if err != nil {
		return handlers.Status{}, fmt.Errorf("roster: %w", err)
	}
	obs := s.eng.Observe()
	return handlers.Status{
		Target:        obs.Target,
		Phase:         obs.Phase,
		ConflictState: s.sync.State().String(),
		RosterSize:    len(roster),
		Funds:         funds,
	}, nil
}

// crewLoop alternates synchronizer and manager passes at the configured
// interval.
func (s *Service) crewLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Crew.UpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if err := s.sync.Update(ctx, now); err != nil {
				slog.Warn("conflict sync pass failed", "error", err)
				continue
			}
			if err := s.manager.Update(ctx, s.sync.State(), s.cfg.Crew.CombatFloor); err != nil {
				slog.Warn("crew management pass failed", "error", err)
			}
		}
	}
}

// buildSelector converts configured targets into the ordered preference
// list.
func buildSelector(targets []config.TargetConfig) (*targeting.Selector, error) {
	prefs := make([]targeting.Candidate, 0, len(targets))
	for _, t := range targets {
		archetype, err := parseArchetype(t.Archetype)
		if err != nil {
			return nil, fmt.Errorf("target %q: %w", t.Name, err)
		}
		prefs = append(prefs, targeting.Candidate{
			Target: datatypes.Target{
				Name:          t.Name,
				Archetype:     archetype,
				Skim:          t.Skim,
				UnlocksNeeded: t.UnlocksNeeded,
			},
		})
	}
	return targeting.NewSelector(prefs), nil
}

// buildManagerConfig converts crew configuration into the manager's form.
func buildManagerConfig(cfg config.CrewConfig) (crew.ManagerConfig, error) {
	catalog := make([]crew.EquipmentItem, 0, len(cfg.Equipment))
	for _, e := range cfg.Equipment {
		class, err := parseEquipmentClass(e.Class)
		if err != nil {
			return crew.ManagerConfig{}, fmt.Errorf("equipment %q: %w", e.Name, err)
		}
		catalog = append(catalog, crew.EquipmentItem{Name: e.Name, Class: class})
	}
	return crew.ManagerConfig{
		RosterTarget:    cfg.RosterTarget,
		RecruitNames:    cfg.RecruitNames,
		AscendRespect:   cfg.AscendRespect,
		TrainStatFloor:  cfg.TrainStatFloor,
		EquipFundsFloor: cfg.EquipFundsFloor,
		Catalog:         catalog,
	}, nil
}

// parseArchetype maps the configuration spelling to the enum.
func parseArchetype(s string) (datatypes.Archetype, error) {
	switch s {
	case "money_starved":
		return datatypes.ArchetypeMoneyStarved, nil
	case "security_high":
		return datatypes.ArchetypeSecurityHigh, nil
	default:
		return 0, fmt.Errorf("unknown archetype %q", s)
	}
}

// parseEquipmentClass maps the configuration spelling to the enum.
func parseEquipmentClass(s string) (datatypes.EquipmentClass, error) {
	switch s {
	case "weapon":
		return datatypes.EquipWeapon, nil
	case "armor":
		return datatypes.EquipArmor, nil
	case "vehicle":
		return datatypes.EquipVehicle, nil
	case "augment":
		return datatypes.EquipAugment, nil
	default:
		return 0, fmt.Errorf("unknown equipment class %q", s)
	}
}

// initTracer configures the OTLP trace exporter, returning its shutdown
// hook.
func initTracer(ctx context.Context, endpoint string) (func(context.Context), error) {
	conn, err := grpc.NewClient(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}
