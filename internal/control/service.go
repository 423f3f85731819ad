// Package control assembles the orchestrator from configuration and
// manages its lifecycle.
package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/deploykit/rollbackd/internal/core/clock"
	"github.com/deploykit/rollbackd/internal/core/config"
	"github.com/deploykit/rollbackd/internal/infra/capability"
	redisclient "github.com/deploykit/rollbackd/internal/infra/redis"
	"github.com/deploykit/rollbackd/internal/infra/storage"
	"github.com/deploykit/rollbackd/internal/infra/storage/memory"
	"github.com/deploykit/rollbackd/internal/infra/storage/postgres"
	"github.com/deploykit/rollbackd/internal/orchestration/approval"
	"github.com/deploykit/rollbackd/internal/orchestration/health"
	"github.com/deploykit/rollbackd/internal/orchestration/impact"
	"github.com/deploykit/rollbackd/internal/orchestration/monitor"
	"github.com/deploykit/rollbackd/internal/orchestration/points"
	"github.com/deploykit/rollbackd/internal/orchestration/rollback"
	"github.com/deploykit/rollbackd/internal/orchestration/verify"
)

// Service is the assembled orchestrator application.
type Service struct {
	cfg          *config.AppConfig
	points       *points.Store
	orchestrator *rollback.Orchestrator
	strategies   *rollback.StrategyRegistry
	monitor      *monitor.Monitor
	healthServer *health.Server
	db           *postgres.DB
	redisClient  *redisclient.Client
	log          *slog.Logger
}

// NewService wires all components from configuration.
func NewService(ctx context.Context, cfg *config.AppConfig) (*Service, error) {
	clk := clock.New()

	// 1. Storage
	var (
		pointRepo storage.RecoveryPointRepository
		execRepo  storage.ExecutionRepository
		db        *postgres.DB
	)
	switch cfg.Storage.Backend {
	case "postgres":
		var err error
		db, err = postgres.NewDB(ctx, cfg.Storage.Postgres)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		pointRepo = postgres.NewPointRepo(db)
		execRepo = postgres.NewExecutionRepo(db)
		slog.Info("Using PostgreSQL storage")
	case "", "memory":
		store := memory.NewStore()
		pointRepo = memory.NewPointRepo(store)
		execRepo = memory.NewExecutionRepo(store)
		slog.Info("Using Memory storage")
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	// 2. External capabilities
	state := capability.NewShellStateProvider(
		cfg.Capability.CaptureCommand,
		cfg.Capability.ChecksumCommand,
		cfg.Capability.StepTimeout,
	)
	metricsProvider := capability.NewHTTPMetricsProvider(cfg.Capability.MetricsURL)
	policy := capability.NewShellPolicyEvaluator(cfg.Capability.PolicyCommand, cfg.Capability.StepTimeout)
	runner := capability.NewExecRunner(cfg.Capability.StepTimeout)

	// 3. Core components
	engine := verify.NewEngine(metricsProvider, policy, state)
	pointStore := points.NewStore(pointRepo, state, engine, clk)
	assessor := impact.NewAssessor(clk, cfg.Impact.UserBase)
	gate := approval.NewGate()
	strategies := rollback.NewStrategyRegistry()

	current := func() impact.CurrentState {
		return impact.CurrentState{
			Version:        cfg.Current.Version,
			ConfigVersions: cfg.Current.ConfigVersions,
			FeatureFlags:   cfg.Current.FeatureFlags,
		}
	}

	// 4. Optional Redis coordination
	var (
		redisClient *redisclient.Client
		locker      rollback.PointLocker
		window      monitor.AttemptWindow
	)
	if cfg.Redis.Enabled {
		var err error
		redisClient, err = redisclient.NewClient(cfg.Redis.Connection)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		locker = redisclient.NewPointLock(redisClient, cfg.Redis.LockTTL)
		window = redisclient.NewAttemptWindow(
			redisClient,
			cfg.Redis.InstanceID,
			cfg.Monitor.Settings.RecoveryWindow,
		)
		slog.Info("Redis coordination enabled", "instance", cfg.Redis.InstanceID)
	}

	orch := rollback.NewOrchestrator(rollback.Config{
		Points:      pointStore,
		Strategies:  strategies,
		Assessor:    assessor,
		Gate:        gate,
		Runner:      runner,
		State:       state,
		Engine:      engine,
		ExecRepo:    execRepo,
		Clock:       clk,
		Current:     current,
		Locker:      locker,
		LockRefresh: cfg.Redis.LockTTL / 3,
		LogCap:      cfg.Rollback.LogCap,
	})

	if window == nil {
		window = monitor.NewLocalWindow(orch)
	}

	var mon *monitor.Monitor
	if cfg.Monitor.Enabled {
		mon = monitor.New(cfg.Monitor.Settings, metricsProvider, pointStore, orch, window, clk)
	}

	healthMon := health.NewMonitor(pointStore, orch, clk)
	healthServer := health.NewServer(healthMon, pointStore, orch, strategies, cfg.Server.Port)

	return &Service{
		cfg:          cfg,
		points:       pointStore,
		orchestrator: orch,
		strategies:   strategies,
		monitor:      mon,
		healthServer: healthServer,
		db:           db,
		redisClient:  redisClient,
		log:          slog.Default(),
	}, nil
}

// Points exposes the recovery point store.
func (s *Service) Points() *points.Store { return s.points }

// Orchestrator exposes the rollback orchestrator.
func (s *Service) Orchestrator() *rollback.Orchestrator { return s.orchestrator }

// Start launches the HTTP server, the expiry sweeper, and the
// auto-recovery monitor. Components stop when ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	go func() {
		if err := s.healthServer.Start(); err != nil {
			s.log.Error("HTTP server failed", "error", err)
		}
	}()

	go s.points.RunSweeper(ctx, s.cfg.Points.SweepInterval)

	if s.monitor != nil {
		go func() {
			if err := s.monitor.Run(ctx); err != nil && ctx.Err() == nil {
				s.log.Error("Auto-recovery monitor failed", "error", err)
			}
		}()
		s.log.Info("Auto-recovery monitor started",
			"interval", s.cfg.Monitor.Settings.Interval,
			"max_recoveries", s.cfg.Monitor.Settings.MaxAutoRecoveries,
		)
	}

	s.log.Info("Service started", "port", s.cfg.Server.Port, "storage", s.cfg.Storage.Backend)
	return nil
}

// Stop shuts down the HTTP server and closes connections.
func (s *Service) Stop(ctx context.Context) error {
	s.log.Info("Stopping service...")

	if err := s.healthServer.Stop(ctx); err != nil {
		s.log.Warn("Failed to stop HTTP server", "error", err)
	}
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.log.Warn("Failed to close Redis", "error", err)
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.log.Warn("Failed to close database", "error", err)
		}
	}

	s.log.Info("Service stopped")
	return nil
}
