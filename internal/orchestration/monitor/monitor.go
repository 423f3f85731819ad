// Package monitor watches live system metrics and initiates forced
// rollbacks to the best eligible recovery point when thresholds are
// breached, subject to a rolling rate limit.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/deploykit/rollbackd/internal/core/clock"
	"github.com/deploykit/rollbackd/internal/core/domain"
	"github.com/deploykit/rollbackd/internal/infra/capability"
	"github.com/deploykit/rollbackd/internal/orchestration/metrics"
	"github.com/deploykit/rollbackd/internal/orchestration/points"
	"github.com/deploykit/rollbackd/internal/orchestration/rollback"
)

// Thresholds are the breach conditions that trigger auto-recovery.
type Thresholds struct {
	ErrorRate              float64 `yaml:"error_rate"`
	ResponseTimeMs         float64 `yaml:"response_time_ms"`
	ConsecutiveHealthFails int     `yaml:"consecutive_health_check_failures"`
}

// Config tunes the monitor.
type Config struct {
	Interval          time.Duration `yaml:"interval"`
	RecoveryWindow    time.Duration `yaml:"recovery_window"`
	MaxAutoRecoveries int           `yaml:"max_auto_recoveries"`
	MinPointScore     float64       `yaml:"min_point_score"`
	Thresholds        Thresholds    `yaml:"thresholds"`
}

// DefaultConfig returns the stock monitor settings.
func DefaultConfig() Config {
	return Config{
		Interval:          30 * time.Second,
		RecoveryWindow:    5 * time.Minute,
		MaxAutoRecoveries: 3,
		MinPointScore:     80,
		Thresholds: Thresholds{
			ErrorRate:              0.05,
			ResponseTimeMs:         2000,
			ConsecutiveHealthFails: 3,
		},
	}
}

// SignalType classifies monitor outcomes.
type SignalType string

const (
	SignalTriggered       SignalType = "triggered"
	SignalLimitExceeded   SignalType = "limit-exceeded"
	SignalNoSuitablePoint SignalType = "no-suitable-recovery-point"
	SignalInitiateFailed  SignalType = "initiate-failed"
)

// Signal is one monitor outcome, observable by dashboards and tests.
type Signal struct {
	Type        SignalType `json:"type"`
	Reason      string     `json:"reason"`
	ExecutionID string     `json:"execution_id,omitempty"`
	PointID     string     `json:"recovery_point_id,omitempty"`
	Timestamp   time.Time  `json:"timestamp"`
}

// AttemptWindow counts rollback executions inside the rolling rate-limit
// window. The default wraps the orchestrator registry; a redis-backed
// window shares the budget across instances.
type AttemptWindow interface {
	Count(ctx context.Context, since time.Time) (int, error)
	Record(ctx context.Context, at time.Time) error
}

// Initiator is the slice of the orchestrator the monitor drives.
type Initiator interface {
	InitiateRollback(
		ctx context.Context,
		recoveryPointID string,
		strategy domain.StrategyName,
		opts rollback.Options,
	) (*domain.RollbackExecution, error)
}

// Monitor runs the auto-recovery polling loop.
type Monitor struct {
	cfg     Config
	metrics capability.MetricsProvider
	points  *points.Store
	init    Initiator
	window  AttemptWindow
	clock   clock.Clock
	log     *slog.Logger
	signals chan Signal
}

// New creates an auto-recovery monitor.
func New(
	cfg Config,
	metricsProvider capability.MetricsProvider,
	pointStore *points.Store,
	initiator Initiator,
	window AttemptWindow,
	clk clock.Clock,
) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.RecoveryWindow <= 0 {
		cfg.RecoveryWindow = 5 * time.Minute
	}
	if cfg.MaxAutoRecoveries <= 0 {
		cfg.MaxAutoRecoveries = 3
	}
	if cfg.MinPointScore <= 0 {
		cfg.MinPointScore = 80
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Monitor{
		cfg:     cfg,
		metrics: metricsProvider,
		points:  pointStore,
		init:    initiator,
		window:  window,
		clock:   clk,
		log:     slog.Default(),
		signals: make(chan Signal, 64),
	}
}

// Signals exposes monitor outcomes. The channel drops when full rather
// than stalling the loop.
func (m *Monitor) Signals() <-chan Signal { return m.signals }

// Run polls until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := m.clock.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	m.log.Info("auto-recovery monitor started",
		"interval", m.cfg.Interval,
		"window", m.cfg.RecoveryWindow,
		"max_recoveries", m.cfg.MaxAutoRecoveries,
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C():
			m.Tick(ctx)
		}
	}
}

// Tick evaluates thresholds once. Exported so tests and the control layer
// can drive evaluation deterministically.
func (m *Monitor) Tick(ctx context.Context) {
	current, err := m.fetchMetrics(ctx)
	if err != nil {
		m.log.Warn("metrics fetch failed, skipping tick", "error", err)
		return
	}

	reason := m.breach(current)
	if reason == "" {
		return
	}
	m.log.Warn("auto-recovery threshold breached", "reason", reason)

	now := m.clock.Now()
	since := now.Add(-m.cfg.RecoveryWindow)
	count, err := m.window.Count(ctx, since)
	if err != nil {
		m.log.Error("attempt window unavailable", "error", err)
		return
	}
	if count >= m.cfg.MaxAutoRecoveries {
		metrics.AutoRecoveryTriggers.WithLabelValues(string(SignalLimitExceeded)).Inc()
		m.emit(Signal{
			Type:      SignalLimitExceeded,
			Reason:    fmt.Sprintf("%d recoveries within %s (max %d)", count, m.cfg.RecoveryWindow, m.cfg.MaxAutoRecoveries),
			Timestamp: now,
		})
		return
	}

	point, err := m.points.BestEligible(ctx, m.cfg.MinPointScore)
	if err != nil {
		m.log.Error("recovery point lookup failed", "error", err)
		return
	}
	if point == nil {
		metrics.AutoRecoveryTriggers.WithLabelValues(string(SignalNoSuitablePoint)).Inc()
		m.emit(Signal{
			Type:      SignalNoSuitablePoint,
			Reason:    fmt.Sprintf("no verified point with score >= %.0f", m.cfg.MinPointScore),
			Timestamp: now,
		})
		return
	}

	exec, err := m.init.InitiateRollback(ctx, point.ID, domain.StrategyImmediate, rollback.Options{
		Force:       true,
		RequestedBy: "auto-recovery",
	})
	if err != nil {
		metrics.AutoRecoveryTriggers.WithLabelValues(string(SignalInitiateFailed)).Inc()
		m.emit(Signal{
			Type:      SignalInitiateFailed,
			Reason:    err.Error(),
			PointID:   point.ID,
			Timestamp: now,
		})
		return
	}

	if err := m.window.Record(ctx, now); err != nil {
		m.log.Warn("failed to record recovery attempt", "error", err)
	}
	metrics.AutoRecoveryTriggers.WithLabelValues(string(SignalTriggered)).Inc()
	m.emit(Signal{
		Type:        SignalTriggered,
		Reason:      reason,
		ExecutionID: exec.ID,
		PointID:     point.ID,
		Timestamp:   now,
	})
	m.log.Info("auto-recovery rollback initiated",
		"execution", exec.ID,
		"recovery_point", point.ID,
		"reason", reason,
	)
}

// fetchMetrics retries transient metrics source failures within a tick.
func (m *Monitor) fetchMetrics(ctx context.Context) (capability.SystemMetrics, error) {
	var out capability.SystemMetrics
	backoff := retry.WithMaxRetries(2, retry.NewConstant(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		current, err := m.metrics.Current(ctx)
		if err != nil {
			return retry.RetryableError(err)
		}
		out = current
		return nil
	})
	return out, err
}

func (m *Monitor) breach(sm capability.SystemMetrics) string {
	t := m.cfg.Thresholds
	switch {
	case t.ErrorRate > 0 && sm.ErrorRate > t.ErrorRate:
		return fmt.Sprintf("error rate %.3f above %.3f", sm.ErrorRate, t.ErrorRate)
	case t.ResponseTimeMs > 0 && sm.AvgResponseTimeMs > t.ResponseTimeMs:
		return fmt.Sprintf("response time %.0fms above %.0fms", sm.AvgResponseTimeMs, t.ResponseTimeMs)
	case t.ConsecutiveHealthFails > 0 && sm.ConsecutiveHealthFails >= t.ConsecutiveHealthFails:
		return fmt.Sprintf("%d consecutive health check failures", sm.ConsecutiveHealthFails)
	}
	return ""
}

func (m *Monitor) emit(sig Signal) {
	select {
	case m.signals <- sig:
	default:
	}
}
