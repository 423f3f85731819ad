// Package health provides system health reporting and the HTTP surface
// exposing the orchestrator's operations.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/deploykit/rollbackd/internal/core/clock"
	"github.com/deploykit/rollbackd/internal/core/domain"
	"github.com/deploykit/rollbackd/internal/orchestration/points"
	"github.com/deploykit/rollbackd/internal/orchestration/rollback"
)

// SystemStatus represents the overall health state of the orchestrator.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// Report is the aggregated health view served to dashboards.
type Report struct {
	Status            SystemStatus `json:"status"`
	RecoveryPoints    int          `json:"recovery_points"`
	VerifiedPoints    int          `json:"verified_points"`
	ActiveExecutions  int          `json:"active_executions"`
	PendingApprovals  int          `json:"pending_approvals"`
	FailedExecutions  int          `json:"failed_executions"`
	LatestPointAt     *time.Time   `json:"latest_point_at,omitempty"`
	LatestPointPassed bool         `json:"latest_point_passed"`
}

// Monitor aggregates health from the point store and execution registry.
type Monitor struct {
	points *points.Store
	orch   *rollback.Orchestrator
	clock  clock.Clock

	mu         sync.Mutex
	lastCheck  time.Time
	lastReport Report
}

// NewMonitor creates a health monitor.
func NewMonitor(pointStore *points.Store, orch *rollback.Orchestrator, clk clock.Clock) *Monitor {
	if clk == nil {
		clk = clock.New()
	}
	return &Monitor{points: pointStore, orch: orch, clock: clk}
}

// Check builds the health report. Results are cached briefly to keep
// dashboard polling cheap.
func (m *Monitor) Check(ctx context.Context) Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	if now.Sub(m.lastCheck) < 10*time.Second && !m.lastCheck.IsZero() {
		return m.lastReport
	}

	report := Report{Status: StatusHealthy}

	list, err := m.points.List(ctx)
	if err == nil {
		report.RecoveryPoints = len(list)
		for _, p := range list {
			if p.Verification.Passed {
				report.VerifiedPoints++
			}
		}
		if len(list) > 0 {
			at := list[0].CreatedAt
			report.LatestPointAt = &at
			report.LatestPointPassed = list[0].Verification.Passed
		}
	}

	for _, e := range m.orch.ListExecutions() {
		switch {
		case !e.Status.Terminal():
			report.ActiveExecutions++
			report.PendingApprovals += e.PendingApprovals()
		case e.Status == domain.ExecutionFailed:
			report.FailedExecutions++
		}
	}

	// No verified rollback target is the one condition that leaves the
	// system unable to recover at all.
	switch {
	case report.VerifiedPoints == 0:
		report.Status = StatusCritical
	case report.FailedExecutions > 0 || report.PendingApprovals > 0:
		report.Status = StatusDegraded
	}

	m.lastCheck = now
	m.lastReport = report
	return report
}
