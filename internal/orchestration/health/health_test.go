package health

import (
	"context"
	"testing"
	"time"

	"github.com/deploykit/rollbackd/internal/core/clock"
	"github.com/deploykit/rollbackd/internal/core/domain"
	"github.com/deploykit/rollbackd/internal/infra/capability"
	"github.com/deploykit/rollbackd/internal/infra/storage/memory"
	"github.com/deploykit/rollbackd/internal/orchestration/impact"
	"github.com/deploykit/rollbackd/internal/orchestration/points"
	"github.com/deploykit/rollbackd/internal/orchestration/rollback"
	"github.com/deploykit/rollbackd/internal/orchestration/verify"
)

type healthyState struct{}

func (healthyState) Capture(context.Context) (domain.StateSnapshot, error) {
	return domain.StateSnapshot{
		Handle:   "snap-1",
		Checksum: "abc",
		Components: domain.SnapshotComponents{
			Application:   true,
			Configuration: true,
		},
	}, nil
}

func (healthyState) Checksum(context.Context, domain.StateSnapshot) (string, error) {
	return "abc", nil
}

type healthyMetrics struct{}

func (healthyMetrics) Current(context.Context) (capability.SystemMetrics, error) {
	return capability.SystemMetrics{HealthyServices: 10, TotalServices: 10}, nil
}

type openPolicy struct{}

func (openPolicy) Evaluate(context.Context, domain.StateSnapshot) (capability.PolicyEvaluation, error) {
	return capability.PolicyEvaluation{Score: 100, Status: domain.CheckPassed}, nil
}

type noopRunner struct{}

func (noopRunner) Execute(context.Context, domain.StepType, domain.StepSpec) (capability.StepResult, error) {
	return capability.StepResult{Output: "ok"}, nil
}

func newFixture(t *testing.T) (*Monitor, *points.Store, *rollback.Orchestrator, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	engine := verify.NewEngine(healthyMetrics{}, openPolicy{}, healthyState{})
	store := points.NewStore(memory.NewPointRepo(memory.NewStore()), healthyState{}, engine, clk)

	orch := rollback.NewOrchestrator(rollback.Config{
		Points:   store,
		Assessor: impact.NewAssessor(clk, 1000),
		Runner:   noopRunner{},
		State:    healthyState{},
		Engine:   engine,
		Clock:    clk,
		Current: func() impact.CurrentState {
			return impact.CurrentState{Version: "3.0.0"}
		},
	})

	return NewMonitor(store, orch, clk), store, orch, clk
}

func TestCheckNoVerifiedPointIsCritical(t *testing.T) {
	mon, _, _, _ := newFixture(t)

	report := mon.Check(context.Background())
	if report.Status != StatusCritical {
		t.Errorf("status = %s, want critical", report.Status)
	}
	if report.RecoveryPoints != 0 || report.VerifiedPoints != 0 {
		t.Errorf("unexpected counts: %+v", report)
	}
}

func TestCheckVerifiedPointIsHealthy(t *testing.T) {
	mon, store, _, _ := newFixture(t)

	p, err := store.Create(context.Background(), domain.KindManual, domain.TriggerUserRequest, domain.PointMetadata{Version: "3.0.0"})
	if err != nil {
		t.Fatal(err)
	}

	report := mon.Check(context.Background())
	if report.Status != StatusHealthy {
		t.Errorf("status = %s, want healthy", report.Status)
	}
	if report.RecoveryPoints != 1 || report.VerifiedPoints != 1 {
		t.Errorf("counts = %d/%d, want 1/1", report.RecoveryPoints, report.VerifiedPoints)
	}
	if report.LatestPointAt == nil || !report.LatestPointAt.Equal(p.CreatedAt) {
		t.Errorf("latest point at = %v, want %v", report.LatestPointAt, p.CreatedAt)
	}
	if !report.LatestPointPassed {
		t.Error("latest point should be marked passed")
	}
}

func TestCheckPendingApprovalDegrades(t *testing.T) {
	mon, store, orch, clk := newFixture(t)

	// An old point forces a severity that requires approvals, so the
	// initiated execution stays pending.
	p, err := store.Create(context.Background(), domain.KindManual, domain.TriggerDeployment, domain.PointMetadata{Version: "3.0.0"})
	if err != nil {
		t.Fatal(err)
	}
	clk.Advance(3 * time.Hour)

	exec, err := orch.InitiateRollback(context.Background(), p.ID, domain.StrategyRolling, rollback.Options{RequestedBy: "tester"})
	if err != nil {
		t.Fatal(err)
	}
	if exec.Status != domain.ExecutionPending {
		t.Fatalf("execution status = %s, want pending", exec.Status)
	}

	report := mon.Check(context.Background())
	if report.Status != StatusDegraded {
		t.Errorf("status = %s, want degraded", report.Status)
	}
	if report.ActiveExecutions != 1 {
		t.Errorf("active executions = %d, want 1", report.ActiveExecutions)
	}
	if report.PendingApprovals != 1 {
		t.Errorf("pending approvals = %d, want 1", report.PendingApprovals)
	}
}

func TestCheckCachesReportBetweenPolls(t *testing.T) {
	mon, store, _, clk := newFixture(t)

	first := mon.Check(context.Background())
	if first.Status != StatusCritical {
		t.Fatalf("status = %s, want critical", first.Status)
	}

	if _, err := store.Create(context.Background(), domain.KindManual, domain.TriggerUserRequest, domain.PointMetadata{}); err != nil {
		t.Fatal(err)
	}

	// Within the cache window the stale report is returned.
	clk.Advance(5 * time.Second)
	if got := mon.Check(context.Background()); got.Status != StatusCritical {
		t.Errorf("cached status = %s, want critical", got.Status)
	}

	clk.Advance(6 * time.Second)
	if got := mon.Check(context.Background()); got.Status != StatusHealthy {
		t.Errorf("refreshed status = %s, want healthy", got.Status)
	}
}
