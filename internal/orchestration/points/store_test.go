package points

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/deploykit/rollbackd/internal/core/clock"
	"github.com/deploykit/rollbackd/internal/core/domain"
	"github.com/deploykit/rollbackd/internal/infra/capability"
	"github.com/deploykit/rollbackd/internal/infra/storage"
	"github.com/deploykit/rollbackd/internal/infra/storage/memory"
	"github.com/deploykit/rollbackd/internal/orchestration/verify"
)

type mockState struct {
	snapshot   domain.StateSnapshot
	captureErr error
}

func (p *mockState) Capture(context.Context) (domain.StateSnapshot, error) {
	if p.captureErr != nil {
		return domain.StateSnapshot{}, p.captureErr
	}
	return p.snapshot, nil
}

func (p *mockState) Checksum(context.Context, domain.StateSnapshot) (string, error) {
	return p.snapshot.Checksum, nil
}

type mockMetrics struct{}

func (mockMetrics) Current(context.Context) (capability.SystemMetrics, error) {
	return capability.SystemMetrics{HealthyServices: 10, TotalServices: 10}, nil
}

type mockPolicy struct{}

func (mockPolicy) Evaluate(context.Context, domain.StateSnapshot) (capability.PolicyEvaluation, error) {
	return capability.PolicyEvaluation{Score: 100, Status: domain.CheckPassed}, nil
}

func newTestStore(t *testing.T, clk clock.Clock) (*Store, *memory.PointRepo) {
	t.Helper()
	state := &mockState{snapshot: domain.StateSnapshot{Handle: "snap-1", Checksum: "abc"}}
	engine := verify.NewEngine(mockMetrics{}, mockPolicy{}, state)
	repo := memory.NewPointRepo(memory.NewStore())
	return NewStore(repo, state, engine, clk), repo
}

func TestCreateAssignsTTLByKind(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC))
	store, _ := newTestStore(t, clk)
	ctx := context.Background()

	cases := []struct {
		kind domain.RecoveryPointKind
		ttl  time.Duration
	}{
		{domain.KindAutomatic, 7 * 24 * time.Hour},
		{domain.KindManual, 30 * 24 * time.Hour},
		{domain.KindScheduled, 90 * 24 * time.Hour},
	}

	for _, tc := range cases {
		p, err := store.Create(ctx, tc.kind, domain.TriggerDeployment, domain.PointMetadata{Version: "1.0.0"})
		if err != nil {
			t.Fatalf("Create(%s): %v", tc.kind, err)
		}
		if p.TTL != tc.ttl {
			t.Errorf("TTL for %s = %s, want %s", tc.kind, p.TTL, tc.ttl)
		}
		if p.ID == "" {
			t.Error("point id not assigned")
		}
		if !p.Verification.Passed {
			t.Errorf("expected point %s to verify", tc.kind)
		}
	}

	if got := len(clk.PendingTimers()); got != 3 {
		t.Errorf("pending expiry timers = %d, want 3", got)
	}
}

func TestCreateCaptureFailureAbortsWithNoPartialState(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC))
	state := &mockState{captureErr: errors.New("disk full")}
	engine := verify.NewEngine(mockMetrics{}, mockPolicy{}, state)
	repo := memory.NewPointRepo(memory.NewStore())
	store := NewStore(repo, state, engine, clk)

	_, err := store.Create(context.Background(), domain.KindManual, domain.TriggerUserRequest, domain.PointMetadata{})
	var capErr *CaptureError
	if !errors.As(err, &capErr) {
		t.Fatalf("expected CaptureError, got %v", err)
	}

	list, _ := repo.List(context.Background())
	if len(list) != 0 {
		t.Errorf("expected no stored points, got %d", len(list))
	}
	if len(clk.PendingTimers()) != 0 {
		t.Error("expected no expiry timer after failed capture")
	}
}

func TestExpiryTimerRemovesPoint(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC))
	store, repo := newTestStore(t, clk)
	ctx := context.Background()

	p, err := store.Create(ctx, domain.KindAutomatic, domain.TriggerDeployment, domain.PointMetadata{})
	if err != nil {
		t.Fatal(err)
	}

	clk.Advance(7*24*time.Hour - time.Second)
	if _, err := store.Get(ctx, p.ID); err != nil {
		t.Fatalf("point should still be reachable just before expiry: %v", err)
	}

	clk.Advance(2 * time.Second)
	if _, err := store.Get(ctx, p.ID); !errors.Is(err, storage.ErrRecoveryPointNotFound) {
		t.Fatalf("expected not found after TTL, got %v", err)
	}
	if list, _ := repo.List(ctx); len(list) != 0 {
		t.Errorf("expired point still stored")
	}
}

func TestGetEnforcesTTLBeforeTimerFires(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC))
	store, repo := newTestStore(t, clk)
	ctx := context.Background()

	// A point loaded from durable storage after a restart has no timer.
	stale := &domain.RecoveryPoint{
		ID:        "rp-stale",
		CreatedAt: clk.Now().Add(-8 * 24 * time.Hour),
		Kind:      domain.KindAutomatic,
		TTL:       7 * 24 * time.Hour,
	}
	if err := repo.Save(ctx, stale); err != nil {
		t.Fatal(err)
	}

	if _, err := store.Get(ctx, "rp-stale"); !errors.Is(err, storage.ErrRecoveryPointNotFound) {
		t.Fatalf("expected expired point to be unreachable, got %v", err)
	}
	if _, err := repo.Get(ctx, "rp-stale"); !errors.Is(err, storage.ErrRecoveryPointNotFound) {
		t.Error("expired point should be purged on access")
	}
}

func TestDeleteCancelsExpiryTimer(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC))
	store, _ := newTestStore(t, clk)
	ctx := context.Background()

	p, err := store.Create(ctx, domain.KindManual, domain.TriggerUserRequest, domain.PointMetadata{})
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, p.ID); err != nil {
		t.Fatal(err)
	}
	if len(clk.PendingTimers()) != 0 {
		t.Error("expiry timer should be cancelled on delete")
	}

	if _, err := store.Get(ctx, p.ID); !errors.Is(err, storage.ErrRecoveryPointNotFound) {
		t.Errorf("expected not found after delete, got %v", err)
	}
}

func TestListFiltersExpiredPoints(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC))
	store, repo := newTestStore(t, clk)
	ctx := context.Background()

	fresh := &domain.RecoveryPoint{ID: "rp-fresh", CreatedAt: clk.Now(), TTL: 24 * time.Hour}
	stale := &domain.RecoveryPoint{ID: "rp-stale", CreatedAt: clk.Now().Add(-48 * time.Hour), TTL: 24 * time.Hour}
	_ = repo.Save(ctx, fresh)
	_ = repo.Save(ctx, stale)

	list, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != "rp-fresh" {
		t.Errorf("List = %v, want only rp-fresh", list)
	}
}

func TestBestEligiblePicksNewestQualifying(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC))
	store, repo := newTestStore(t, clk)
	ctx := context.Background()

	mk := func(id string, age time.Duration, passed bool, score float64) *domain.RecoveryPoint {
		return &domain.RecoveryPoint{
			ID:        id,
			CreatedAt: clk.Now().Add(-age),
			TTL:       30 * 24 * time.Hour,
			Verification: domain.VerificationResult{
				Passed:       passed,
				OverallScore: score,
			},
		}
	}
	_ = repo.Save(ctx, mk("rp-newest-failed", time.Hour, false, 95))
	_ = repo.Save(ctx, mk("rp-low-score", 2*time.Hour, true, 75))
	_ = repo.Save(ctx, mk("rp-good", 3*time.Hour, true, 88))
	_ = repo.Save(ctx, mk("rp-older-good", 4*time.Hour, true, 99))

	best, err := store.BestEligible(ctx, 80)
	if err != nil {
		t.Fatal(err)
	}
	if best == nil || best.ID != "rp-good" {
		t.Fatalf("BestEligible = %v, want rp-good", best)
	}
}

func TestBestEligibleNoneQualifies(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC))
	store, repo := newTestStore(t, clk)
	ctx := context.Background()

	_ = repo.Save(ctx, &domain.RecoveryPoint{
		ID:        "rp-weak",
		CreatedAt: clk.Now(),
		TTL:       24 * time.Hour,
		Verification: domain.VerificationResult{
			Passed:       true,
			OverallScore: 72,
		},
	})

	best, err := store.BestEligible(ctx, 80)
	if err != nil {
		t.Fatal(err)
	}
	if best != nil {
		t.Errorf("BestEligible = %v, want nil", best)
	}
}
