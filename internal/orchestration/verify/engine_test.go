package verify

import (
	"context"
	"errors"
	"testing"

	"github.com/deploykit/rollbackd/internal/core/domain"
	"github.com/deploykit/rollbackd/internal/infra/capability"
)

type mockMetrics struct {
	m   capability.SystemMetrics
	err error
}

func (p *mockMetrics) Current(context.Context) (capability.SystemMetrics, error) {
	return p.m, p.err
}

type mockPolicy struct {
	eval capability.PolicyEvaluation
	err  error
}

func (p *mockPolicy) Evaluate(context.Context, domain.StateSnapshot) (capability.PolicyEvaluation, error) {
	return p.eval, p.err
}

type mockState struct {
	snapshot domain.StateSnapshot
	checksum string
	err      error
}

func (p *mockState) Capture(context.Context) (domain.StateSnapshot, error) {
	return p.snapshot, p.err
}

func (p *mockState) Checksum(context.Context, domain.StateSnapshot) (string, error) {
	return p.checksum, p.err
}

func TestVerifyAggregatesFourChecks(t *testing.T) {
	// functional 95, performance 85, security 90, integrity 100 -> 92.5
	metricsP := &mockMetrics{m: capability.SystemMetrics{
		HealthyServices:          19,
		TotalServices:            20,
		AvgResponseTimeMs:        110,
		BaselineResponseTimeMs:   100,
		ThroughputPerSec:         80,
		BaselineThroughputPerSec: 100,
	}}
	policy := &mockPolicy{eval: capability.PolicyEvaluation{Score: 90, Status: domain.CheckPassed}}
	state := &mockState{checksum: "abc123"}

	engine := NewEngine(metricsP, policy, state)
	result := engine.Verify(context.Background(), domain.StateSnapshot{Handle: "snap-1", Checksum: "abc123"})

	if len(result.Checks) != 4 {
		t.Fatalf("expected 4 checks, got %d", len(result.Checks))
	}
	if result.OverallScore != 92.5 {
		t.Errorf("overall score = %v, want 92.5", result.OverallScore)
	}
	if !result.Passed {
		t.Errorf("expected verification to pass")
	}
	if len(result.Recommendations) != 0 {
		t.Errorf("unexpected recommendations: %v", result.Recommendations)
	}

	categories := map[domain.CheckCategory]bool{}
	for _, c := range result.Checks {
		categories[c.Category] = true
	}
	for _, want := range []domain.CheckCategory{
		domain.CategoryFunctional,
		domain.CategoryPerformance,
		domain.CategorySecurity,
		domain.CategoryDataIntegrity,
	} {
		if !categories[want] {
			t.Errorf("missing %s check", want)
		}
	}
}

func TestVerifyErroringCheckForcesFailure(t *testing.T) {
	// Metrics fail: functional and performance both score 0 with status
	// failed, so the point cannot pass no matter what the others score.
	metricsP := &mockMetrics{err: errors.New("aggregator down")}
	policy := &mockPolicy{eval: capability.PolicyEvaluation{Score: 100, Status: domain.CheckPassed}}
	state := &mockState{checksum: "abc123"}

	engine := NewEngine(metricsP, policy, state)
	result := engine.Verify(context.Background(), domain.StateSnapshot{Handle: "snap-1", Checksum: "abc123"})

	if result.Passed {
		t.Fatal("expected verification to fail")
	}
	if result.OverallScore != 50 {
		t.Errorf("overall score = %v, want 50", result.OverallScore)
	}
	if len(result.Recommendations) == 0 {
		t.Error("expected recommendations for failed checks")
	}
}

func TestVerifyFailedCheckOverridesHighScore(t *testing.T) {
	// Checksum mismatch fails integrity. Mean stays above 70 but a failed
	// check still blocks the pass.
	metricsP := &mockMetrics{m: capability.SystemMetrics{
		HealthyServices: 20,
		TotalServices:   20,
	}}
	policy := &mockPolicy{eval: capability.PolicyEvaluation{Score: 100, Status: domain.CheckPassed}}
	state := &mockState{checksum: "drifted"}

	engine := NewEngine(metricsP, policy, state)
	result := engine.Verify(context.Background(), domain.StateSnapshot{Handle: "snap-1", Checksum: "abc123"})

	if result.OverallScore != 75 {
		t.Errorf("overall score = %v, want 75", result.OverallScore)
	}
	if result.Passed {
		t.Error("expected failed integrity check to block the pass")
	}
}

func TestVerifyDegradedHealthWarns(t *testing.T) {
	metricsP := &mockMetrics{m: capability.SystemMetrics{
		HealthyServices: 8,
		TotalServices:   10,
	}}
	policy := &mockPolicy{eval: capability.PolicyEvaluation{Score: 100, Status: domain.CheckPassed}}
	state := &mockState{checksum: "abc123"}

	engine := NewEngine(metricsP, policy, state)
	result := engine.Verify(context.Background(), domain.StateSnapshot{Handle: "snap-1", Checksum: "abc123"})

	var functional domain.VerificationCheck
	for _, c := range result.Checks {
		if c.Category == domain.CategoryFunctional {
			functional = c
		}
	}
	if functional.Status != domain.CheckWarning {
		t.Errorf("functional status = %s, want warning", functional.Status)
	}
	if len(result.Recommendations) != 1 {
		t.Errorf("expected one recommendation, got %v", result.Recommendations)
	}
}
