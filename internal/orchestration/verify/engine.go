// Package verify scores state snapshots with a fixed battery of functional,
// performance, security, and data-integrity checks.
package verify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/deploykit/rollbackd/internal/core/domain"
	"github.com/deploykit/rollbackd/internal/infra/capability"
	"github.com/deploykit/rollbackd/internal/orchestration/metrics"
)

// Engine runs the verification battery. It is pure scoring over the supplied
// snapshot handle; it never mutates state.
type Engine struct {
	metricsProvider capability.MetricsProvider
	policy          capability.SecurityPolicyEvaluator
	state           capability.StateProvider
	log             *slog.Logger
}

// NewEngine creates a verification engine over the given collaborators.
func NewEngine(
	metricsProvider capability.MetricsProvider,
	policy capability.SecurityPolicyEvaluator,
	state capability.StateProvider,
) *Engine {
	return &Engine{
		metricsProvider: metricsProvider,
		policy:          policy,
		state:           state,
		log:             slog.Default(),
	}
}

// Verify runs the four checks concurrently and aggregates the result.
// An erroring check scores 0 with status failed, which forces Passed=false.
func (e *Engine) Verify(ctx context.Context, snapshot domain.StateSnapshot) domain.VerificationResult {
	checks := make([]domain.VerificationCheck, 4)

	runners := []struct {
		idx int
		fn  func(context.Context, domain.StateSnapshot) domain.VerificationCheck
	}{
		{0, e.checkFunctional},
		{1, e.checkPerformance},
		{2, e.checkSecurity},
		{3, e.checkDataIntegrity},
	}

	var wg sync.WaitGroup
	for _, r := range runners {
		wg.Add(1)
		go func(idx int, fn func(context.Context, domain.StateSnapshot) domain.VerificationCheck) {
			defer wg.Done()
			start := time.Now()
			check := fn(ctx, snapshot)
			check.DurationMs = time.Since(start).Milliseconds()
			checks[idx] = check
		}(r.idx, r.fn)
	}
	wg.Wait()

	result := domain.VerificationResult{Checks: checks}
	result.Evaluate()
	result.Recommendations = recommendations(checks)

	outcome := "failed"
	if result.Passed {
		outcome = "passed"
	}
	metrics.VerificationsTotal.WithLabelValues(outcome).Inc()
	metrics.VerificationScore.Observe(result.OverallScore)

	e.log.Debug("verification finished",
		"snapshot", snapshot.Handle,
		"score", result.OverallScore,
		"passed", result.Passed,
	)
	return result
}

func (e *Engine) checkFunctional(ctx context.Context, _ domain.StateSnapshot) domain.VerificationCheck {
	check := domain.VerificationCheck{Name: "service-health", Category: domain.CategoryFunctional}

	m, err := e.metricsProvider.Current(ctx)
	if err != nil || m.TotalServices == 0 {
		check.Status = domain.CheckFailed
		check.Score = 0
		if err != nil {
			check.Details = fmt.Sprintf("metrics unavailable: %v", err)
		} else {
			check.Details = "no services reported"
		}
		return check
	}

	check.Score = float64(m.HealthyServices) / float64(m.TotalServices) * 100
	switch {
	case check.Score < 70:
		check.Status = domain.CheckFailed
	case check.Score < 90:
		check.Status = domain.CheckWarning
	default:
		check.Status = domain.CheckPassed
	}
	check.Details = fmt.Sprintf("%d/%d services healthy", m.HealthyServices, m.TotalServices)
	return check
}

func (e *Engine) checkPerformance(ctx context.Context, _ domain.StateSnapshot) domain.VerificationCheck {
	check := domain.VerificationCheck{Name: "performance-baseline", Category: domain.CategoryPerformance}

	m, err := e.metricsProvider.Current(ctx)
	if err != nil {
		check.Status = domain.CheckFailed
		check.Score = 0
		check.Details = fmt.Sprintf("metrics unavailable: %v", err)
		return check
	}

	// Response time: 100 minus the percentage regression versus baseline,
	// floored at 0 and capped at 100.
	respScore := 100.0
	if m.BaselineResponseTimeMs > 0 {
		delta := (m.AvgResponseTimeMs - m.BaselineResponseTimeMs) / m.BaselineResponseTimeMs * 100
		respScore = 100 - delta
		if respScore < 0 {
			respScore = 0
		}
		if respScore > 100 {
			respScore = 100
		}
	}

	// Throughput: ratio to baseline, capped at 100.
	tpScore := 100.0
	if m.BaselineThroughputPerSec > 0 {
		tpScore = m.ThroughputPerSec / m.BaselineThroughputPerSec * 100
		if tpScore > 100 {
			tpScore = 100
		}
	}

	check.Score = (respScore + tpScore) / 2
	if check.Score < 60 {
		check.Status = domain.CheckFailed
	} else {
		check.Status = domain.CheckPassed
	}
	check.Details = fmt.Sprintf(
		"response %.1fms (baseline %.1fms), throughput %.1f/s (baseline %.1f/s)",
		m.AvgResponseTimeMs, m.BaselineResponseTimeMs,
		m.ThroughputPerSec, m.BaselineThroughputPerSec,
	)
	return check
}

func (e *Engine) checkSecurity(ctx context.Context, snapshot domain.StateSnapshot) domain.VerificationCheck {
	check := domain.VerificationCheck{Name: "security-policy", Category: domain.CategorySecurity}

	eval, err := e.policy.Evaluate(ctx, snapshot)
	if err != nil {
		check.Status = domain.CheckFailed
		check.Score = 0
		check.Details = fmt.Sprintf("policy evaluation failed: %v", err)
		return check
	}

	check.Score = eval.Score
	check.Status = eval.Status
	return check
}

func (e *Engine) checkDataIntegrity(ctx context.Context, snapshot domain.StateSnapshot) domain.VerificationCheck {
	check := domain.VerificationCheck{Name: "data-checksum", Category: domain.CategoryDataIntegrity}

	sum, err := e.state.Checksum(ctx, snapshot)
	if err != nil {
		check.Status = domain.CheckFailed
		check.Score = 0
		check.Details = fmt.Sprintf("checksum failed: %v", err)
		return check
	}

	if sum == snapshot.Checksum {
		check.Status = domain.CheckPassed
		check.Score = 100
	} else {
		check.Status = domain.CheckFailed
		check.Score = 0
		check.Details = "checksum mismatch against snapshot"
	}
	return check
}

func recommendations(checks []domain.VerificationCheck) []string {
	var out []string
	for _, c := range checks {
		switch c.Status {
		case domain.CheckFailed:
			out = append(out, fmt.Sprintf("resolve failing %s check %q before relying on this point", c.Category, c.Name))
		case domain.CheckWarning:
			out = append(out, fmt.Sprintf("investigate degraded %s check %q", c.Category, c.Name))
		}
	}
	return out
}
