// Package capability declares the external collaborator interfaces the
// orchestrator consumes. State capture, metrics, security policy, and step
// execution all live behind these boundaries; the orchestrator never
// performs them itself.
package capability

import (
	"context"

	"github.com/deploykit/rollbackd/internal/core/domain"
)

// StateProvider captures and fingerprints system state.
type StateProvider interface {
	// Capture snapshots the current application/database/infrastructure
	// state and returns an opaque handle.
	Capture(ctx context.Context) (domain.StateSnapshot, error)

	// Checksum computes the current checksum of the data covered by the
	// given snapshot handle.
	Checksum(ctx context.Context, snapshot domain.StateSnapshot) (string, error)
}

// SystemMetrics is one reading from the metrics source.
type SystemMetrics struct {
	ErrorRate                float64 `json:"error_rate"`
	AvgResponseTimeMs        float64 `json:"avg_response_time_ms"`
	BaselineResponseTimeMs   float64 `json:"baseline_response_time_ms"`
	ThroughputPerSec         float64 `json:"throughput_per_sec"`
	BaselineThroughputPerSec float64 `json:"baseline_throughput_per_sec"`
	HealthyServices          int     `json:"healthy_services"`
	TotalServices            int     `json:"total_services"`
	ConsecutiveHealthFails   int     `json:"consecutive_health_check_failures"`
}

// MetricsProvider exposes the live system metrics driving verification
// scoring and auto-recovery triggers.
type MetricsProvider interface {
	Current(ctx context.Context) (SystemMetrics, error)
}

// StepResult is the outcome of dispatching one rollback step.
type StepResult struct {
	Output string
}

// CommandRunner executes a rollback step of a given type against the
// environment. A non-nil error marks the step failed.
type CommandRunner interface {
	Execute(ctx context.Context, stepType domain.StepType, spec domain.StepSpec) (StepResult, error)
}

// PolicyEvaluation is the security policy verdict for a snapshot.
type PolicyEvaluation struct {
	Score  float64
	Status domain.CheckStatus
}

// SecurityPolicyEvaluator scores a snapshot against security policy.
type SecurityPolicyEvaluator interface {
	Evaluate(ctx context.Context, snapshot domain.StateSnapshot) (PolicyEvaluation, error)
}
