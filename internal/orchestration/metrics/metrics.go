package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecoveryPointsCreated tracks recovery points created per kind and trigger
	RecoveryPointsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rollbackd_recovery_points_created_total",
			Help: "Total number of recovery points created",
		},
		[]string{"kind", "trigger"},
	)

	// RecoveryPointsExpired tracks recovery points removed by TTL expiry
	RecoveryPointsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rollbackd_recovery_points_expired_total",
			Help: "Total number of recovery points removed by TTL expiry",
		},
	)

	// VerificationsTotal tracks verification runs by outcome
	VerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rollbackd_verifications_total",
			Help: "Total number of verification runs",
		},
		[]string{"result"},
	)

	// VerificationScore tracks the distribution of overall verification scores
	VerificationScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rollbackd_verification_score",
			Help:    "Overall verification score distribution",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	// RollbacksTotal tracks rollback executions reaching a terminal state
	RollbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rollbackd_rollbacks_total",
			Help: "Total number of rollback executions by terminal status",
		},
		[]string{"strategy", "status"},
	)

	// ActiveExecutions tracks executions currently in a non-terminal state
	ActiveExecutions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rollbackd_active_executions",
			Help: "Rollback executions currently in a non-terminal state",
		},
	)

	// StepDuration tracks rollback step execution latency
	StepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rollbackd_step_duration_seconds",
			Help:    "Rollback step execution latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"type", "status"},
	)

	// AutoRecoveryTriggers tracks monitor trigger evaluations by outcome
	AutoRecoveryTriggers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rollbackd_auto_recovery_triggers_total",
			Help: "Auto-recovery trigger evaluations by outcome",
		},
		[]string{"outcome"},
	)

	// ApprovalsTotal tracks approval decisions
	ApprovalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rollbackd_approvals_total",
			Help: "Total number of approval decisions applied",
		},
		[]string{"role", "decision"},
	)
)
