package domain

import "time"

// StrategyName identifies a rollback execution style.
type StrategyName string

const (
	StrategyBlueGreen        StrategyName = "blue-green"
	StrategyRolling          StrategyName = "rolling"
	StrategyImmediate        StrategyName = "immediate"
	StrategyCanary           StrategyName = "canary"
	StrategyDatabaseFirst    StrategyName = "database-first"
	StrategyApplicationFirst StrategyName = "application-first"
)

// StepSpec describes a validation or remediation command attached to a
// strategy's plan. TimeoutSeconds of zero means the step inherits the
// strategy timeout.
type StepSpec struct {
	Name           string   `json:"name"            yaml:"name"`
	Type           StepType `json:"type"            yaml:"type"`
	Command        string   `json:"command"         yaml:"command"`
	TimeoutSeconds int      `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// ValidationPlan holds the pre- and post-rollback validation steps a
// strategy runs around the rollback phases.
type ValidationPlan struct {
	PreRollback  []StepSpec `json:"pre_rollback"  yaml:"pre_rollback"`
	PostRollback []StepSpec `json:"post_rollback" yaml:"post_rollback"`
}

// Strategy defines the shape and failure policy of a rollback. Strategies
// are data, not behavior: the orchestrator builds the phase plan from these
// fields so styles stay comparable and testable.
type Strategy struct {
	Name              StrategyName   `json:"name"`
	Description       string         `json:"description,omitempty"`
	Validation        ValidationPlan `json:"validation"`
	Timeout           time.Duration  `json:"timeout"`
	Parallelize       bool           `json:"parallelize"`
	RollbackOnFailure bool           `json:"rollback_on_failure"`
}
