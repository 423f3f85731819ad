package rollback

import (
	"errors"
	"fmt"
)

var (
	// ErrStrategyNotFound is returned for an unknown strategy name.
	ErrStrategyNotFound = errors.New("rollback strategy not found")

	// ErrRollbackInProgress is returned when another execution for the
	// same recovery point is still active.
	ErrRollbackInProgress = errors.New("rollback already in progress for recovery point")

	// ErrUnknownRole is returned when an approval decision names a role
	// outside the fixed role set.
	ErrUnknownRole = errors.New("unknown approval role")

	// ErrNotCancellable is returned when cancelling an execution that has
	// already left the pending state.
	ErrNotCancellable = errors.New("execution is not cancellable")
)

// StepExecutionError records a rollback step whose external dispatch failed.
type StepExecutionError struct {
	Phase string
	Step  string
	Err   error
}

func (e *StepExecutionError) Error() string {
	return fmt.Sprintf("step %q in phase %q failed: %v", e.Step, e.Phase, e.Err)
}

func (e *StepExecutionError) Unwrap() error { return e.Err }
