package storage

import (
	"context"
	"errors"
	"time"

	"github.com/deploykit/rollbackd/internal/core/domain"
)

var (
	// ErrRecoveryPointNotFound is returned when a recovery point doesn't exist.
	ErrRecoveryPointNotFound = errors.New("recovery point not found")

	// ErrExecutionNotFound is returned when a rollback execution doesn't exist.
	ErrExecutionNotFound = errors.New("rollback execution not found")
)

// RecoveryPointRepository persists recovery points.
type RecoveryPointRepository interface {
	// Save stores a recovery point. Points are immutable; Save is only
	// called once per id.
	Save(ctx context.Context, point *domain.RecoveryPoint) error

	// Get retrieves a point by id. Returns ErrRecoveryPointNotFound if absent.
	Get(ctx context.Context, id string) (*domain.RecoveryPoint, error)

	// List returns all stored points, newest first.
	List(ctx context.Context) ([]*domain.RecoveryPoint, error)

	// Delete removes a point. Deleting an absent id is a no-op.
	Delete(ctx context.Context, id string) error

	// DeleteExpired removes every point whose TTL has elapsed as of the
	// given instant and returns the ids removed.
	DeleteExpired(ctx context.Context, now time.Time) ([]string, error)
}

// ExecutionRepository persists rollback execution records for inspection
// across restarts. The live state machine stays in the orchestrator; this
// is its durable journal.
type ExecutionRepository interface {
	// Save upserts an execution snapshot.
	Save(ctx context.Context, exec *domain.RollbackExecution) error

	// Get retrieves an execution by id. Returns ErrExecutionNotFound if absent.
	Get(ctx context.Context, id string) (*domain.RollbackExecution, error)

	// List returns all executions, newest first.
	List(ctx context.Context) ([]*domain.RollbackExecution, error)
}
