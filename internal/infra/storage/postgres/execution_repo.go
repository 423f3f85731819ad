package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/deploykit/rollbackd/internal/core/domain"
	"github.com/deploykit/rollbackd/internal/infra/storage"
)

// ExecutionRepo implements storage.ExecutionRepository using PostgreSQL.
type ExecutionRepo struct {
	db *DB
}

// NewExecutionRepo creates a new PostgreSQL execution repository.
func NewExecutionRepo(db *DB) *ExecutionRepo {
	return &ExecutionRepo{db: db}
}

// Save upserts an execution snapshot.
func (r *ExecutionRepo) Save(ctx context.Context, exec *domain.RollbackExecution) error {
	payload, err := json.Marshal(exec)
	if err != nil {
		return fmt.Errorf("failed to encode execution: %w", err)
	}

	var endedAt sql.NullTime
	if exec.EndedAt != nil {
		endedAt = sql.NullTime{Time: *exec.EndedAt, Valid: true}
	}

	query := `
		INSERT INTO rollback_executions (id, recovery_point_id, status, strategy, started_at, ended_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			status   = EXCLUDED.status,
			ended_at = EXCLUDED.ended_at,
			payload  = EXCLUDED.payload
	`
	_, err = r.db.ExecContext(
		ctx,
		query,
		exec.ID,
		exec.RecoveryPointID,
		string(exec.Status),
		string(exec.Strategy.Name),
		exec.StartedAt,
		endedAt,
		payload,
	)
	if err != nil {
		return fmt.Errorf("failed to save execution: %w", err)
	}
	return nil
}

// Get retrieves an execution by id.
func (r *ExecutionRepo) Get(ctx context.Context, id string) (*domain.RollbackExecution, error) {
	var payload []byte
	query := `SELECT payload FROM rollback_executions WHERE id = $1`

	err := r.db.GetContext(ctx, &payload, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrExecutionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get execution: %w", err)
	}

	var exec domain.RollbackExecution
	if err := json.Unmarshal(payload, &exec); err != nil {
		return nil, fmt.Errorf("failed to decode execution: %w", err)
	}
	return &exec, nil
}

// List returns all executions, newest first.
func (r *ExecutionRepo) List(ctx context.Context) ([]*domain.RollbackExecution, error) {
	var payloads [][]byte
	query := `SELECT payload FROM rollback_executions ORDER BY started_at DESC`

	if err := r.db.SelectContext(ctx, &payloads, query); err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	execs := make([]*domain.RollbackExecution, 0, len(payloads))
	for _, payload := range payloads {
		var exec domain.RollbackExecution
		if err := json.Unmarshal(payload, &exec); err != nil {
			return nil, fmt.Errorf("failed to decode execution: %w", err)
		}
		execs = append(execs, &exec)
	}
	return execs, nil
}
