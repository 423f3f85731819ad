package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/deploykit/rollbackd/internal/core/domain"
	"github.com/deploykit/rollbackd/internal/infra/storage"
)

// PointRepo implements storage.RecoveryPointRepository using PostgreSQL.
// The full point is stored as a JSONB payload; the indexed columns exist
// for listing order and expiry sweeps.
type PointRepo struct {
	db *DB
}

// NewPointRepo creates a new PostgreSQL recovery point repository.
func NewPointRepo(db *DB) *PointRepo {
	return &PointRepo{db: db}
}

// Save stores a recovery point.
func (r *PointRepo) Save(ctx context.Context, point *domain.RecoveryPoint) error {
	payload, err := json.Marshal(point)
	if err != nil {
		return fmt.Errorf("failed to encode recovery point: %w", err)
	}

	query := `
		INSERT INTO recovery_points (id, kind, trigger, created_at, expires_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload
	`
	_, err = r.db.ExecContext(
		ctx,
		query,
		point.ID,
		string(point.Kind),
		string(point.Trigger),
		point.CreatedAt,
		point.ExpiresAt(),
		payload,
	)
	if err != nil {
		return fmt.Errorf("failed to save recovery point: %w", err)
	}
	return nil
}

// Get retrieves a point by id.
func (r *PointRepo) Get(ctx context.Context, id string) (*domain.RecoveryPoint, error) {
	var payload []byte
	query := `SELECT payload FROM recovery_points WHERE id = $1`

	err := r.db.GetContext(ctx, &payload, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrRecoveryPointNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recovery point: %w", err)
	}

	var point domain.RecoveryPoint
	if err := json.Unmarshal(payload, &point); err != nil {
		return nil, fmt.Errorf("failed to decode recovery point: %w", err)
	}
	return &point, nil
}

// List returns all stored points, newest first.
func (r *PointRepo) List(ctx context.Context) ([]*domain.RecoveryPoint, error) {
	var payloads [][]byte
	query := `SELECT payload FROM recovery_points ORDER BY created_at DESC`

	if err := r.db.SelectContext(ctx, &payloads, query); err != nil {
		return nil, fmt.Errorf("failed to list recovery points: %w", err)
	}

	points := make([]*domain.RecoveryPoint, 0, len(payloads))
	for _, payload := range payloads {
		var point domain.RecoveryPoint
		if err := json.Unmarshal(payload, &point); err != nil {
			return nil, fmt.Errorf("failed to decode recovery point: %w", err)
		}
		points = append(points, &point)
	}
	return points, nil
}

// Delete removes a point. Deleting an absent id is a no-op.
func (r *PointRepo) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM recovery_points WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete recovery point: %w", err)
	}
	return nil
}

// DeleteExpired removes every point whose TTL has elapsed and returns the
// ids removed.
func (r *PointRepo) DeleteExpired(ctx context.Context, now time.Time) ([]string, error) {
	var ids []string
	query := `DELETE FROM recovery_points WHERE expires_at <= $1 RETURNING id`

	if err := r.db.SelectContext(ctx, &ids, query, now); err != nil {
		return nil, fmt.Errorf("failed to delete expired recovery points: %w", err)
	}
	return ids, nil
}
