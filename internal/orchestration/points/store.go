// Package points creates, retains, and retires recovery points. Every point
// is verified at creation time and carries a TTL after which it is removed.
package points

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/deploykit/rollbackd/internal/core/clock"
	"github.com/deploykit/rollbackd/internal/core/domain"
	"github.com/deploykit/rollbackd/internal/infra/capability"
	"github.com/deploykit/rollbackd/internal/infra/storage"
	"github.com/deploykit/rollbackd/internal/orchestration/metrics"
	"github.com/deploykit/rollbackd/internal/orchestration/verify"
)

// ttlByKind is the retention lookup table.
var ttlByKind = map[domain.RecoveryPointKind]time.Duration{
	domain.KindAutomatic: 7 * 24 * time.Hour,
	domain.KindManual:    30 * 24 * time.Hour,
	domain.KindScheduled: 90 * 24 * time.Hour,
}

// CaptureError wraps a state-capture failure during point creation. The
// point is never stored when this is returned.
type CaptureError struct {
	Err error
}

func (e *CaptureError) Error() string { return fmt.Sprintf("state capture failed: %v", e.Err) }
func (e *CaptureError) Unwrap() error { return e.Err }

// Store manages the recovery point lifecycle.
type Store struct {
	repo   storage.RecoveryPointRepository
	state  capability.StateProvider
	engine *verify.Engine
	clock  clock.Clock
	log    *slog.Logger

	mu     sync.Mutex
	timers map[string]clock.Timer
}

// NewStore creates a recovery point store.
func NewStore(
	repo storage.RecoveryPointRepository,
	state capability.StateProvider,
	engine *verify.Engine,
	clk clock.Clock,
) *Store {
	if clk == nil {
		clk = clock.New()
	}
	return &Store{
		repo:   repo,
		state:  state,
		engine: engine,
		clock:  clk,
		log:    slog.Default(),
		timers: make(map[string]clock.Timer),
	}
}

// Create captures state, verifies it, and persists a new recovery point with
// a TTL derived from its kind. A capture failure aborts with no partial
// state persisted.
func (s *Store) Create(
	ctx context.Context,
	kind domain.RecoveryPointKind,
	trigger domain.RecoveryTrigger,
	metadata domain.PointMetadata,
) (*domain.RecoveryPoint, error) {
	snapshot, err := s.state.Capture(ctx)
	if err != nil {
		return nil, &CaptureError{Err: err}
	}

	point := &domain.RecoveryPoint{
		ID:           uuid.New().String(),
		CreatedAt:    s.clock.Now(),
		Kind:         kind,
		Trigger:      trigger,
		Metadata:     metadata,
		Snapshot:     snapshot,
		Verification: s.engine.Verify(ctx, snapshot),
		TTL:          ttlFor(kind),
	}

	if err := s.repo.Save(ctx, point); err != nil {
		return nil, fmt.Errorf("failed to save recovery point: %w", err)
	}
	s.scheduleExpiry(point)

	metrics.RecoveryPointsCreated.WithLabelValues(string(kind), string(trigger)).Inc()
	s.log.Info("recovery point created",
		"id", point.ID,
		"kind", kind,
		"trigger", trigger,
		"score", point.Verification.OverallScore,
		"passed", point.Verification.Passed,
		"ttl", point.TTL,
	)
	return point, nil
}

// Get retrieves a point by id. A point whose TTL has elapsed is unreachable
// even if its expiry timer has not fired yet.
func (s *Store) Get(ctx context.Context, id string) (*domain.RecoveryPoint, error) {
	point, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if point.Expired(s.clock.Now()) {
		s.expire(id)
		return nil, storage.ErrRecoveryPointNotFound
	}
	return point, nil
}

// List returns all unexpired points, newest first.
func (s *Store) List(ctx context.Context) ([]*domain.RecoveryPoint, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	out := all[:0]
	for _, p := range all {
		if !p.Expired(now) {
			out = append(out, p)
		}
	}
	return out, nil
}

// Delete removes a point and cancels its expiry timer. Deleting an unknown
// id is a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.cancelTimer(id)
	return s.repo.Delete(ctx, id)
}

// BestEligible returns the most recent point with a passed verification and
// an overall score of at least minScore, or nil when none qualifies.
func (s *Store) BestEligible(ctx context.Context, minScore float64) (*domain.RecoveryPoint, error) {
	list, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range list {
		if p.Verification.Passed && p.Verification.OverallScore >= minScore {
			return p, nil
		}
	}
	return nil, nil
}

// RunSweeper periodically purges expired points that outlived their
// in-process timers, e.g. points loaded from the database after a restart.
func (s *Store) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			removed, err := s.repo.DeleteExpired(ctx, s.clock.Now())
			if err != nil {
				s.log.Error("expiry sweep failed", "error", err)
				continue
			}
			for _, id := range removed {
				s.cancelTimer(id)
				metrics.RecoveryPointsExpired.Inc()
			}
			if len(removed) > 0 {
				s.log.Info("expired recovery points purged", "count", len(removed))
			}
		}
	}
}

func (s *Store) scheduleExpiry(point *domain.RecoveryPoint) {
	id := point.ID
	timer := s.clock.AfterFunc(point.TTL, func() { s.expire(id) })

	s.mu.Lock()
	s.timers[id] = timer
	s.mu.Unlock()
}

func (s *Store) expire(id string) {
	s.cancelTimer(id)
	if err := s.repo.Delete(context.Background(), id); err != nil {
		s.log.Error("failed to delete expired recovery point", "id", id, "error", err)
		return
	}
	metrics.RecoveryPointsExpired.Inc()
	s.log.Info("recovery point expired", "id", id)
}

func (s *Store) cancelTimer(id string) {
	s.mu.Lock()
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()
}

func ttlFor(kind domain.RecoveryPointKind) time.Duration {
	if ttl, ok := ttlByKind[kind]; ok {
		return ttl
	}
	return ttlByKind[domain.KindAutomatic]
}
