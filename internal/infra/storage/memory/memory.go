package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/deploykit/rollbackd/internal/core/domain"
	"github.com/deploykit/rollbackd/internal/infra/storage"
)

// Store is the in-memory backing for all repositories. It is the default
// when no database is configured.
type Store struct {
	points     map[string]*domain.RecoveryPoint
	executions map[string]*domain.RollbackExecution
	mu         sync.RWMutex
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		points:     make(map[string]*domain.RecoveryPoint),
		executions: make(map[string]*domain.RollbackExecution),
	}
}

// -----------------------------------------------------------------------------
// Recovery Point Repository
// -----------------------------------------------------------------------------

type PointRepo struct {
	store *Store
}

func NewPointRepo(store *Store) *PointRepo {
	return &PointRepo{store: store}
}

func (r *PointRepo) Save(ctx context.Context, point *domain.RecoveryPoint) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *point
	r.store.points[point.ID] = &cp
	return nil
}

func (r *PointRepo) Get(ctx context.Context, id string) (*domain.RecoveryPoint, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	p, ok := r.store.points[id]
	if !ok {
		return nil, storage.ErrRecoveryPointNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *PointRepo) List(ctx context.Context) ([]*domain.RecoveryPoint, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]*domain.RecoveryPoint, 0, len(r.store.points))
	for _, p := range r.store.points {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *PointRepo) Delete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.points, id)
	return nil
}

func (r *PointRepo) DeleteExpired(ctx context.Context, now time.Time) ([]string, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var removed []string
	for id, p := range r.store.points {
		if p.Expired(now) {
			delete(r.store.points, id)
			removed = append(removed, id)
		}
	}
	return removed, nil
}

// -----------------------------------------------------------------------------
// Execution Repository
// -----------------------------------------------------------------------------

type ExecutionRepo struct {
	store *Store
}

func NewExecutionRepo(store *Store) *ExecutionRepo {
	return &ExecutionRepo{store: store}
}

func (r *ExecutionRepo) Save(ctx context.Context, exec *domain.RollbackExecution) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := cloneExecution(exec)
	r.store.executions[exec.ID] = cp
	return nil
}

func (r *ExecutionRepo) Get(ctx context.Context, id string) (*domain.RollbackExecution, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	e, ok := r.store.executions[id]
	if !ok {
		return nil, storage.ErrExecutionNotFound
	}
	return cloneExecution(e), nil
}

func (r *ExecutionRepo) List(ctx context.Context) ([]*domain.RollbackExecution, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]*domain.RollbackExecution, 0, len(r.store.executions))
	for _, e := range r.store.executions {
		out = append(out, cloneExecution(e))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out, nil
}

func cloneExecution(e *domain.RollbackExecution) *domain.RollbackExecution {
	cp := *e
	cp.Phases = make([]domain.RollbackPhase, len(e.Phases))
	for i, ph := range e.Phases {
		cp.Phases[i] = ph
		cp.Phases[i].Steps = append([]domain.RollbackStep(nil), ph.Steps...)
		cp.Phases[i].Dependencies = append([]string(nil), ph.Dependencies...)
	}
	cp.Approvals = append([]domain.Approval(nil), e.Approvals...)
	cp.Logs = append([]domain.RollbackLog(nil), e.Logs...)
	if e.Verification != nil {
		v := *e.Verification
		v.Checks = append([]domain.VerificationCheck(nil), e.Verification.Checks...)
		cp.Verification = &v
	}
	return &cp
}
