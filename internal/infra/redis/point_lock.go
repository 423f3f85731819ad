package redis

import (
	"context"
	"fmt"
	"time"
)

// PointLock serializes rollback execution per recovery point across daemon
// instances with a SET NX lease. The in-process orchestrator still guards
// against concurrent executions locally; this extends the guarantee to
// multi-instance deployments.
type PointLock struct {
	client *Client
	ttl    time.Duration
}

// NewPointLock creates a distributed per-point lock with the given lease.
func NewPointLock(client *Client, ttl time.Duration) *PointLock {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &PointLock{client: client, ttl: ttl}
}

func lockKey(pointID string) string {
	return fmt.Sprintf("rollback_lock:%s", pointID)
}

// Acquire attempts to take the per-point lease.
func (l *PointLock) Acquire(ctx context.Context, pointID string) (bool, error) {
	ok, err := l.client.rdb.SetNX(ctx, lockKey(pointID), "locked", l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("setnx failed: %w", err)
	}
	return ok, nil
}

// Release drops the lease.
func (l *PointLock) Release(ctx context.Context, pointID string) error {
	return l.client.rdb.Del(ctx, lockKey(pointID)).Err()
}

// Refresh extends the lease for a long-running execution.
func (l *PointLock) Refresh(ctx context.Context, pointID string) error {
	return l.client.rdb.Expire(ctx, lockKey(pointID), l.ttl).Err()
}
