package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// AttemptWindow is a redis-backed rolling window of auto-recovery attempts.
// Multiple daemon instances share the same rate budget through it.
type AttemptWindow struct {
	rdb       *redis.Client
	namespace string
	retention time.Duration
}

// NewAttemptWindow creates a window under the given namespace. retention
// bounds how long attempt records live; it should exceed the monitor's
// recovery window.
func NewAttemptWindow(client *Client, namespace string, retention time.Duration) *AttemptWindow {
	if retention <= 0 {
		retention = time.Hour
	}
	return &AttemptWindow{
		rdb:       client.rdb,
		namespace: namespace,
		retention: retention,
	}
}

func (w *AttemptWindow) key() string {
	return fmt.Sprintf("auto_recovery_attempts:%s", w.namespace)
}

// Count returns the number of attempts recorded at or after since.
func (w *AttemptWindow) Count(ctx context.Context, since time.Time) (int, error) {
	min := fmt.Sprintf("%d", since.UnixMilli())
	n, err := w.rdb.ZCount(ctx, w.key(), min, "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("zcount failed: %w", err)
	}
	return int(n), nil
}

// Record appends one attempt and trims records older than the retention.
func (w *AttemptWindow) Record(ctx context.Context, at time.Time) error {
	key := w.key()
	member := fmt.Sprintf("%d:%s", at.UnixMilli(), uuid.New().String())
	if err := w.rdb.ZAdd(ctx, key, redis.Z{
		Score:  float64(at.UnixMilli()),
		Member: member,
	}).Err(); err != nil {
		return fmt.Errorf("zadd failed: %w", err)
	}

	cutoff := fmt.Sprintf("%d", at.Add(-w.retention).UnixMilli())
	if err := w.rdb.ZRemRangeByScore(ctx, key, "-inf", cutoff).Err(); err != nil {
		return fmt.Errorf("zremrangebyscore failed: %w", err)
	}
	return nil
}
