package rollback

import (
	"time"

	"github.com/deploykit/rollbackd/internal/core/domain"
)

// DefaultLogCap bounds the per-execution log buffer.
const DefaultLogCap = 1000

// logBuffer is an append-only capped ring of rollback log entries. The
// oldest entries are evicted once the cap is reached. Callers synchronize
// through the orchestrator's lock.
type logBuffer struct {
	entries []domain.RollbackLog
	start   int
	cap     int
}

func newLogBuffer(capacity int) *logBuffer {
	if capacity <= 0 {
		capacity = DefaultLogCap
	}
	return &logBuffer{cap: capacity}
}

func (b *logBuffer) append(ts time.Time, level domain.LogLevel, phase, step, message string) {
	entry := domain.RollbackLog{
		Timestamp: ts,
		Level:     level,
		Phase:     phase,
		Step:      step,
		Message:   message,
	}
	if len(b.entries) < b.cap {
		b.entries = append(b.entries, entry)
		return
	}
	b.entries[b.start] = entry
	b.start = (b.start + 1) % b.cap
}

// snapshot returns entries oldest first.
func (b *logBuffer) snapshot() []domain.RollbackLog {
	out := make([]domain.RollbackLog, 0, len(b.entries))
	for i := 0; i < len(b.entries); i++ {
		out = append(out, b.entries[(b.start+i)%len(b.entries)])
	}
	return out
}
