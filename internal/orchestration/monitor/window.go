package monitor

import (
	"context"
	"time"
)

// ExecutionCounter is the orchestrator-registry view the local window
// counts against.
type ExecutionCounter interface {
	CountStartedSince(t time.Time) int
}

// LocalWindow counts attempts from the in-process execution registry.
// Recording is a no-op because every initiated execution is already
// registered there.
type LocalWindow struct {
	counter ExecutionCounter
}

// NewLocalWindow creates a window over the orchestrator registry.
func NewLocalWindow(counter ExecutionCounter) *LocalWindow {
	return &LocalWindow{counter: counter}
}

func (w *LocalWindow) Count(_ context.Context, since time.Time) (int, error) {
	return w.counter.CountStartedSince(since), nil
}

func (w *LocalWindow) Record(context.Context, time.Time) error { return nil }
