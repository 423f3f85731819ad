package rollback

import (
	"sync"
	"time"

	"github.com/deploykit/rollbackd/internal/core/domain"
)

// EventType classifies execution events.
type EventType string

const (
	EventStatusChanged EventType = "status-changed"
	EventPhaseChanged  EventType = "phase-changed"
	EventStepChanged   EventType = "step-changed"
	EventLogAppended   EventType = "log-appended"
)

// Event is one observable change on a rollback execution.
type Event struct {
	Type        EventType              `json:"type"`
	ExecutionID string                 `json:"execution_id"`
	Status      domain.ExecutionStatus `json:"status,omitempty"`
	Phase       string                 `json:"phase,omitempty"`
	Step        string                 `json:"step,omitempty"`
	PhaseStatus domain.PhaseStatus     `json:"phase_status,omitempty"`
	Message     string                 `json:"message,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
}

// broadcaster fans execution events out to subscribers. Each execution owns
// one; there is no global emitter. Slow subscribers drop events rather than
// blocking the execution.
type broadcaster struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	closed bool
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[int]chan Event)}
}

// Subscribe registers a listener. The returned cancel func must be called
// when done; the channel is closed when the execution terminates.
func (b *broadcaster) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, 64)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

func (b *broadcaster) publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (b *broadcaster) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
