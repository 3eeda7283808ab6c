package events

import "sync"

// Event represents a structured state change emitted by the ledger.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Buffer holds events until Flush hands them to the downstream emitter. The
// ledger uses it so subscribers only see events of committed transactions.
type Buffer struct {
	pending []Event
}

// Emit queues the event.
func (b *Buffer) Emit(evt Event) {
	if evt == nil {
		return
	}
	b.pending = append(b.pending, evt)
}

// Events returns the queued events.
func (b *Buffer) Events() []Event {
	return append([]Event(nil), b.pending...)
}

// Flush forwards every queued event to dst and empties the buffer.
func (b *Buffer) Flush(dst Emitter) {
	if dst != nil {
		for _, evt := range b.pending {
			dst.Emit(evt)
		}
	}
	b.pending = nil
}

// Recorder keeps the most recent events in memory for queries.
type Recorder struct {
	mu     sync.RWMutex
	limit  int
	events []Event
}

// NewRecorder keeps at most limit events; limit <= 0 means 1024.
func NewRecorder(limit int) *Recorder {
	if limit <= 0 {
		limit = 1024
	}
	return &Recorder{limit: limit}
}

// Emit implements Emitter.
func (r *Recorder) Emit(evt Event) {
	if evt == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	if over := len(r.events) - r.limit; over > 0 {
		r.events = append([]Event(nil), r.events[over:]...)
	}
}

// Recent returns up to n of the newest events, oldest first.
func (r *Recorder) Recent(n int) []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n <= 0 || n > len(r.events) {
		n = len(r.events)
	}
	return append([]Event(nil), r.events[len(r.events)-n:]...)
}

// Multi fans events out to several emitters.
type Multi []Emitter

// Emit implements Emitter.
func (m Multi) Emit(evt Event) {
	for _, e := range m {
		if e != nil {
			e.Emit(evt)
		}
	}
}
