package events

import (
	"sync"
	"sync/atomic"

	"challengechain/core/types"
)

// Feed fans committed events out to live subscribers. Emit never blocks: a
// subscriber whose queue is full misses the event and its drop count grows.
type Feed struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]*Subscription
}

// Subscription receives events from a Feed until cancelled.
type Subscription struct {
	C       <-chan types.Event
	ch      chan types.Event
	filter  func(types.Event) bool
	dropped atomic.Uint64
}

// Dropped reports how many events were skipped because the queue was full.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

func NewFeed() *Feed {
	return &Feed{subs: make(map[uint64]*Subscription)}
}

// Subscribe registers a subscriber with the given queue size. A nil filter
// accepts every event. The returned cancel func closes the channel and is
// safe to call more than once.
func (f *Feed) Subscribe(size int, filter func(types.Event) bool) (*Subscription, func()) {
	if size <= 0 {
		size = 64
	}
	ch := make(chan types.Event, size)
	sub := &Subscription{C: ch, ch: ch, filter: filter}

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = sub
	f.mu.Unlock()

	var once sync.Once
	return sub, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
			close(ch)
		})
	}
}

// Len returns the number of live subscribers.
func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Emit implements Emitter. Only events carrying a typed payload are
// forwarded.
func (f *Feed) Emit(evt Event) {
	carrier, ok := evt.(interface{ Event() *types.Event })
	if !ok || carrier.Event() == nil {
		return
	}
	payload := *carrier.Event()

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sub := range f.subs {
		if sub.filter != nil && !sub.filter(payload) {
			continue
		}
		select {
		case sub.ch <- payload:
		default:
			sub.dropped.Add(1)
		}
	}
}
