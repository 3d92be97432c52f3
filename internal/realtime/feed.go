// Package realtime delivers live message lists. A Feed announces which
// message ids changed; a Stream keeps the result of one query current by
// re-reading the changed ids.
package realtime

import (
	"sync"
)

// DefaultMaxPending is the number of distinct pending ids a subscription
// holds before it gives up tracking them and asks for a full resync
const DefaultMaxPending = 1024

// Feed is an in-process change feed. Publishers never block.
type Feed struct {
	mu         sync.Mutex
	subs       map[*Subscription]struct{}
	maxPending int
}

// NewFeed creates a Feed. maxPending <= 0 uses DefaultMaxPending.
func NewFeed(maxPending int) *Feed {
	if maxPending <= 0 {
		maxPending = DefaultMaxPending
	}
	return &Feed{
		subs:       make(map[*Subscription]struct{}),
		maxPending: maxPending,
	}
}

// Publish announces that the given message ids changed
func (f *Feed) Publish(ids ...string) {
	if f == nil || len(ids) == 0 {
		return
	}
	f.mu.Lock()
	subs := make([]*Subscription, 0, len(f.subs))
	for s := range f.subs {
		subs = append(subs, s)
	}
	f.mu.Unlock()

	for _, s := range subs {
		s.add(ids)
	}
}

// Subscribe registers a new subscription. Callers must Close it.
func (f *Feed) Subscribe() *Subscription {
	s := &Subscription{
		feed:    f,
		pending: make(map[string]struct{}),
		signal:  make(chan struct{}, 1),
		max:     f.maxPending,
	}
	f.mu.Lock()
	f.subs[s] = struct{}{}
	f.mu.Unlock()
	return s
}

// Subscribers returns the number of open subscriptions
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *Feed) remove(s *Subscription) {
	f.mu.Lock()
	delete(f.subs, s)
	f.mu.Unlock()
}

// Subscription accumulates changed ids between drains.
// Repeated changes to the same id coalesce.
type Subscription struct {
	feed *Feed

	mu       sync.Mutex
	pending  map[string]struct{}
	overflow bool
	closed   bool
	max      int

	signal chan struct{}
}

func (s *Subscription) add(ids []string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if !s.overflow {
		for _, id := range ids {
			s.pending[id] = struct{}{}
		}
		if len(s.pending) > s.max {
			s.overflow = true
			s.pending = make(map[string]struct{})
		}
	}
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
}

// C is signalled whenever changes are waiting to be drained
func (s *Subscription) C() <-chan struct{} {
	return s.signal
}

// Drain returns and clears the pending ids.
// resync is true when too many changes arrived and the caller must refetch everything.
func (s *Subscription) Drain() (ids []string, resync bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resync = s.overflow
	s.overflow = false
	if len(s.pending) > 0 {
		ids = make([]string, 0, len(s.pending))
		for id := range s.pending {
			ids = append(ids, id)
		}
		s.pending = make(map[string]struct{})
	}
	return ids, resync
}

// Close detaches the subscription from its feed. Safe to call more than once.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.pending = nil
	s.mu.Unlock()
	s.feed.remove(s)
}
