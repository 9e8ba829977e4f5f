package query

import "sync"

// EventKind classifies cache events.
type EventKind int

const (
	EventResolved    EventKind = iota // A fetch for Key stored data.
	EventFailed                       // A fetch for Key failed.
	EventInvalidated                  // Every entry was marked stale.
)

func (k EventKind) String() string {
	switch k {
	case EventResolved:
		return "resolved"
	case EventFailed:
		return "failed"
	case EventInvalidated:
		return "invalidated"
	}
	return "unknown"
}

// Event is published to subscribers. Key is zero for EventInvalidated.
type Event struct {
	Kind EventKind
	Key  Key
}

// Subscription delivers cache events until Close is called. Resolved and
// failed events go to C and are dropped when C is full. Invalidations are
// never dropped: they coalesce into one pending signal on Invalidated.
type Subscription struct {
	C           <-chan Event
	Invalidated <-chan struct{}

	ch    chan Event
	inv   chan struct{}
	cache *Cache
	once  sync.Once
}

// Subscribe registers a new subscription.
func (c *Cache) Subscribe() *Subscription {
	ch := make(chan Event, c.buffer)
	inv := make(chan struct{}, 1)
	s := &Subscription{C: ch, Invalidated: inv, ch: ch, inv: inv, cache: c}
	c.mu.Lock()
	c.subs[s] = struct{}{}
	c.mu.Unlock()
	return s
}

// Next blocks until the next event. It returns false once the subscription
// is closed.
func (s *Subscription) Next() (Event, bool) {
	select {
	case ev, ok := <-s.C:
		return ev, ok
	case _, ok := <-s.Invalidated:
		return Event{Kind: EventInvalidated}, ok
	}
}

// Close unregisters the subscription and closes its channels. It is
// idempotent.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.cache.mu.Lock()
		delete(s.cache.subs, s)
		close(s.ch)
		close(s.inv)
		s.cache.mu.Unlock()
	})
}

// publishLocked fans ev out to every subscriber without blocking.
// c.mu must be held.
func (c *Cache) publishLocked(ev Event) {
	for s := range c.subs {
		if ev.Kind == EventInvalidated {
			select {
			case s.inv <- struct{}{}:
			default:
				// One is already pending.
			}
			continue
		}
		select {
		case s.ch <- ev:
		default:
		}
	}
}
