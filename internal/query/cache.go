package query

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Status is the lifecycle state of a cache entry.
type Status int

const (
	StatusPending  Status = iota // First fetch in flight, no data yet.
	StatusResolved               // Data available.
	StatusFailed                 // Last fetch failed.
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusResolved:
		return "resolved"
	case StatusFailed:
		return "failed"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Snapshot is a read-only copy of an entry. Data may be set for a failed or
// stale entry; it is then the last value that resolved.
type Snapshot struct {
	Status    Status
	Data      any
	Err       error
	Stale     bool
	UpdatedAt time.Time
}

// Fetcher loads the value for a key.
type Fetcher func(ctx context.Context) (any, error)

type entry struct {
	status    Status
	data      any
	err       error
	stale     bool
	epoch     uint64 // invalidation epoch the stored value was fetched in
	updatedAt time.Time
}

// defaultSubscriberBuffer is the channel capacity of each subscription.
const defaultSubscriberBuffer = 16

// Cache is a keyed result cache. It is safe for concurrent use; views call
// it from tea.Cmd goroutines while the update loop reads snapshots.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]*entry
	epoch   uint64
	subs    map[*Subscription]struct{}
	group   singleflight.Group

	buffer int
	log    *zap.Logger
	now    func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger for hit/miss/invalidation tracing.
func WithLogger(log *zap.Logger) Option {
	return func(c *Cache) { c.log = log }
}

// WithSubscriberBuffer sets the channel capacity of new subscriptions.
func WithSubscriberBuffer(n int) Option {
	return func(c *Cache) { c.buffer = n }
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[Key]*entry),
		subs:    make(map[*Subscription]struct{}),
		buffer:  defaultSubscriberBuffer,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	return c
}

// Fetch returns the cached value for key when it is resolved and not stale.
// Otherwise it calls fn, joining an identical in-flight call if one exists.
// The shared call is detached from ctx cancellation: a caller going away does
// not abort a fetch other callers may be waiting on.
func (c *Cache) Fetch(ctx context.Context, key Key, fn Fetcher) (any, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok && e.status == StatusResolved && !e.stale {
		data := e.data
		c.mu.Unlock()
		c.log.Debug("query hit", zap.Stringer("key", key))
		return data, nil
	}
	if !ok {
		e = &entry{status: StatusPending}
		c.entries[key] = e
	}
	c.mu.Unlock()

	detached := context.WithoutCancel(ctx)
	v, err, shared := c.group.Do(key.String(), func() (any, error) {
		c.mu.Lock()
		start := c.epoch
		c.mu.Unlock()

		c.log.Debug("query fetch", zap.Stringer("key", key))
		data, err := fn(detached)
		c.store(key, start, data, err)
		return data, err
	})
	if shared {
		c.log.Debug("query joined in-flight fetch", zap.Stringer("key", key))
	}
	return v, err
}

// Get is a typed Fetch.
func Get[T any](ctx context.Context, c *Cache, key Key, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	v, err := c.Fetch(ctx, key, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("query: %s holds %T, not %T", key, v, zero)
	}
	return t, nil
}

// store records the outcome of a fetch that started in epoch start.
func (c *Cache) store(key Key, start uint64, data any, err error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		// Cleared while in flight.
		c.mu.Unlock()
		return
	}
	if e.status == StatusResolved && e.epoch > start {
		// A fetch started after ours already stored a newer value.
		c.mu.Unlock()
		return
	}

	kind := EventResolved
	if err != nil {
		kind = EventFailed
		e.status = StatusFailed
		e.err = err
	} else {
		e.status = StatusResolved
		e.data = data
		e.err = nil
		e.epoch = start
	}
	e.stale = start != c.epoch
	e.updatedAt = c.now()
	c.publishLocked(Event{Kind: kind, Key: key})
	c.mu.Unlock()

	if err != nil {
		c.log.Debug("query failed", zap.Stringer("key", key), zap.Error(err))
	}
}

// Peek returns a snapshot of key without fetching.
func (c *Cache) Peek(key Key) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return Snapshot{}, false
	}
	return Snapshot{
		Status:    e.status,
		Data:      e.data,
		Err:       e.err,
		Stale:     e.stale,
		UpdatedAt: e.updatedAt,
	}, true
}

// InvalidateAll marks every entry stale, detaches in-flight fetches so the
// next Fetch starts a fresh call, and notifies subscribers.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.epoch++
	for key, e := range c.entries {
		e.stale = true
		c.group.Forget(key.String())
	}
	n := len(c.entries)
	c.publishLocked(Event{Kind: EventInvalidated})
	c.mu.Unlock()

	c.log.Debug("query invalidated", zap.Int("entries", n))
}

// Clear drops every entry. Fetches still in flight complete but are not
// stored. Subscriptions stay open.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	for key := range c.entries {
		c.group.Forget(key.String())
	}
	c.entries = make(map[Key]*entry)
}

// Epoch returns the current invalidation epoch. It increases on every
// InvalidateAll and Clear.
func (c *Cache) Epoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
