// Package nickname resolves display names for users through a chain of
// strategies and caches the results.
//
// The cache is bounded and evicts in insertion order (FIFO). Reads do not
// refresh an entry's position, and refreshing an existing entry keeps its
// original position. Entries older than the TTL are treated as misses and are
// removed on access or by the periodic sweep.
package nickname

import (
	"container/list"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/pscheid92/chatledger/internal/domain"
)

// Eviction reasons reported to the Observer.
const (
	EvictCapacity = "capacity"
	EvictExpired  = "expired"
)

// Observer receives cache events, typically to feed metrics.
type Observer interface {
	ObserveLookup(hit bool)
	ObserveEviction(reason string, n int)
}

type key struct {
	scope  string
	userID string
}

type entry struct {
	key      key
	name     string
	storedAt time.Time
}

type Cache struct {
	maxSize  int
	ttl      time.Duration
	clock    clockwork.Clock
	chain    []domain.NameResolver
	fallback func(userID string) string
	observer Observer
	flight   singleflight.Group

	mu      sync.Mutex
	entries map[key]*list.Element
	order   *list.List
}

type Option func(*Cache)

// WithFallback sets the name used when every strategy fails.
func WithFallback(fn func(userID string) string) Option {
	return func(c *Cache) { c.fallback = fn }
}

func WithObserver(o Observer) Option {
	return func(c *Cache) { c.observer = o }
}

// DefaultFallback renders a placeholder name from the user ID.
func DefaultFallback(userID string) string {
	return "User " + userID
}

func New(maxSize int, ttl time.Duration, clock clockwork.Clock, chain []domain.NameResolver, opts ...Option) *Cache {
	if maxSize < 1 {
		maxSize = 1
	}
	c := &Cache{
		maxSize:  maxSize,
		ttl:      ttl,
		clock:    clock,
		chain:    chain,
		fallback: DefaultFallback,
		entries:  make(map[key]*list.Element),
		order:    list.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resolve returns a display name for userID in scope. It never fails: a cache
// hit wins, then the first strategy producing a usable name, then the
// fallback. Concurrent misses for the same key share one lookup.
func (c *Cache) Resolve(ctx context.Context, scope, userID string) string {
	if name, ok := c.Get(scope, userID); ok {
		c.observeLookup(true)
		return name
	}
	c.observeLookup(false)

	v, _, _ := c.flight.Do(scope+"\x00"+userID, func() (any, error) {
		name := c.lookup(ctx, scope, userID)
		// a cancelled lookup may have skipped working strategies
		if ctx.Err() == nil {
			c.Set(scope, userID, name)
		}
		return name, nil
	})
	return v.(string)
}

func (c *Cache) lookup(ctx context.Context, scope, userID string) string {
	for _, resolver := range c.chain {
		candidate, err := resolver.ResolveName(ctx, scope, userID)
		if err != nil {
			slog.DebugContext(ctx, "Name strategy failed", "scope", scope, "user", userID, "error", err)
			continue
		}
		if name, ok := usable(candidate, userID); ok {
			return name
		}
	}
	return c.fallback(userID)
}

// Get returns a cached, unexpired name.
func (c *Cache) Get(scope, userID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key{scope, userID}]
	if !ok {
		return "", false
	}
	e := el.Value.(*entry)
	if c.expired(e, c.clock.Now()) {
		c.removeElement(el)
		c.observeEviction(EvictExpired, 1)
		return "", false
	}
	return e.name, true
}

// Set stores a name. Existing entries are refreshed in place; new entries go
// to the back and push out the oldest entries beyond capacity.
func (c *Cache) Set(scope, userID, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := key{scope, userID}
	now := c.clock.Now()
	if el, ok := c.entries[k]; ok {
		e := el.Value.(*entry)
		e.name = name
		e.storedAt = now
		return
	}

	c.entries[k] = c.order.PushBack(&entry{key: k, name: name, storedAt: now})

	evicted := 0
	for c.order.Len() > c.maxSize {
		c.removeElement(c.order.Front())
		evicted++
	}
	if evicted > 0 {
		c.observeEviction(EvictCapacity, evicted)
	}
}

// Invalidate drops the entry for userID in scope.
func (c *Cache) Invalidate(scope, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key{scope, userID}]; ok {
		c.removeElement(el)
	}
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// EvictExpired removes every expired entry and returns how many it removed.
func (c *Cache) EvictExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	evicted := 0
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		if c.expired(el.Value.(*entry), now) {
			c.removeElement(el)
			evicted++
		}
		el = next
	}
	if evicted > 0 {
		c.observeEviction(EvictExpired, evicted)
	}
	return evicted
}

// StartEvictionTimer runs EvictExpired every interval until the returned stop
// function is called.
func (c *Cache) StartEvictionTimer(interval time.Duration) func() {
	ticker := c.clock.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.Chan():
				if evicted := c.EvictExpired(); evicted > 0 {
					slog.Debug("Evicted expired nicknames", "count", evicted, "remaining", c.Len())
				}
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

func (c *Cache) expired(e *entry, now time.Time) bool {
	return now.Sub(e.storedAt) >= c.ttl
}

// removeElement requires c.mu.
func (c *Cache) removeElement(el *list.Element) {
	e := c.order.Remove(el).(*entry)
	delete(c.entries, e.key)
}

func (c *Cache) observeLookup(hit bool) {
	if c.observer != nil {
		c.observer.ObserveLookup(hit)
	}
}

func (c *Cache) observeEviction(reason string, n int) {
	if c.observer != nil {
		c.observer.ObserveEviction(reason, n)
	}
}
