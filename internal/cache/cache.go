package cache

import (
	"context"
	"sync"
	"time"
)

// PriceCache stores the most recently fetched price per symbol. Entries are
// advisory: a hit within the TTL suppresses an upstream call, and stale
// entries remain readable as a last-resort fallback value.
type PriceCache interface {
	// Get returns the cached price and its age when the entry is fresher
	// than the TTL; otherwise it reports a miss.
	Get(ctx context.Context, symbol string) (price float64, age time.Duration, ok bool)

	// GetAny returns the cached price regardless of age.
	GetAny(ctx context.Context, symbol string) (price float64, ok bool)

	// Put unconditionally overwrites the entry for symbol.
	Put(ctx context.Context, symbol string, price float64)
}

type memoryEntry struct {
	price     float64
	fetchedAt time.Time
}

// MemoryCache is the in-memory PriceCache backend. Process-lifetime only,
// rebuilt from zero on restart.
type MemoryCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemoryCache creates an in-memory price cache with the given TTL.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

// SetNowFunc overrides the clock, used by tests.
func (c *MemoryCache) SetNowFunc(now func() time.Time) {
	c.now = now
}

// Get returns a fresh entry for symbol, if any.
func (c *MemoryCache) Get(_ context.Context, symbol string) (float64, time.Duration, bool) {
	c.mu.RLock()
	e, ok := c.entries[symbol]
	c.mu.RUnlock()

	if !ok {
		return 0, 0, false
	}

	age := c.now().Sub(e.fetchedAt)
	if age >= c.ttl {
		return 0, 0, false
	}

	return e.price, age, true
}

// GetAny returns the entry for symbol even when expired.
func (c *MemoryCache) GetAny(_ context.Context, symbol string) (float64, bool) {
	c.mu.RLock()
	e, ok := c.entries[symbol]
	c.mu.RUnlock()

	if !ok {
		return 0, false
	}
	return e.price, true
}

// Put overwrites the entry for symbol.
func (c *MemoryCache) Put(_ context.Context, symbol string, price float64) {
	c.mu.Lock()
	c.entries[symbol] = memoryEntry{price: price, fetchedAt: c.now()}
	c.mu.Unlock()
}
