package price

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

const defaultCacheTTL = 60 * time.Second

type cacheEntry struct {
	value   decimal.Decimal
	expires time.Time
}

// ttlCache is a single-writer-assumed, RWMutex-guarded map (spec §4.5: a
// per-process in-memory cache, not a shared one), sized for hundreds of
// symbols and safe for concurrent reads from parallel batch workers.
type ttlCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

func newTTLCache(ttl time.Duration) *ttlCache {
	return &ttlCache{ttl: ttl, entries: make(map[string]cacheEntry)}
}

func (c *ttlCache) get(symbol string) (decimal.Decimal, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[symbol]
	if !ok || time.Now().After(e.expires) {
		return decimal.Zero, false
	}
	return e.value, true
}

func (c *ttlCache) set(symbol string, d decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[symbol] = cacheEntry{value: d, expires: time.Now().Add(c.ttl)}
}
