package explorer

import (
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"
)

// keyRing rotates API credentials on rate-limit/invalid-key responses and
// after a configured per-key request budget (spec §4.2), each key gated
// by its own rate.Limiter.
type keyRing struct {
	mu       sync.Mutex
	keys     []string
	limiters []*rate.Limiter
	budget   int
	idx      int
	used     atomic.Int64
}

func newKeyRing(keys []string, requestsPerKey int, perSecond float64) *keyRing {
	if len(keys) == 0 {
		keys = []string{""}
	}
	if perSecond <= 0 {
		perSecond = 5
	}
	limiters := make([]*rate.Limiter, len(keys))
	for i := range keys {
		limiters[i] = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
	return &keyRing{keys: keys, limiters: limiters, budget: requestsPerKey}
}

func (r *keyRing) size() int { return len(r.keys) }

func (r *keyRing) current() (string, *rate.Limiter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.keys[r.idx], r.limiters[r.idx]
}

func (r *keyRing) rotate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.idx = (r.idx + 1) % len(r.keys)
	r.used.Store(0)
}

// recordRequest rotates the active key once its request budget is spent,
// spec §4.2's "after a configured number of requests per key".
func (r *keyRing) recordRequest() {
	if r.budget <= 0 {
		return
	}
	if r.used.Add(1) >= int64(r.budget) {
		r.rotate()
	}
}
