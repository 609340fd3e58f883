// Package price is C5: multi-source USD price lookup with a TTL cache
// and DB-backed persistence (spec §4.5), modeled on the go-ethereum
// tutorial's layered-client style and the decimal-first valuation
// approach of go-coffee's smart-contract engine.
package price

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Source is one upstream price feed.
type Source interface {
	Name() string
	Price(ctx context.Context, symbol string) (decimal.Decimal, bool, error)
}

// BulkSource is implemented by the top-priority source when it exposes a
// single wide ticker response, avoiding N round trips for N symbols.
type BulkSource interface {
	Source
	BulkPrices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error)
}

// Store is the subset of internal/store.Store the oracle needs.
type Store interface {
	UpsertSymbolPrice(ctx context.Context, row PersistedPrice) error
	SymbolPrice(ctx context.Context, symbol string) (*PersistedPrice, error)
}

// PersistedPrice mirrors store.SymbolPrice without importing internal/store,
// keeping this package DB-agnostic; the cmd wiring adapts between the two.
type PersistedPrice struct {
	Symbol      string
	PriceUSD    float64
	Decimals    int
	Name        string
	LastUpdated int64
}

// ReferenceCeiling is the sanity-check upper bound from spec §4.5: a
// price above this is almost certainly the known upstream bug, not a
// real valuation, and is treated as a miss rather than trusted.
var ReferenceCeiling = decimal.NewFromInt(10_000_000)

// IsValid rejects non-finite, negative, or implausibly large quotes.
func IsValid(d decimal.Decimal) bool {
	if d.IsNegative() {
		return false
	}
	return d.LessThanOrEqual(ReferenceCeiling)
}

// Options configure a single Price call.
type Options struct {
	ForceRefresh bool
}

type Option func(*Options)

// WithForceRefresh bypasses the TTL cache and staleness check.
func WithForceRefresh() Option { return func(o *Options) { o.ForceRefresh = true } }

// Oracle fans a symbol lookup out across ordered sources, with an
// in-memory TTL cache in front and DB persistence behind.
type Oracle struct {
	sources []Source
	cache   *ttlCache
	store   Store
	log     *zap.SugaredLogger
}

// New builds an Oracle. sources must already be ordered by priority
// (highest first); sources.Ordered in sources/sources.go does that
// ordering for the five built-in feeds.
func New(sources []Source, store Store, log *zap.SugaredLogger) *Oracle {
	return &Oracle{
		sources: sources,
		cache:   newTTLCache(defaultCacheTTL),
		store:   store,
		log:     log,
	}
}

// Price resolves symbol to a USD decimal, trying the cache, then each
// source in priority order, then falling back to the last DB-persisted
// value if every source misses.
func (o *Oracle) Price(ctx context.Context, symbol string, opts ...Option) (decimal.Decimal, error) {
	var cfg Options
	for _, opt := range opts {
		opt(&cfg)
	}

	if !cfg.ForceRefresh {
		if d, ok := o.cache.get(symbol); ok {
			return d, nil
		}
	}

	for _, src := range o.sources {
		d, ok, err := src.Price(ctx, symbol)
		if err != nil {
			o.log.Warnw("price source failed", "source", src.Name(), "symbol", symbol, "error", err)
			continue
		}
		if !ok {
			continue
		}
		if !IsValid(d) {
			o.log.Warnw("price source returned implausible value, discarding", "source", src.Name(), "symbol", symbol, "value", d.String())
			continue
		}
		o.cache.set(symbol, d)
		if o.store != nil {
			if err := o.store.UpsertSymbolPrice(ctx, PersistedPrice{Symbol: symbol, PriceUSD: d.InexactFloat64(), LastUpdated: time.Now().Unix()}); err != nil {
				o.log.Warnw("failed to persist symbol price", "symbol", symbol, "error", err)
			}
		}
		return d, nil
	}

	if o.store != nil {
		if row, err := o.store.SymbolPrice(ctx, symbol); err == nil && row != nil {
			o.log.Warnw("all price sources missed, serving last persisted value", "symbol", symbol)
			return decimal.NewFromFloat(row.PriceUSD), nil
		}
	}

	return decimal.Zero, fmt.Errorf("price: no source or persisted value available for %s", symbol)
}

// BulkRefresh refreshes many symbols as cheaply as possible: a single
// wide call to the top-priority source if it implements BulkSource, then
// per-symbol fallback for whatever it missed.
func (o *Oracle) BulkRefresh(ctx context.Context, symbols []string) error {
	remaining := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		remaining[s] = true
	}

	if len(o.sources) > 0 {
		if bulk, ok := o.sources[0].(BulkSource); ok {
			prices, err := bulk.BulkPrices(ctx, symbols)
			if err != nil {
				o.log.Warnw("bulk price fetch failed, falling back per-symbol", "source", bulk.Name(), "error", err)
			} else {
				for sym, d := range prices {
					if !IsValid(d) {
						continue
					}
					o.cache.set(sym, d)
					delete(remaining, sym)
					if o.store != nil {
						if err := o.store.UpsertSymbolPrice(ctx, PersistedPrice{Symbol: sym, PriceUSD: d.InexactFloat64(), LastUpdated: time.Now().Unix()}); err != nil {
							o.log.Warnw("failed to persist bulk symbol price", "symbol", sym, "error", err)
						}
					}
				}
			}
		}
	}

	miss := make([]string, 0, len(remaining))
	for s := range remaining {
		miss = append(miss, s)
	}
	sort.Strings(miss)

	for _, sym := range miss {
		if _, err := o.Price(ctx, sym, WithForceRefresh()); err != nil {
			o.log.Warnw("bulk refresh per-symbol fallback failed", "symbol", sym, "error", err)
		}
	}
	return nil
}
