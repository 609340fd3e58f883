// Package sources provides the five REST-backed price.Source
// implementations spec §4.5 enumerates (exchange A/B/C, a DEX
// aggregator, and a catch-all), each a thin net/http client ordered by a
// priority field resolved at construction time.
package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/bugchain/chainindexer/internal/price"
	"github.com/shopspring/decimal"
)

// Config is one source's enablement and priority, spec §4.5's
// "source.enabled / source.priority, per-source" knob.
type Config struct {
	Name     string
	Enabled  bool
	Priority int
	BaseURL  string
	APIKey   string
}

// httpSource is the shared shape of a single-symbol REST ticker lookup;
// each named source below only supplies the URL/parse differences.
type httpSource struct {
	name    string
	client  *http.Client
	baseURL string
	apiKey  string
	build   func(baseURL, apiKey, symbol string) (string, error)
	parse   func(body []byte) (decimal.Decimal, bool, error)
}

func (s *httpSource) Name() string { return s.name }

func (s *httpSource) Price(ctx context.Context, symbol string) (decimal.Decimal, bool, error) {
	reqURL, err := s.build(s.baseURL, s.apiKey, symbol)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("price/%s: build request: %w", s.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("price/%s: new request: %w", s.name, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("price/%s: request: %w", s.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return decimal.Zero, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, false, fmt.Errorf("price/%s: unexpected status %d", s.name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("price/%s: read response: %w", s.name, err)
	}
	return s.parse(body)
}

func newClient() *http.Client {
	return &http.Client{Timeout: 5 * time.Second}
}

// ExchangeA is the first-priority source: a major centralized exchange's
// public ticker endpoint.
func ExchangeA(cfg Config) *httpSource {
	return &httpSource{
		name: "exchange-a", client: newClient(), baseURL: cfg.BaseURL, apiKey: cfg.APIKey,
		build: func(base, _, symbol string) (string, error) {
			return fmt.Sprintf("%s/ticker/price?symbol=%sUSDT", base, url.QueryEscape(symbol)), nil
		},
		parse: func(body []byte) (decimal.Decimal, bool, error) {
			var out struct {
				Price string `json:"price"`
			}
			if err := json.Unmarshal(body, &out); err != nil {
				return decimal.Zero, false, err
			}
			if out.Price == "" {
				return decimal.Zero, false, nil
			}
			d, err := decimal.NewFromString(out.Price)
			return d, err == nil, err
		},
	}
}

// ExchangeB is the second-priority source, a different exchange's ticker.
func ExchangeB(cfg Config) *httpSource {
	return &httpSource{
		name: "exchange-b", client: newClient(), baseURL: cfg.BaseURL, apiKey: cfg.APIKey,
		build: func(base, _, symbol string) (string, error) {
			return fmt.Sprintf("%s/api/v3/simple/price?ids=%s&vs_currencies=usd", base, url.QueryEscape(symbol)), nil
		},
		parse: func(body []byte) (decimal.Decimal, bool, error) {
			var out map[string]struct {
				USD float64 `json:"usd"`
			}
			if err := json.Unmarshal(body, &out); err != nil {
				return decimal.Zero, false, err
			}
			for _, v := range out {
				return decimal.NewFromFloat(v.USD), true, nil
			}
			return decimal.Zero, false, nil
		},
	}
}

// ExchangeC is the third-priority source.
func ExchangeC(cfg Config) *httpSource {
	return &httpSource{
		name: "exchange-c", client: newClient(), baseURL: cfg.BaseURL, apiKey: cfg.APIKey,
		build: func(base, apiKey, symbol string) (string, error) {
			return fmt.Sprintf("%s/v2/quote?symbol=%s&apikey=%s", base, url.QueryEscape(symbol), apiKey), nil
		},
		parse: func(body []byte) (decimal.Decimal, bool, error) {
			var out struct {
				Quote struct {
					USD struct {
						Price float64 `json:"price"`
					} `json:"USD"`
				} `json:"quote"`
			}
			if err := json.Unmarshal(body, &out); err != nil {
				return decimal.Zero, false, err
			}
			if out.Quote.USD.Price == 0 {
				return decimal.Zero, false, nil
			}
			return decimal.NewFromFloat(out.Quote.USD.Price), true, nil
		},
	}
}

// DexAggregator is the fourth-priority source, useful for long-tail
// tokens absent from centralized exchange tickers.
func DexAggregator(cfg Config) *httpSource {
	return &httpSource{
		name: "dex-aggregator", client: newClient(), baseURL: cfg.BaseURL, apiKey: cfg.APIKey,
		build: func(base, _, symbol string) (string, error) {
			return fmt.Sprintf("%s/tokens/%s", base, url.PathEscape(symbol)), nil
		},
		parse: func(body []byte) (decimal.Decimal, bool, error) {
			var out struct {
				PriceUSD string `json:"priceUsd"`
			}
			if err := json.Unmarshal(body, &out); err != nil {
				return decimal.Zero, false, err
			}
			if out.PriceUSD == "" {
				return decimal.Zero, false, nil
			}
			d, err := decimal.NewFromString(out.PriceUSD)
			return d, err == nil, err
		},
	}
}

// Fallback is the last-resort, lowest-priority source.
func Fallback(cfg Config) *httpSource {
	return &httpSource{
		name: "fallback", client: newClient(), baseURL: cfg.BaseURL, apiKey: cfg.APIKey,
		build: func(base, _, symbol string) (string, error) {
			return fmt.Sprintf("%s/price?ticker=%s", base, url.QueryEscape(symbol)), nil
		},
		parse: func(body []byte) (decimal.Decimal, bool, error) {
			var out struct {
				USD float64 `json:"usd"`
			}
			if err := json.Unmarshal(body, &out); err != nil {
				return decimal.Zero, false, err
			}
			if out.USD == 0 {
				return decimal.Zero, false, nil
			}
			return decimal.NewFromFloat(out.USD), true, nil
		},
	}
}

// Ordered builds the five sources enabled in cfgs, sorted by descending
// priority (spec §4.5: "first non-null wins", tried in priority order).
func Ordered(cfgs []Config) []price.Source {
	builders := map[string]func(Config) *httpSource{
		"exchange-a":     ExchangeA,
		"exchange-b":     ExchangeB,
		"exchange-c":     ExchangeC,
		"dex-aggregator": DexAggregator,
		"fallback":       Fallback,
	}

	type ranked struct {
		priority int
		src      price.Source
	}
	var active []ranked
	for _, c := range cfgs {
		if !c.Enabled {
			continue
		}
		build, ok := builders[c.Name]
		if !ok {
			continue
		}
		active = append(active, ranked{priority: c.Priority, src: build(c)})
	}
	sort.Slice(active, func(i, j int) bool { return active[i].priority > active[j].priority })

	out := make([]price.Source, len(active))
	for i, r := range active {
		out[i] = r.src
	}
	return out
}
