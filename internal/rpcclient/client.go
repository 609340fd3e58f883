// Package rpcclient implements C1: typed JSON-RPC calls to a chain's
// gateway, tier detection, retry/backoff, and response-size-aware getLogs
// (spec §4.1). The client classifies failures (internal/rpcerr) but never
// decides to shrink or exclude a range — that policy lives in the caller
// (internal/scanner).
package rpcclient

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/bugchain/chainindexer/internal/config"
	"github.com/bugchain/chainindexer/internal/rpcerr"
)

// Tier is the gateway's service tier, reused from config so job wiring and
// the client agree on the same enum.
type Tier = config.Tier

// TierBlockSpan is the per-chain, per-tier maximum getLogs block span
// (spec §4.1). Chains/tiers not present fall back to DefaultBlockSpan.
var TierBlockSpan = map[string]map[Tier]uint64{
	"ethereum": {config.TierFree: 2000, config.TierPremium: 10000},
	"polygon":  {config.TierFree: 3500, config.TierPremium: 10000},
	"bsc":      {config.TierFree: 5000, config.TierPremium: 10000},
}

// DefaultBlockSpan is used for unconfigured chain/tier combinations.
const DefaultBlockSpan = 10

// TierProbe performs a cheap, gateway-specific call that reveals the
// service tier. Each chain injects its own; a nil probe always yields
// TierFree.
type TierProbe func(ctx context.Context, raw *ethclient.Client) (Tier, error)

// Client is the C1 contract.
type Client interface {
	BlockNumber(ctx context.Context) (uint64, error)
	GetBlock(ctx context.Context, n uint64) (*types.Block, error)
	GetLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	Call(ctx context.Context, addr common.Address, data []byte) ([]byte, error)
	GetCode(ctx context.Context, addr common.Address) ([]byte, error)
	Request(ctx context.Context, method string, params ...any) (json.RawMessage, error)
	Tier() Tier
	MaxBlockSpan() uint64
	Close()
}

type gateway struct {
	url     string
	raw     *ethclient.Client
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

// client is the default Client implementation: one or more gateways
// (primary + fallbacks), a shared retry policy, and a tier probed lazily
// on first use.
type client struct {
	network    string
	gateways   []*gateway
	maxRetries uint64
	tierProbe  TierProbe
	useProxy   bool

	tier     Tier
	tierDone bool
}

// Option configures a client built by New.
type Option func(*client)

// WithMaxRetries overrides the default retry count.
func WithMaxRetries(n uint64) Option {
	return func(c *client) { c.maxRetries = n }
}

// WithTierProbe injects a gateway-specific tier-info call.
func WithTierProbe(p TierProbe) Option {
	return func(c *client) { c.tierProbe = p }
}

// New dials one client per gateway URL. When useProxy is true (the
// environment declares a local RPC proxy), the per-gateway rate budget is
// disabled so batches can run back-to-back (spec §4.1).
func New(ctx context.Context, network string, gatewayURLs []string, useProxy bool, opts ...Option) (Client, error) {
	if len(gatewayURLs) == 0 {
		return nil, fmt.Errorf("rpcclient: at least one gateway URL is required")
	}
	c := &client{
		network:    network,
		maxRetries: 5,
		useProxy:   useProxy,
	}
	for _, o := range opts {
		o(c)
	}

	for _, url := range gatewayURLs {
		raw, err := ethclient.DialContext(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("rpcclient: dial %s: %w", url, err)
		}
		gw := &gateway{
			url: url,
			raw: raw,
			breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
				Name:        url,
				MaxRequests: 1,
				Interval:    time.Minute,
				Timeout:     30 * time.Second,
				ReadyToTrip: func(counts gobreaker.Counts) bool {
					return counts.ConsecutiveFailures >= 5
				},
			}),
		}
		if !useProxy {
			gw.limiter = rate.NewLimiter(rate.Every(50*time.Millisecond), 1)
		}
		c.gateways = append(c.gateways, gw)
	}
	return c, nil
}

func (c *client) Close() {
	for _, gw := range c.gateways {
		gw.raw.Close()
	}
}

// Tier lazily probes the first gateway and caches the result for the
// lifetime of the client.
func (c *client) Tier() Tier {
	if c.tierDone {
		return c.tier
	}
	c.tierDone = true
	c.tier = config.TierFree
	if c.tierProbe == nil || len(c.gateways) == 0 {
		return c.tier
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if t, err := c.tierProbe(ctx, c.gateways[0].raw); err == nil {
		c.tier = t
	}
	return c.tier
}

// MaxBlockSpan returns the configured getLogs span cap for this chain and
// tier, falling back to the conservative default when unconfigured.
func (c *client) MaxBlockSpan() uint64 {
	if spans, ok := TierBlockSpan[c.network]; ok {
		if span, ok := spans[c.Tier()]; ok {
			return span
		}
	}
	return DefaultBlockSpan
}

// withGateways runs fn against each gateway in order (fallback-on-failure),
// itself retried per-gateway with exponential backoff up to maxRetries. It
// classifies the final failure via rpcerr.Classify; if every gateway's
// circuit breaker is open, the failure is reported as KindExhausted.
func (c *client) withGateways(ctx context.Context, fn func(ctx context.Context, gw *gateway) error) error {
	if len(c.gateways) == 0 {
		return fmt.Errorf("rpcclient: no gateways configured")
	}

	var lastErr error
	allOpen := true
	for _, gw := range c.gateways {
		if gw.limiter != nil {
			if err := gw.limiter.Wait(ctx); err != nil {
				lastErr = err
				continue
			}
		}

		bo := backoff.NewExponentialBackOff()
		bo.MaxElapsedTime = 0
		retryable := backoff.WithMaxRetries(bo, c.maxRetries)

		err := backoff.Retry(func() error {
			_, breakerErr := gw.breaker.Execute(func() (any, error) {
				return nil, fn(ctx, gw)
			})
			return breakerErr
		}, retryable)

		if err == nil {
			return nil
		}
		lastErr = err
		if gw.breaker.State() != gobreaker.StateOpen {
			allOpen = false
		}
	}

	if allOpen {
		return rpcerr.Classify(fmt.Errorf("rpcclient: all gateways exhausted: %w", lastErr), false)
	}
	timedOut := ctx.Err() != nil
	return rpcerr.Classify(lastErr, timedOut)
}

func (c *client) BlockNumber(ctx context.Context) (uint64, error) {
	var n uint64
	err := c.withGateways(ctx, func(ctx context.Context, gw *gateway) error {
		v, err := gw.raw.BlockNumber(ctx)
		if err != nil {
			return err
		}
		n = v
		return nil
	})
	return n, err
}

func (c *client) GetBlock(ctx context.Context, n uint64) (*types.Block, error) {
	var block *types.Block
	err := c.withGateways(ctx, func(ctx context.Context, gw *gateway) error {
		b, err := gw.raw.BlockByNumber(ctx, new(big.Int).SetUint64(n))
		if err != nil {
			return err
		}
		block = b
		return nil
	})
	return block, err
}

func (c *client) GetLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	var logs []types.Log
	err := c.withGateways(ctx, func(ctx context.Context, gw *gateway) error {
		l, err := gw.raw.FilterLogs(ctx, q)
		if err != nil {
			return err
		}
		logs = l
		return nil
	})
	return logs, err
}

func (c *client) Call(ctx context.Context, addr common.Address, data []byte) ([]byte, error) {
	var out []byte
	err := c.withGateways(ctx, func(ctx context.Context, gw *gateway) error {
		res, err := gw.raw.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: data}, nil)
		if err != nil {
			return err
		}
		out = res
		return nil
	})
	return out, err
}

func (c *client) GetCode(ctx context.Context, addr common.Address) ([]byte, error) {
	var out []byte
	err := c.withGateways(ctx, func(ctx context.Context, gw *gateway) error {
		res, err := gw.raw.CodeAt(ctx, addr, nil)
		if err != nil {
			return err
		}
		out = res
		return nil
	})
	return out, err
}

func (c *client) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.withGateways(ctx, func(ctx context.Context, gw *gateway) error {
		return gw.raw.Client().CallContext(ctx, &out, method, params...)
	})
	return out, err
}
