package rpcclient

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/bugchain/chainindexer/internal/config"
)

func TestMaxBlockSpanKnownChain(t *testing.T) {
	c := &client{network: "ethereum", tierDone: true, tier: config.TierFree}
	if got := c.MaxBlockSpan(); got != 2000 {
		t.Errorf("MaxBlockSpan() = %d, want 2000", got)
	}
}

func TestMaxBlockSpanUnknownChainFallsBackToDefault(t *testing.T) {
	c := &client{network: "some-unlisted-chain", tierDone: true, tier: config.TierFree}
	if got := c.MaxBlockSpan(); got != DefaultBlockSpan {
		t.Errorf("MaxBlockSpan() = %d, want default %d", got, DefaultBlockSpan)
	}
}

func TestTierProbeFailureFallsBackToFree(t *testing.T) {
	c := &client{
		network:  "ethereum",
		gateways: []*gateway{{url: "dummy"}},
		tierProbe: func(ctx context.Context, raw *ethclient.Client) (Tier, error) {
			return config.TierPremium, context.DeadlineExceeded
		},
	}
	if got := c.Tier(); got != config.TierFree {
		t.Errorf("Tier() = %v, want %v on probe failure", got, config.TierFree)
	}
}

func TestTierCachedAfterFirstCall(t *testing.T) {
	calls := 0
	c := &client{
		network:  "ethereum",
		gateways: []*gateway{{url: "dummy"}},
		tierProbe: func(ctx context.Context, raw *ethclient.Client) (Tier, error) {
			calls++
			return config.TierPremium, nil
		},
	}
	if c.Tier() != config.TierPremium || c.Tier() != config.TierPremium {
		t.Fatal("expected premium tier")
	}
	if calls != 1 {
		t.Errorf("tier probe called %d times, want 1 (cached)", calls)
	}
}
