package fundupdater

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bugchain/chainindexer/internal/price"
)

// stubSource is a fixed-price price.Source double, same shape as the one
// used in internal/price's own tests.
type stubSource struct {
	name   string
	prices map[string]decimal.Decimal
}

func (s *stubSource) Name() string { return s.name }
func (s *stubSource) Price(ctx context.Context, symbol string) (decimal.Decimal, bool, error) {
	d, ok := s.prices[symbol]
	return d, ok, nil
}

func newTestUpdater(prices map[string]decimal.Decimal, whitelist []Token) *Updater {
	oracle := price.New([]price.Source{&stubSource{name: "stub", prices: prices}}, nil, zap.NewNop().Sugar())
	return New("testnet", "ETH", nil, oracle, nil, whitelist, zap.NewNop().Sugar())
}

func TestValuateNativeOnly(t *testing.T) {
	u := newTestUpdater(map[string]decimal.Decimal{"ETH": decimal.NewFromInt(2000)}, nil)

	native := new(big.Int).Mul(big.NewInt(1), big.NewInt(1_000_000_000_000_000_000)) // 1 ETH
	total, ok, err := u.valuate(context.Background(), native, nil, decimal.NewFromInt(2000))
	if err != nil {
		t.Fatalf("valuate: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if !total.Equal(decimal.NewFromInt(2000)) {
		t.Fatalf("expected 2000, got %s", total.String())
	}
}

func TestValuateIncludesWhitelistedTokens(t *testing.T) {
	tok := common.HexToAddress("0xtoken")
	whitelist := []Token{{Address: tok, Symbol: "USDC", Decimals: 6}}
	u := newTestUpdater(map[string]decimal.Decimal{
		"ETH":  decimal.NewFromInt(2000),
		"USDC": decimal.NewFromFloat(1.0),
	}, whitelist)

	balances := map[common.Address]*big.Int{
		tok: big.NewInt(5_000_000), // 5 USDC at 6 decimals
	}
	total, ok, err := u.valuate(context.Background(), big.NewInt(0), balances, decimal.NewFromInt(2000))
	if err != nil {
		t.Fatalf("valuate: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if !total.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected 5 USD, got %s", total.String())
	}
}

func TestValuateSkipsAddressOnImplausibleNativeValue(t *testing.T) {
	u := newTestUpdater(nil, nil)

	// An absurdly large balance pushes nativeUSD past AnomalyThreshold.
	native := new(big.Int).Mul(big.NewInt(1_000_000_000_000), big.NewInt(1_000_000_000_000_000_000))
	_, ok, err := u.valuate(context.Background(), native, nil, decimal.NewFromInt(2000))
	if err != nil {
		t.Fatalf("valuate: %v", err)
	}
	if ok {
		t.Fatalf("expected ok=false for anomalous native valuation")
	}
}

func TestValuateDropsSingleTokenContributionOnMissingPrice(t *testing.T) {
	tok := common.HexToAddress("0xtoken")
	whitelist := []Token{{Address: tok, Symbol: "UNPRICED", Decimals: 18}}
	u := newTestUpdater(map[string]decimal.Decimal{"ETH": decimal.NewFromInt(2000)}, whitelist)

	balances := map[common.Address]*big.Int{
		tok: big.NewInt(1_000_000_000_000_000_000),
	}
	// Native balance zero so only the token leg is in play; a missing
	// price for UNPRICED should drop that contribution, not error out.
	total, ok, err := u.valuate(context.Background(), big.NewInt(0), balances, decimal.NewFromInt(2000))
	if err != nil {
		t.Fatalf("valuate: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true (missing token price is not fatal)")
	}
	if !total.Equal(decimal.Zero) {
		t.Fatalf("expected zero total since the only token had no price, got %s", total.String())
	}
}

func TestIsSaneRejectsNegativeAndOverThreshold(t *testing.T) {
	if isSane(decimal.NewFromInt(-1)) {
		t.Fatalf("expected negative value to be rejected")
	}
	if isSane(AnomalyThreshold) {
		t.Fatalf("expected value at threshold to be rejected (strictly less-than)")
	}
	if !isSane(decimal.NewFromInt(100)) {
		t.Fatalf("expected ordinary value to be accepted")
	}
}
