// Package fundupdater is C8: outdated-address selection, price refresh,
// native+token valuation, and a fund-only upsert that never touches
// classification fields (spec §4.8).
package fundupdater

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bugchain/chainindexer/internal/balance"
	"github.com/bugchain/chainindexer/internal/price"
	"github.com/bugchain/chainindexer/internal/store"
)

// symbolPriceAdvisoryLockKey is the fixed integer spec §4.8 uses to
// serialize writes to the shared symbol_prices table across concurrent
// per-chain FundUpdater processes.
const symbolPriceAdvisoryLockKey = 0x46554E44 // "FUND"

// AnomalyThreshold rejects an implausibly large single-address valuation
// (spec §4.8 step 4: "below an anomaly threshold").
var AnomalyThreshold = decimal.NewFromInt(1_000_000_000)

// Token is one whitelisted ERC-20 entry for this chain (spec §6: "the
// whitelist lives in a per-chain static JSON").
type Token struct {
	Address  common.Address
	Symbol   string
	Decimals int
}

// Updater is the C8 contract.
type Updater struct {
	network    string
	nativeSym  string
	bal        *balance.Reader
	oracle     *price.Oracle
	st         store.Store
	whitelist  []Token
	log        *zap.SugaredLogger
}

// New builds an Updater for one chain.
func New(network, nativeSymbol string, bal *balance.Reader, oracle *price.Oracle, st store.Store, whitelist []Token, log *zap.SugaredLogger) *Updater {
	return &Updater{
		network: network, nativeSym: nativeSymbol, bal: bal, oracle: oracle,
		st: st, whitelist: whitelist, log: log,
	}
}

// ensurePricesCurrent is step 1 of spec §4.8's pipeline: if the newest
// price_updated in the tokens table is older than priceIntervalDays,
// trigger a bulk price refresh, native symbol first, under the shared
// advisory lock so concurrent per-chain updaters don't race on
// symbol_prices.
func (u *Updater) ensurePricesCurrent(ctx context.Context, priceIntervalDays int, force bool) error {
	if priceIntervalDays <= 0 {
		priceIntervalDays = 7
	}

	latest, err := u.st.LatestPriceUpdate(ctx, u.network)
	if err != nil {
		return fmt.Errorf("fundupdater: latest price update: %w", err)
	}
	stale := force || time.Since(time.Unix(latest, 0)) > time.Duration(priceIntervalDays)*24*time.Hour
	if !stale {
		return nil
	}

	symbols := make([]string, 0, len(u.whitelist)+1)
	symbols = append(symbols, u.nativeSym)
	for _, t := range u.whitelist {
		symbols = append(symbols, t.Symbol)
	}

	return u.st.AdvisoryLock(ctx, symbolPriceAdvisoryLockKey, func(lockedCtx context.Context) error {
		if _, err := u.oracle.Price(lockedCtx, u.nativeSym, price.WithForceRefresh()); err != nil {
			u.log.Warnw("native price refresh failed", "symbol", u.nativeSym, "error", err)
		}
		return u.oracle.BulkRefresh(lockedCtx, symbols)
	})
}

// Run executes one FundUpdater pass per spec §4.8's five-step pipeline.
func (u *Updater) Run(ctx context.Context, opts store.FundSelectionOptions, priceIntervalDays int, forcePriceUpdate bool) (int, error) {
	if err := u.ensurePricesCurrent(ctx, priceIntervalDays, forcePriceUpdate); err != nil {
		return 0, fmt.Errorf("fundupdater: ensure prices current: %w", err)
	}

	rows, err := u.st.SelectStaleFundRows(ctx, u.network, opts)
	if err != nil {
		return 0, fmt.Errorf("fundupdater: select stale rows: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	addrs := make([]common.Address, len(rows))
	byAddr := make(map[common.Address]int, len(rows))
	for i, r := range rows {
		a := common.HexToAddress(r.Address)
		addrs[i] = a
		byAddr[a] = i
	}

	natives, err := u.bal.NativeBalances(ctx, addrs)
	if err != nil {
		return 0, fmt.Errorf("fundupdater: native balances: %w", err)
	}

	tokenAddrs := make([]common.Address, len(u.whitelist))
	for i, t := range u.whitelist {
		tokenAddrs[i] = t.Address
	}
	tokenBalances, err := u.bal.ERC20Balances(ctx, addrs, tokenAddrs)
	if err != nil {
		return 0, fmt.Errorf("fundupdater: erc20 balances: %w", err)
	}

	nativePrice, err := u.oracle.Price(ctx, u.nativeSym)
	if err != nil {
		return 0, fmt.Errorf("fundupdater: native price: %w", err)
	}

	var toUpsert []store.AddressRow
	now := time.Now().Unix()
	for _, addr := range addrs {
		total, ok, err := u.valuate(ctx, natives[addr], tokenBalances[addr], nativePrice)
		if err != nil {
			u.log.Warnw("valuation failed, skipping address for this run", "address", addr.Hex(), "error", err)
			continue
		}
		if !ok {
			continue
		}
		floor := total.Floor().IntPart()
		toUpsert = append(toUpsert, store.AddressRow{
			Address:         rows[byAddr[addr]].Address,
			Network:         u.network,
			Tags:            rows[byAddr[addr]].Tags,
			CodeHash:        rows[byAddr[addr]].CodeHash,
			ContractName:    rows[byAddr[addr]].ContractName,
			NameChecked:     rows[byAddr[addr]].NameChecked,
			FirstSeen:       rows[byAddr[addr]].FirstSeen,
			LastUpdated:     now,
			Fund:            &floor,
			LastFundUpdated: &now,
		})
	}

	if len(toUpsert) == 0 {
		return 0, nil
	}
	if err := u.st.UpsertAddresses(ctx, toUpsert); err != nil {
		return 0, fmt.Errorf("fundupdater: upsert fund rows: %w", err)
	}
	return len(toUpsert), nil
}

// valuate applies spec §4.8 step 4: nativeUSD = balance/1e18 × nativePrice,
// plus each whitelisted token's balance/1e(decimals) × tokenPrice, with a
// per-value sanity check (finite, non-negative, below AnomalyThreshold).
// An out-of-range contribution is dropped, not zeroed, and if the native
// leg itself is out of range the whole address is skipped for this run.
func (u *Updater) valuate(ctx context.Context, native *big.Int, tokenBalances map[common.Address]*big.Int, nativePrice decimal.Decimal) (decimal.Decimal, bool, error) {
	total := decimal.Zero

	if native != nil && native.Sign() > 0 {
		nativeUSD := decimal.NewFromBigInt(native, 0).Div(weiPerEther).Mul(nativePrice)
		if !isSane(nativeUSD) {
			return decimal.Zero, false, nil
		}
		total = total.Add(nativeUSD)
	}

	for _, tok := range u.whitelist {
		bal := tokenBalances[tok.Address]
		if bal == nil || bal.Sign() <= 0 {
			continue
		}
		tokPrice, err := u.oracle.Price(ctx, tok.Symbol)
		if err != nil {
			continue // missed price: skip this token's contribution, not the whole address
		}
		scale := decimal.New(1, int32(tok.Decimals))
		usd := decimal.NewFromBigInt(bal, 0).Div(scale).Mul(tokPrice)
		if !isSane(usd) {
			continue
		}
		total = total.Add(usd)
	}

	return total, true, nil
}

var weiPerEther = decimal.New(1, 18)

func isSane(d decimal.Decimal) bool {
	if d.IsNegative() {
		return false
	}
	f, _ := d.Float64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return false
	}
	return d.LessThan(AnomalyThreshold)
}
