// Command fundupdater runs FundUpdater (C8) once for one chain: refresh
// prices if stale, select outdated addresses per the configured mode,
// value their native + whitelisted-token holdings, upsert fund-only
// rows. Exit code follows jobframe.Outcome.ExitCode().
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bugchain/chainindexer/internal/balance"
	"github.com/bugchain/chainindexer/internal/config"
	"github.com/bugchain/chainindexer/internal/fundupdater"
	"github.com/bugchain/chainindexer/internal/jobframe"
	"github.com/bugchain/chainindexer/internal/joblog"
	"github.com/bugchain/chainindexer/internal/price"
	"github.com/bugchain/chainindexer/internal/price/sources"
	"github.com/bugchain/chainindexer/internal/store"
)

// nativeSymbolByNetwork is the chain's native-gas-token ticker, used for
// both the price oracle lookup and the wei-denominated balance leg.
var nativeSymbolByNetwork = map[string]string{
	"ethereum": "ETH",
	"bsc":      "BNB",
	"polygon":  "MATIC",
}

// priceStoreAdapter bridges internal/store's SymbolPrice persistence to
// internal/price's DB-agnostic Store interface, keeping the price
// package free of an internal/store import (see internal/price/price.go).
type priceStoreAdapter struct {
	st store.Store
}

func (a priceStoreAdapter) UpsertSymbolPrice(ctx context.Context, row price.PersistedPrice) error {
	return a.st.UpsertSymbolPrice(ctx, store.SymbolPrice{
		Symbol: row.Symbol, PriceUSD: row.PriceUSD, Decimals: row.Decimals,
		Name: row.Name, LastUpdated: row.LastUpdated,
	})
}

func (a priceStoreAdapter) SymbolPrice(ctx context.Context, symbol string) (*price.PersistedPrice, error) {
	row, err := a.st.SymbolPrice(ctx, symbol)
	if err != nil || row == nil {
		return nil, err
	}
	return &price.PersistedPrice{
		Symbol: row.Symbol, PriceUSD: row.PriceUSD, Decimals: row.Decimals,
		Name: row.Name, LastUpdated: row.LastUpdated,
	}, nil
}

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "fundupdater: config:", err)
		return 1
	}

	log, err := joblog.New("fundupdater", cfg.Network)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fundupdater: logger:", err)
		return 1
	}

	frame, err := jobframe.Start(context.Background(), cfg, log, jobframe.Options{
		Timeout: cfg.TimeoutSeconds,
		RPCURLs: cfg.RPCGatewayURLs,
	})
	if err != nil {
		log.Errorw("startup failed", "error", err)
		return 1
	}
	defer frame.Close()

	bal, err := balance.New(frame.RPC, common.HexToAddress(cfg.BalanceHelperAddress), log)
	if err != nil {
		log.Errorw("balance reader init failed", "error", err)
		return 1
	}

	oracle := price.New(sources.Ordered(priceSourceConfigs(cfg)), priceStoreAdapter{st: frame.Store}, log)

	entries, err := config.LoadTokenWhitelist(cfg.Network)
	if err != nil {
		log.Errorw("token whitelist load failed", "error", err)
		return 1
	}
	whitelist := make([]fundupdater.Token, len(entries))
	for i, e := range entries {
		whitelist[i] = fundupdater.Token{Address: common.HexToAddress(e.Address), Symbol: e.Symbol, Decimals: e.Decimals}
	}

	nativeSym, ok := nativeSymbolByNetwork[cfg.Network]
	if !ok {
		nativeSym = "ETH"
	}

	updater := fundupdater.New(cfg.Network, nativeSym, bal, oracle, frame.Store, whitelist, log)

	opts := store.FundSelectionOptions{
		All:       cfg.AllFlag,
		HighFund:  cfg.HighFundFlag,
		DelayDays: cfg.RecentDays,
		MaxBatch:  cfg.FundUpdateMaxBatch,
	}

	n, err := updater.Run(frame.Ctx, opts, cfg.PriceUpdateIntervalDays, cfg.ForcePriceUpdate)
	outcome := jobframe.Outcome{SystemicErr: err}
	if err != nil {
		log.Errorw("fund update run failed", "error", err)
		return outcome.ExitCode()
	}

	log.Infow("fund update complete", "addresses_updated", n)
	return outcome.ExitCode()
}

func priceSourceConfigs(cfg config.Config) []sources.Config {
	names := []string{"exchange-a", "exchange-b", "exchange-c", "dex-aggregator", "fallback"}
	out := make([]sources.Config, 0, len(names))
	for i, name := range names {
		key, ok := cfg.PriceAPIKeys[name]
		out = append(out, sources.Config{
			Name:     name,
			Enabled:  ok || name == "dex-aggregator", // the DEX aggregator needs no key
			Priority: len(names) - i,
			BaseURL:  os.Getenv("PRICE_BASE_URL_" + name),
			APIKey:   key,
		})
	}
	return out
}
