// Command datarevalidator runs DataRevalidator (C9) once for one chain:
// select rows whose classification is incomplete or stale, reclassify
// and repair them. Schema ensure is skipped (spec §4.9: "to avoid lock
// contention with active writers"). Exit code follows
// jobframe.Outcome.ExitCode().
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bugchain/chainindexer/internal/balance"
	"github.com/bugchain/chainindexer/internal/config"
	"github.com/bugchain/chainindexer/internal/explorer"
	"github.com/bugchain/chainindexer/internal/jobframe"
	"github.com/bugchain/chainindexer/internal/joblog"
	"github.com/bugchain/chainindexer/internal/revalidator"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "datarevalidator: config:", err)
		return 1
	}

	log, err := joblog.New("datarevalidator", cfg.Network)
	if err != nil {
		fmt.Fprintln(os.Stderr, "datarevalidator: logger:", err)
		return 1
	}

	frame, err := jobframe.Start(context.Background(), cfg, log, jobframe.Options{
		SkipSchema: true,
		Timeout:    cfg.TimeoutSeconds,
		RPCURLs:    cfg.RPCGatewayURLs,
	})
	if err != nil {
		log.Errorw("startup failed", "error", err)
		return 1
	}
	defer frame.Close()

	exp := explorer.New(explorer.Config{
		Dialect: dialectFor(cfg.ExplorerDialect),
		BaseURL: cfg.ExplorerBaseURL,
		ChainID: cfg.ExplorerChainID,
		APIKeys: cfg.ExplorerAPIKeys,
	}, log)

	bal, err := balance.New(frame.RPC, common.HexToAddress(cfg.BalanceHelperAddress), log)
	if err != nil {
		log.Errorw("balance reader init failed", "error", err)
		return 1
	}

	entries, err := config.LoadTokenWhitelist(cfg.Network)
	if err != nil {
		log.Errorw("token whitelist load failed", "error", err)
		return 1
	}
	whitelist := make([]common.Address, len(entries))
	for i, e := range entries {
		whitelist[i] = common.HexToAddress(e.Address)
	}

	rv := revalidator.New(cfg.Network, frame.RPC, exp, bal, frame.Store, whitelist, log)

	n, err := rv.Run(frame.Ctx)
	outcome := jobframe.Outcome{SystemicErr: err}
	if err != nil {
		log.Errorw("revalidation run failed", "error", err)
		return outcome.ExitCode()
	}

	log.Infow("revalidation complete", "rows_repaired", n)
	return outcome.ExitCode()
}

func dialectFor(name string) explorer.Dialect {
	if name == "dedicated" {
		return explorer.DialectDedicatedHost
	}
	return explorer.DialectUnifiedV2
}
