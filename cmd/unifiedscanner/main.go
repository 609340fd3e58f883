// Command unifiedscanner runs UnifiedScanner (C7) once for one chain:
// select a block window, stream Transfer logs, classify new addresses,
// persist them. Exit code follows jobframe.Outcome.ExitCode().
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bugchain/chainindexer/internal/balance"
	"github.com/bugchain/chainindexer/internal/config"
	"github.com/bugchain/chainindexer/internal/explorer"
	"github.com/bugchain/chainindexer/internal/jobframe"
	"github.com/bugchain/chainindexer/internal/joblog"
	"github.com/bugchain/chainindexer/internal/scanner"
)

// activityByNetwork is the static activity-tier assignment feeding
// scanner.ProfileFor (spec §4.7's activity table); unconfigured chains
// default to medium.
var activityByNetwork = map[string]scanner.Activity{
	"ethereum": scanner.ActivityHigh,
	"bsc":      scanner.ActivityHigh,
	"polygon":  scanner.ActivityMedium,
}

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "unifiedscanner: config:", err)
		return 1
	}

	log, err := joblog.New("unifiedscanner", cfg.Network)
	if err != nil {
		fmt.Fprintln(os.Stderr, "unifiedscanner: logger:", err)
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

	whitelist, err := loadWhitelistAddresses(cfg.Network)
	if err != nil {
		log.Errorw("token whitelist load failed", "error", err)
		return 1
	}

	activity, ok := activityByNetwork[cfg.Network]
	if !ok {
		activity = scanner.ActivityMedium
	}

	sc := scanner.New(cfg.Network, frame.RPC, exp, bal, frame.Store, whitelist, activity, log)

	win, err := scanner.SelectWindow(frame.Ctx, exp, frame.RPC, scanDelayHours())
	if err != nil {
		log.Errorw("window selection failed", "error", err)
		return 1
	}

	err = sc.Run(frame.Ctx, win)
	outcome := jobframe.Outcome{SystemicErr: err}
	if err != nil {
		log.Errorw("scan run failed", "from", win.From, "to", win.To, "error", err)
		return outcome.ExitCode()
	}

	log.Infow("scan complete", "from", win.From, "to", win.To)
	return outcome.ExitCode()
}

func dialectFor(name string) explorer.Dialect {
	if name == "dedicated" {
		return explorer.DialectDedicatedHost
	}
	return explorer.DialectUnifiedV2
}

func loadWhitelistAddresses(network string) ([]common.Address, error) {
	entries, err := config.LoadTokenWhitelist(network)
	if err != nil {
		return nil, err
	}
	out := make([]common.Address, len(entries))
	for i, e := range entries {
		out[i] = common.HexToAddress(e.Address)
	}
	return out, nil
}

func scanDelayHours() int {
	v := os.Getenv("SCAN_DELAY_HOURS")
	if v == "" {
		return 1
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 1
	}
	return n
}
