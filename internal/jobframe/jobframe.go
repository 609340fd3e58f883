// Package jobframe is C10: the common job bootstrap (DB connect, schema
// ensure, RPC init, tier probe, timeout-derived context) shared by the
// three job binaries, and the exit-code policy distinguishing partial
// failure from systemic failure (spec §4.10, §7, and the "mixed
// exit-code semantics" redesign note in spec.md §9).
package jobframe

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bugchain/chainindexer/internal/config"
	"github.com/bugchain/chainindexer/internal/rpcclient"
	"github.com/bugchain/chainindexer/internal/store"
)

// DefaultTimeout is the wall-clock force-exit budget, spec §4.10's
// "default 7200 s".
const DefaultTimeout = 7200 * time.Second

// Outcome distinguishes a job that ran to completion but skipped some
// work (exit 0) from one that failed systemically (exit 1) — spec.md
// §9's "mixed exit-code semantics" is resolved by making this explicit
// rather than inferred from a log message.
type Outcome struct {
	PartialFailures int
	SystemicErr     error
}

// ExitCode returns 0 for a clean or partial-failure run, 1 only when
// SystemicErr is set.
func (o Outcome) ExitCode() int {
	if o.SystemicErr != nil {
		return 1
	}
	return 0
}

// Frame bundles the dependencies every job body needs after bootstrap.
type Frame struct {
	Cfg      config.Config
	Log      *zap.SugaredLogger
	Store    store.Store
	RPC      rpcclient.Client
	Ctx      context.Context
	cancel   context.CancelFunc
	started  time.Time
}

// Options tweaks Start's bootstrap sequence.
type Options struct {
	SkipSchema bool // DataRevalidator skips schema ensure (spec §4.9: "to avoid lock contention with active writers")
	Timeout    time.Duration
	RPCURLs    []string
	TierProbe  rpcclient.TierProbe
}

// Start derives the timeout context first, then performs DB connect →
// schema ensure (unless skipped) → RPC init → tier probe under it.
func Start(ctx context.Context, cfg config.Config, log *zap.SugaredLogger, opts Options) (*Frame, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)

	st, err := store.New(runCtx, cfg.DSN())
	if err != nil {
		cancel()
		return nil, fmt.Errorf("jobframe: connect store: %w", err)
	}

	if !opts.SkipSchema {
		if err := st.EnsureSchema(runCtx); err != nil {
			cancel()
			st.Close()
			return nil, fmt.Errorf("jobframe: ensure schema: %w", err)
		}
	}

	rpc, err := rpcclient.New(runCtx, cfg.Network, opts.RPCURLs, cfg.UseProxyRPC, rpcclient.WithTierProbe(opts.TierProbe))
	if err != nil {
		cancel()
		st.Close()
		return nil, fmt.Errorf("jobframe: connect rpc: %w", err)
	}
	log.Infow("rpc tier detected", "tier", rpc.Tier())

	return &Frame{
		Cfg: cfg, Log: log, Store: st, RPC: rpc,
		Ctx: runCtx, cancel: cancel, started: time.Now(),
	}, nil
}

// Close releases the DB pool and RPC gateways and logs elapsed time
// (spec §4.10: "releases the DB client, closes the pool, logs elapsed
// time").
func (f *Frame) Close() {
	f.Log.Infow("job finished", "elapsed", time.Since(f.started).String())
	f.RPC.Close()
	f.Store.Close()
	f.cancel()
}
