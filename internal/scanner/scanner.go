// Package scanner is C7, UnifiedScanner: the streaming log-to-address
// pipeline (spec §4.7). The fetch loop stays ahead of a bounded pool of
// batch-processing goroutines built on errgroup+semaphore, replacing the
// source's manually-managed in-flight promise array (spec.md §9).
package scanner

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/bugchain/chainindexer/internal/balance"
	"github.com/bugchain/chainindexer/internal/classify"
	"github.com/bugchain/chainindexer/internal/explorer"
	"github.com/bugchain/chainindexer/internal/rpcclient"
	"github.com/bugchain/chainindexer/internal/rpcerr"
	"github.com/bugchain/chainindexer/internal/store"
)

// MaxConcurrent is the bounded in-flight batch-processing queue depth
// from spec §4.7 ("MAX_CONCURRENT is small (≈4)").
const MaxConcurrent = 4

// transferEventSignature is keccak256("Transfer(address,address,uint256)"),
// topic0 for every ERC-20 Transfer log (geth-09-events/geth-17-indexer's
// own const-string ABI idiom, generalized to the raw topic hash so no ABI
// parse is needed on the hot path).
var transferEventSignature = common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")

// Scanner is the C7 contract.
type Scanner struct {
	network   string
	rpc       rpcclient.Client
	exp       explorer.Client
	bal       *balance.Reader
	st        store.Store
	whitelist []common.Address
	profile   Profile
	log       *zap.SugaredLogger

	seen map[common.Address]bool
}

// New builds a Scanner for one chain.
func New(network string, rpc rpcclient.Client, exp explorer.Client, bal *balance.Reader, st store.Store, whitelist []common.Address, activity Activity, log *zap.SugaredLogger) *Scanner {
	return &Scanner{
		network:   network,
		rpc:       rpc,
		exp:       exp,
		bal:       bal,
		st:        st,
		whitelist: whitelist,
		profile:   ProfileFor(activity, rpc.Tier()),
		log:       log,
		seen:      make(map[common.Address]bool),
	}
}

// Run drives the pipeline over window, persisting classified addresses
// as they complete. Idempotent: safe to re-run over overlapping windows
// (spec §4.7).
func (s *Scanner) Run(ctx context.Context, win Window) error {
	sizer := newBatchSizer(s.profile)
	sem := semaphore.NewWeighted(MaxConcurrent)
	g, gctx := errgroup.WithContext(ctx)

	current := win.From
	for current <= win.To {
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}

		size := sizer.current
		end := current + size - 1
		if end > win.To {
			end = win.To
		}
		from, to := current, end

		start := time.Now()
		logs, err := s.fetchLogs(gctx, from, to)
		if err != nil {
			sem.Release(1)
			if handled := s.handleFetchFailure(sizer, from, to, err); handled {
				current = to + 1
				continue
			}
			return fmt.Errorf("scanner: fetch logs %d-%d: %w", from, to, err)
		}
		sizer.next(time.Since(start), len(logs))

		// extractNewAddresses touches s.seen and must stay on this
		// single-threaded loop (spec §4.7's fetchAndQueueBatch pseudocode) —
		// only the already-deduped address slice crosses into the
		// concurrent batch goroutine below.
		addrs := s.extractNewAddresses(logs)

		g.Go(func() error {
			defer sem.Release(1)
			return s.processBatch(gctx, from, to, addrs)
		})

		current = to + 1
	}

	return g.Wait()
}

func (s *Scanner) fetchLogs(ctx context.Context, from, to uint64) ([]gethtypes.Log, error) {
	q := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Topics:    [][]common.Hash{{transferEventSignature}},
	}
	return s.rpc.GetLogs(ctx, q)
}

// handleFetchFailure applies spec §4.7's failure policy table. It
// returns true when the caller should advance past the failed range
// (either because it was excluded or because policy says to move on).
func (s *Scanner) handleFetchFailure(sizer *batchSizer, from, to uint64, err error) bool {
	rpcErr, _ := rpcerr.As(err)
	kind := rpcerr.KindTransient
	var suggested uint64
	if rpcErr != nil {
		kind = rpcErr.Kind
		suggested = rpcErr.SuggestedRange
	}

	size := to - from + 1
	d := decide(sizer, kind, size, 0, suggested)

	switch d.action {
	case actionExcludeBlockAdvance:
		if err := s.st.ExcludeBlock(context.Background(), s.network, from, string(kind)); err != nil {
			s.log.Warnw("failed to record excluded block", "block", from, "error", err)
		}
		return true
	case actionAdvancePastRange:
		s.log.Warnw("advancing past failed range", "from", from, "to", to, "kind", kind)
		return true
	default: // actionRetrySameRange
		return false
	}
}

// processBatch classifies the batch's already-deduped fresh addresses,
// runs selective verification, and persists the result.
func (s *Scanner) processBatch(ctx context.Context, from, to uint64, addrs []common.Address) error {
	if len(addrs) == 0 {
		return nil
	}

	existing, err := s.existingInDB(ctx, addrs)
	if err != nil {
		return fmt.Errorf("scanner: dedupe batch %d-%d: %w", from, to, err)
	}
	fresh := addrs[:0]
	for _, a := range addrs {
		if !existing[a] {
			fresh = append(fresh, a)
		}
	}
	if len(fresh) == 0 {
		return nil
	}

	rows, err := ClassifyBatch(ctx, s.rpc, s.st, s.network, fresh, s.log)
	if err != nil {
		return fmt.Errorf("scanner: classify batch %d-%d: %w", from, to, err)
	}
	if len(rows) == 0 {
		return nil
	}

	rows, err = SelectiveVerify(ctx, s.exp, s.bal, s.network, rows, s.whitelist, s.log)
	if err != nil {
		return fmt.Errorf("scanner: verify batch %d-%d: %w", from, to, err)
	}

	if err := s.st.UpsertAddresses(ctx, rows); err != nil {
		return fmt.Errorf("scanner: persist batch %d-%d: %w", from, to, err)
	}

	go BackfillDeploymentTimes(context.Background(), s.exp, s.st, s.network, rows, s.log)

	return nil
}

// extractNewAddresses normalizes Transfer log participants and tracks a
// per-run seen-set so only never-seen addresses enter processing (spec
// §4.7's duplicate-work prevention, stage 1).
func (s *Scanner) extractNewAddresses(logs []gethtypes.Log) []common.Address {
	var out []common.Address
	for _, lg := range logs {
		if len(lg.Topics) < 3 {
			continue
		}
		from := common.HexToAddress(lg.Topics[1].Hex())
		to := common.HexToAddress(lg.Topics[2].Hex())
		for _, addr := range []common.Address{from, to} {
			if s.seen[addr] {
				continue
			}
			s.seen[addr] = true
			out = append(out, addr)
		}
	}
	return out
}

// existingInDB is duplicate-work prevention stage 2: addresses already
// present in the DB are filtered out before classification.
func (s *Scanner) existingInDB(ctx context.Context, addrs []common.Address) (map[common.Address]bool, error) {
	hexAddrs := make([]string, len(addrs))
	for i, a := range addrs {
		norm, err := classify.Normalize(a.Hex())
		if err != nil {
			return nil, err
		}
		hexAddrs[i] = norm
	}
	found, err := s.st.ExistingAddresses(ctx, s.network, hexAddrs)
	if err != nil {
		return nil, err
	}
	out := make(map[common.Address]bool, len(found))
	for hexAddr := range found {
		out[common.HexToAddress(hexAddr)] = true
	}
	return out, nil
}

