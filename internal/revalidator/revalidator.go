// Package revalidator is C9, DataRevalidator: re-walks rows whose
// classification is incomplete or inconsistent with current on-chain
// truth and repairs them (spec §4.9). It reuses scanner.ClassifyBatch
// and scanner.SelectiveVerify rather than embedding a borrowed Scanner
// instance, per spec.md §9's "extract the classifier so both jobs
// invoke it" redesign note.
package revalidator

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/bugchain/chainindexer/internal/balance"
	"github.com/bugchain/chainindexer/internal/explorer"
	"github.com/bugchain/chainindexer/internal/rpcclient"
	"github.com/bugchain/chainindexer/internal/scanner"
	"github.com/bugchain/chainindexer/internal/store"
)

// BatchSize is spec §4.9's "for each batch (≈1000 rows)" unit of work.
const BatchSize = 1000

// SelectionLimit caps the revalidation pool per run (spec §4.9's
// "LIMIT 100_000").
const SelectionLimit = 100_000

// Revalidator is the C9 contract.
type Revalidator struct {
	network   string
	rpc       rpcclient.Client
	exp       explorer.Client
	bal       *balance.Reader
	st        store.Store
	whitelist []common.Address
	log       *zap.SugaredLogger
}

// New builds a Revalidator for one chain.
func New(network string, rpc rpcclient.Client, exp explorer.Client, bal *balance.Reader, st store.Store, whitelist []common.Address, log *zap.SugaredLogger) *Revalidator {
	return &Revalidator{network: network, rpc: rpc, exp: exp, bal: bal, st: st, whitelist: whitelist, log: log}
}

// Run selects candidate rows and repairs them batch by batch, returning
// the number of rows re-upserted. A batch failure is logged and does
// not stop subsequent batches (spec §4.9: "on explorer outage the rows
// simply remain in the 'to revalidate' pool for a later pass").
func (r *Revalidator) Run(ctx context.Context) (int, error) {
	rows, err := r.st.SelectRevalidationRows(ctx, r.network, SelectionLimit)
	if err != nil {
		return 0, fmt.Errorf("revalidator: select rows: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	repaired := 0
	for i := 0; i < len(rows); i += BatchSize {
		end := i + BatchSize
		if end > len(rows) {
			end = len(rows)
		}
		n, err := r.runBatch(ctx, rows[i:end])
		if err != nil {
			r.log.Warnw("revalidation batch failed, will retry next run", "batch_start", i, "batch_size", end-i, "error", err)
			continue
		}
		repaired += n
	}
	return repaired, nil
}

// runBatch implements the four-step repair pipeline from spec §4.9.
func (r *Revalidator) runBatch(ctx context.Context, rows []store.AddressRow) (int, error) {
	addrs := make([]common.Address, len(rows))
	for i, row := range rows {
		addrs[i] = common.HexToAddress(row.Address)
	}

	// Step 1: reclassify via the shared classifier. Rows C3 can't decide
	// (unknown) are simply absent from the result and so are never
	// re-upserted, leaving them untouched per spec §4.9's failure
	// semantics.
	reclassified, err := scanner.ClassifyBatch(ctx, r.rpc, r.st, r.network, addrs, r.log)
	if err != nil {
		return 0, fmt.Errorf("reclassify: %w", err)
	}
	if len(reclassified) == 0 {
		return 0, nil
	}

	// Steps 2+3: selective source-metadata verification (explorer, batched
	// 5/sec via its own key-ring rate limiter) here, and deployment-time
	// backfill (batches of 5) after the upsert below — both reuse the
	// scanner's implementations since the repair semantics are identical
	// to first-classification.
	reclassified, err = scanner.SelectiveVerify(ctx, r.exp, r.bal, r.network, reclassified, r.whitelist, r.log)
	if err != nil {
		return 0, fmt.Errorf("selective verify: %w", err)
	}

	// Step 4: re-upsert the authoritative row. tags is replaced wholesale
	// by design here — the whole point of revalidation is a fresh
	// classification, unlike the scanner's background deployment patch
	// which must preserve existing tags.
	if err := r.st.UpsertAddresses(ctx, reclassified); err != nil {
		return 0, fmt.Errorf("upsert: %w", err)
	}

	scanner.BackfillDeploymentTimes(ctx, r.exp, r.st, r.network, reclassified, r.log)

	return len(reclassified), nil
}
