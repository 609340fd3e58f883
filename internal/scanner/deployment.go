package scanner

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/bugchain/chainindexer/internal/explorer"
	"github.com/bugchain/chainindexer/internal/store"
)

// BackfillDeploymentTimes is the "background deployment-time fetch" from
// spec §4.7: for classified contracts still missing `deployed`, fetch
// the creation transaction in batches of explorer.ContractCreationBatchCap
// and update rows independently. The scanner runs this in its own
// goroutine so the address row is visible immediately after
// classification; DataRevalidator calls it synchronously after its upsert.
func BackfillDeploymentTimes(ctx context.Context, exp explorer.Client, st store.Store, network string, rows []store.AddressRow, log *zap.SugaredLogger) {
	var pending []string
	byAddr := make(map[string]store.AddressRow)
	for _, r := range rows {
		if store.HasTag(r.Tags, store.TagContract) && !store.HasTag(r.Tags, store.TagSelfDestroyed) && r.Deployed == nil {
			pending = append(pending, r.Address)
			byAddr[strings.ToLower(r.Address)] = r
		}
	}
	if len(pending) == 0 {
		return
	}

	creations, err := exp.GetContractCreation(ctx, pending)
	if err != nil {
		log.Warnw("deployment-time backfill failed", "count", len(pending), "error", err)
		return
	}

	var patched []store.AddressRow
	for _, c := range creations {
		ts := c.Timestamp

		// tags is replaced wholesale on every upsert (spec §3), so this
		// deployment-only patch must carry the row's existing tags
		// forward rather than clobbering them with a bare "Contract".
		tags, found, err := st.ExistingTags(ctx, network, c.Address)
		if err != nil || !found {
			log.Warnw("deployment-time backfill: skipping row with unreadable tags", "address", c.Address, "error", err)
			continue
		}

		// The classification fields ride along so the patch passes the
		// same per-row invariant checks as the original row.
		src := byAddr[strings.ToLower(c.Address)]
		patched = append(patched, store.AddressRow{
			Address:      c.Address,
			Network:      network,
			CodeHash:     src.CodeHash,
			ContractName: src.ContractName,
			NameChecked:  src.NameChecked,
			Deployed:     &ts,
			FirstSeen:    ts,
			LastUpdated:  ts,
			Tags:         tags,
		})
	}
	if len(patched) == 0 {
		return
	}

	if err := st.UpsertAddresses(ctx, patched); err != nil {
		log.Warnw("deployment-time backfill upsert failed", "count", len(patched), "error", err)
	}
}
