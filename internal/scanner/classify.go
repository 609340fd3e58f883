package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/bugchain/chainindexer/internal/classify"
	"github.com/bugchain/chainindexer/internal/rpcclient"
	"github.com/bugchain/chainindexer/internal/store"
)

// ClassifyBatch is the stateless extraction spec.md §9 calls for: a
// standalone callable taking its dependencies as parameters, shared by
// UnifiedScanner and DataRevalidator instead of DataRevalidator
// "borrowing" a live *Scanner's fields.
//
// It implements performEOAFiltering from spec §4.7:
//  1. batch isContract/codeHash for all addresses;
//  2. consult the DB for a pre-existing deployed timestamp;
//  3. apply classify.Classify, skipping unknown entirely;
//  4. label code-that-vanished as Contract+SelfDestroyed.
//
// A per-address GetCode failure is the "C3 can't decide" case spec §4.9
// calls out: it is logged and that address is left out of the result
// (so DataRevalidator leaves its row untouched) rather than aborting
// the whole batch over one bad address. A store error, by contrast,
// aborts the batch: it signals the DB itself is unavailable, which no
// amount of per-address skipping would work around.
func ClassifyBatch(ctx context.Context, rpc rpcclient.Client, st store.Store, network string, addrs []common.Address, log *zap.SugaredLogger) ([]store.AddressRow, error) {
	now := time.Now().Unix()
	rows := make([]store.AddressRow, 0, len(addrs))

	for _, addr := range addrs {
		code, err := rpc.GetCode(ctx, addr)
		if err != nil {
			log.Warnw("classify: get code failed, leaving address unresolved", "address", addr.Hex(), "error", err)
			continue
		}

		hexAddr, err := classify.Normalize(addr.Hex())
		if err != nil {
			log.Warnw("classify: normalize failed, leaving address unresolved", "address", addr.Hex(), "error", err)
			continue
		}

		existingHash, _, err := st.ExistingCodeHash(ctx, network, hexAddr)
		if err != nil {
			return nil, fmt.Errorf("scanner: classify %s: historical lookup: %w", hexAddr, err)
		}
		hadCode := existingHash != nil

		// The current code hash is always computable directly from the
		// just-fetched code (keccak256("") for an empty account is the
		// well-known zero hash) — no separate lookup is needed for it.
		// hadCode, from the DB, is what distinguishes a plain EOA
		// (never had code) from a self-destructed contract (had code
		// historically, empty now).
		currentHash := codeHashHex(code)

		kind := classify.Classify(&currentHash, code)
		if kind == classify.KindUnknown {
			continue
		}

		row := store.AddressRow{
			Address:     hexAddr,
			Network:     network,
			FirstSeen:   now,
			LastUpdated: now,
		}

		// An address whose code just vanished reads as plain KindEOA from
		// currentHash alone (empty code hashes to the zero hash either
		// way); hadCode plus the historical hash not itself being the
		// zero hash is what tells the self-destructed case apart from a
		// genuine, never-had-code EOA.
		selfDestructed := kind == classify.KindEOA && hadCode && !classify.IsZeroHash(*existingHash)

		switch {
		case selfDestructed:
			row.Tags = []string{"Contract", "SelfDestroyed"}
			row.CodeHash = existingHash
			row.Deployed = nil

		case kind == classify.KindEOA:
			row.Tags = []string{"EOA"}

		case kind == classify.KindEIP7702EOA:
			row.Tags = []string{"EOA", "SmartWallet"}
			row.CodeHash = &currentHash

		case kind == classify.KindSmartContract:
			row.Tags = []string{"Contract"}
			row.CodeHash = &currentHash
			deployed, found, err := st.AddressDeployed(ctx, network, hexAddr)
			if err != nil {
				return nil, fmt.Errorf("scanner: classify %s: deployed lookup: %w", hexAddr, err)
			}
			if found {
				row.Deployed = deployed
			}
			// else: needsDeploymentTime — left nil, backfilled by
			// the background deployment-time fetch (deployment.go).
		}

		rows = append(rows, row)
	}

	return rows, nil
}

func codeHashHex(code []byte) string {
	return crypto.Keccak256Hash(code).Hex()
}
