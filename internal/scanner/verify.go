package scanner

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/bugchain/chainindexer/internal/balance"
	"github.com/bugchain/chainindexer/internal/explorer"
	"github.com/bugchain/chainindexer/internal/store"
)

// SelectiveVerify runs the Balance Reader over every candidate contract
// row and only sends contracts with a non-zero balance (native or a
// whitelisted ERC-20) to the explorer for source verification — spec
// §4.7's "large cost saving" optimization. Rows already name_checked are
// treated as cached and left untouched.
func SelectiveVerify(ctx context.Context, exp explorer.Client, bal *balance.Reader, network string, rows []store.AddressRow, whitelist []common.Address, log *zap.SugaredLogger) ([]store.AddressRow, error) {
	var candidates []store.AddressRow
	var candidateAddrs []common.Address
	idxByAddr := make(map[common.Address]int)

	for i, r := range rows {
		if !store.HasTag(r.Tags, store.TagContract) || store.HasTag(r.Tags, store.TagSelfDestroyed) {
			continue
		}
		if r.NameChecked != nil && *r.NameChecked {
			continue
		}
		idxByAddr[common.HexToAddress(r.Address)] = i
		candidates = append(candidates, r)
		candidateAddrs = append(candidateAddrs, common.HexToAddress(r.Address))
	}
	if len(candidates) == 0 {
		return rows, nil
	}

	natives, err := bal.NativeBalances(ctx, candidateAddrs)
	if err != nil {
		return nil, fmt.Errorf("scanner: selective verify: native balances: %w", err)
	}
	tokens, err := bal.ERC20Balances(ctx, candidateAddrs, whitelist)
	if err != nil {
		return nil, fmt.Errorf("scanner: selective verify: erc20 balances: %w", err)
	}

	for _, addr := range candidateAddrs {
		i := idxByAddr[addr]
		if !hasNonZeroBalance(natives[addr], tokens[addr]) {
			continue // zero-balance: persisted as Contract without verification
		}

		src, err := exp.GetContractSource(ctx, addr.Hex())
		if err != nil {
			log.Warnw("contract source verification failed, leaving unverified", "address", addr.Hex(), "error", err)
			continue
		}

		if src.Verified {
			checked := true
			rows[i].NameChecked = &checked
			name := src.ContractName
			rows[i].ContractName = &name
			rows[i].Tags = append(rows[i].Tags, "Verified")
		} else {
			rows[i].Tags = append(rows[i].Tags, "Unverified")
		}
	}

	return rows, nil
}

func hasNonZeroBalance(native *big.Int, tokenBalances map[common.Address]*big.Int) bool {
	if native != nil && native.Sign() > 0 {
		return true
	}
	for _, b := range tokenBalances {
		if b != nil && b.Sign() > 0 {
			return true
		}
	}
	return false
}
