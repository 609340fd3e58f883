// Package balance is C6: batched native + ERC-20 balance collection
// through a per-chain multicall helper contract, with adaptive chunk
// sizing (spec §4.6). The ABI is embedded as a Go string constant in the
// teacher's own erc20ABI idiom (geth-17-indexer, geth-09-events).
package balance

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/bugchain/chainindexer/internal/rpcclient"
)

// balanceHelperABI is the fixed multicall ABI spec §4.6 names
// "BalanceHelper": a view contract deployed once per chain that batches
// many balanceOf/native-balance reads into a single eth_call.
const balanceHelperABI = `[
	{"constant":true,"inputs":[{"name":"addrs","type":"address[]"}],"name":"getEthBalances","outputs":[{"name":"","type":"uint256[]"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"addrs","type":"address[]"},{"name":"tokens","type":"address[]"}],"name":"balanceOfBatch","outputs":[{"name":"","type":"uint256[]"}],"type":"function"}
]`

// Reader is the C6 contract.
type Reader struct {
	client rpcclient.Client
	helper common.Address
	parsed abi.ABI
	log    *zap.SugaredLogger
}

// New parses balanceHelperABI once and binds it to the deployed helper
// contract address for one chain.
func New(client rpcclient.Client, helper common.Address, log *zap.SugaredLogger) (*Reader, error) {
	parsed, err := abi.JSON(strings.NewReader(balanceHelperABI))
	if err != nil {
		return nil, fmt.Errorf("balance: parse helper ABI: %w", err)
	}
	return &Reader{client: client, helper: helper, parsed: parsed, log: log}, nil
}

// NativeBalances batches addrs through getEthBalances with adaptive
// chunking; a chunk that fails entirely degrades to per-address calls
// with 100ms spacing, recording 0 as a last resort (spec §4.6).
func (r *Reader) NativeBalances(ctx context.Context, addrs []common.Address) (map[common.Address]*big.Int, error) {
	out := make(map[common.Address]*big.Int, len(addrs))
	size := newChunkSize()

	for i := 0; i < len(addrs); {
		end := i + size.current
		if end > len(addrs) {
			end = len(addrs)
		}
		batch := addrs[i:end]

		balances, err := r.callEthBalances(ctx, batch)
		if err != nil {
			size.onFailure()
			r.log.Warnw("native balance chunk failed, degrading to per-address", "size", len(batch), "error", err)
			r.degradeNative(ctx, batch, out)
		} else {
			size.onSuccess()
			for j, addr := range batch {
				out[addr] = balances[j]
			}
		}
		i = end
	}
	return out, nil
}

func (r *Reader) callEthBalances(ctx context.Context, addrs []common.Address) ([]*big.Int, error) {
	data, err := r.parsed.Pack("getEthBalances", addrs)
	if err != nil {
		return nil, fmt.Errorf("balance: pack getEthBalances: %w", err)
	}
	raw, err := r.client.Call(ctx, r.helper, data)
	if err != nil {
		return nil, fmt.Errorf("balance: call getEthBalances: %w", err)
	}

	var out []*big.Int
	if err := r.parsed.UnpackIntoInterface(&out, "getEthBalances", raw); err != nil {
		return nil, fmt.Errorf("balance: unpack getEthBalances: %w", err)
	}
	if len(out) != len(addrs) {
		return nil, fmt.Errorf("balance: getEthBalances returned %d results for %d addresses", len(out), len(addrs))
	}
	return out, nil
}

func (r *Reader) degradeNative(ctx context.Context, addrs []common.Address, out map[common.Address]*big.Int) {
	for _, addr := range addrs {
		balances, err := r.callEthBalances(ctx, []common.Address{addr})
		if err != nil {
			r.log.Warnw("per-address native balance fallback failed, recording 0", "address", addr.Hex(), "error", err)
			out[addr] = big.NewInt(0)
		} else {
			out[addr] = balances[0]
		}
		time.Sleep(100 * time.Millisecond)
	}
}

// ERC20Balances batches the cartesian product of addrs × tokens through
// balanceOfBatch, same adaptive chunking and degrade path as
// NativeBalances but keyed on address then token.
func (r *Reader) ERC20Balances(ctx context.Context, addrs []common.Address, tokens []common.Address) (map[common.Address]map[common.Address]*big.Int, error) {
	out := make(map[common.Address]map[common.Address]*big.Int, len(addrs))
	for _, a := range addrs {
		out[a] = make(map[common.Address]*big.Int, len(tokens))
	}

	size := newChunkSize()
	for i := 0; i < len(addrs); {
		end := i + size.current
		if end > len(addrs) {
			end = len(addrs)
		}
		batch := addrs[i:end]

		results, err := r.callBalanceOfBatch(ctx, batch, tokens)
		if err != nil {
			size.onFailure()
			r.log.Warnw("erc20 balance chunk failed, degrading to per-address", "size", len(batch), "error", err)
			r.degradeERC20(ctx, batch, tokens, out)
		} else {
			size.onSuccess()
			for bi, addr := range batch {
				for ti, tok := range tokens {
					out[addr][tok] = results[bi*len(tokens)+ti]
				}
			}
		}
		i = end
	}
	return out, nil
}

func (r *Reader) callBalanceOfBatch(ctx context.Context, addrs, tokens []common.Address) ([]*big.Int, error) {
	data, err := r.parsed.Pack("balanceOfBatch", addrs, tokens)
	if err != nil {
		return nil, fmt.Errorf("balance: pack balanceOfBatch: %w", err)
	}
	raw, err := r.client.Call(ctx, r.helper, data)
	if err != nil {
		return nil, fmt.Errorf("balance: call balanceOfBatch: %w", err)
	}

	var out []*big.Int
	if err := r.parsed.UnpackIntoInterface(&out, "balanceOfBatch", raw); err != nil {
		return nil, fmt.Errorf("balance: unpack balanceOfBatch: %w", err)
	}
	if len(out) != len(addrs)*len(tokens) {
		return nil, fmt.Errorf("balance: balanceOfBatch returned %d results for %d addrs x %d tokens", len(out), len(addrs), len(tokens))
	}
	return out, nil
}

func (r *Reader) degradeERC20(ctx context.Context, addrs, tokens []common.Address, out map[common.Address]map[common.Address]*big.Int) {
	for _, addr := range addrs {
		results, err := r.callBalanceOfBatch(ctx, []common.Address{addr}, tokens)
		if err != nil {
			r.log.Warnw("per-address erc20 balance fallback failed, recording 0s", "address", addr.Hex(), "error", err)
			for _, tok := range tokens {
				out[addr][tok] = big.NewInt(0)
			}
		} else {
			for ti, tok := range tokens {
				out[addr][tok] = results[ti]
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
}
