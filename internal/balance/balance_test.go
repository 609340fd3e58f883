package balance

import (
	"context"
	"encoding/json"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/bugchain/chainindexer/internal/rpcclient"
)

// fakeClient implements rpcclient.Client with a pluggable Call, enough
// to exercise Reader without a live RPC endpoint.
type fakeClient struct {
	callFn func(ctx context.Context, addr common.Address, data []byte) ([]byte, error)
	calls  int
}

func (f *fakeClient) BlockNumber(ctx context.Context) (uint64, error) { return 0, nil }
func (f *fakeClient) GetBlock(ctx context.Context, n uint64) (*types.Block, error) { return nil, nil }
func (f *fakeClient) GetLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	return nil, nil
}
func (f *fakeClient) Call(ctx context.Context, addr common.Address, data []byte) ([]byte, error) {
	f.calls++
	return f.callFn(ctx, addr, data)
}
func (f *fakeClient) GetCode(ctx context.Context, addr common.Address) ([]byte, error) { return nil, nil }
func (f *fakeClient) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	return nil, nil
}
func (f *fakeClient) Tier() rpcclient.Tier      { return rpcclient.Tier("") }
func (f *fakeClient) MaxBlockSpan() uint64      { return 0 }
func (f *fakeClient) Close()                    {}

var _ rpcclient.Client = (*fakeClient)(nil)

func mustParseHelperABI(t *testing.T) abi.ABI {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(balanceHelperABI))
	if err != nil {
		t.Fatalf("parse helper ABI: %v", err)
	}
	return parsed
}

func TestNativeBalancesHappyPath(t *testing.T) {
	parsed := mustParseHelperABI(t)
	addrs := []common.Address{common.HexToAddress("0x1"), common.HexToAddress("0x2")}

	fc := &fakeClient{callFn: func(ctx context.Context, addr common.Address, data []byte) ([]byte, error) {
		out := []*big.Int{big.NewInt(10), big.NewInt(20)}
		return parsed.Methods["getEthBalances"].Outputs.Pack(out)
	}}

	r, err := New(fc, common.HexToAddress("0xhelper"), zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := r.NativeBalances(context.Background(), addrs)
	if err != nil {
		t.Fatalf("NativeBalances: %v", err)
	}
	if got[addrs[0]].Cmp(big.NewInt(10)) != 0 || got[addrs[1]].Cmp(big.NewInt(20)) != 0 {
		t.Fatalf("unexpected balances: %v", got)
	}
}

func TestNativeBalancesDegradesOnChunkFailure(t *testing.T) {
	parsed := mustParseHelperABI(t)
	addrs := []common.Address{common.HexToAddress("0x1"), common.HexToAddress("0x2")}

	first := true
	fc := &fakeClient{callFn: func(ctx context.Context, addr common.Address, data []byte) ([]byte, error) {
		var unpacked []any
		_ = unpacked
		// The initial batch call always targets both addresses; fail it once,
		// then succeed on the per-address fallback calls.
		if first {
			first = false
			return nil, context.DeadlineExceeded
		}
		return parsed.Methods["getEthBalances"].Outputs.Pack([]*big.Int{big.NewInt(42)})
	}}

	r, err := New(fc, common.HexToAddress("0xhelper"), zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := r.NativeBalances(context.Background(), addrs)
	if err != nil {
		t.Fatalf("NativeBalances: %v", err)
	}
	for _, a := range addrs {
		if got[a].Cmp(big.NewInt(42)) != 0 {
			t.Fatalf("expected degraded per-address balance 42 for %s, got %s", a, got[a])
		}
	}
}
