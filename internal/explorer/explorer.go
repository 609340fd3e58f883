// Package explorer is C2: block-explorer REST calls for contract source
// code, creation transactions, and block/tx lookups, with API-key
// rotation and rate budgeting. Built on net/http.Client directly (the
// teacher's go-ethereum tutorials never touch REST), grounded on the
// go-coffee SmartContractEngine's plain-http-client-plus-zap-logger
// construction style from other_examples.
package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Dialect selects between a unified multi-chain endpoint (chainid= query
// param) and a dedicated per-chain host, per spec §4.2.
type Dialect int

const (
	DialectUnifiedV2 Dialect = iota
	DialectDedicatedHost
)

// Config is one chain's explorer wiring.
type Config struct {
	Dialect       Dialect
	BaseURL       string
	ChainID       uint64
	APIKeys       []string
	RequestsPerKey int
	RatePerSecond float64
}

// ContractSource is the result of GetContractSource.
type ContractSource struct {
	Verified     bool
	ContractName string
	SourceCode   string
}

// ContractCreation is one element of GetContractCreation's result.
type ContractCreation struct {
	Address         string
	CreatorAddress  string
	TxHash          string
	Timestamp       int64
}

// BlockInfo is a minimal block summary for block-by-timestamp lookups.
type BlockInfo struct {
	Number    uint64
	Timestamp int64
}

// TxInfo is a minimal transaction summary.
type TxInfo struct {
	Hash      string
	BlockHash string
	From      string
	To        string
}

// Client is the C2 contract.
type Client interface {
	GetContractSource(ctx context.Context, addr string) (*ContractSource, error)
	GetContractCreation(ctx context.Context, addrs []string) ([]ContractCreation, error)
	GetBlockByNumber(ctx context.Context, n uint64) (*BlockInfo, error)
	GetTransaction(ctx context.Context, hash string) (*TxInfo, error)
	// BlockByTimestamp resolves a Unix timestamp to the nearest block
	// number, the primitive UnifiedScanner's window selection needs
	// (spec §4.7).
	BlockByTimestamp(ctx context.Context, ts int64, closest string) (uint64, error)
}

type client struct {
	cfg  Config
	http *http.Client
	ring *keyRing
	log  *zap.SugaredLogger
}

// New builds an explorer Client with a key ring sized to cfg.APIKeys.
func New(cfg Config, log *zap.SugaredLogger) Client {
	return &client{
		cfg:  cfg,
		http: &http.Client{Timeout: 10 * time.Second},
		ring: newKeyRing(cfg.APIKeys, cfg.RequestsPerKey, cfg.RatePerSecond),
		log:  log,
	}
}

func (c *client) baseQuery() url.Values {
	v := url.Values{}
	if c.cfg.Dialect == DialectUnifiedV2 {
		v.Set("chainid", strconv.FormatUint(c.cfg.ChainID, 10))
	}
	return v
}

func (c *client) do(ctx context.Context, module, action string, extra url.Values) (*envelope, error) {
	var lastErr error
	for attempt := 0; attempt < c.ring.size(); attempt++ {
		key, limiter := c.ring.current()
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("explorer: rate limiter: %w", err)
		}

		q := c.baseQuery()
		q.Set("module", module)
		q.Set("action", action)
		q.Set("apikey", key)
		for k, vs := range extra {
			for _, v := range vs {
				q.Add(k, v)
			}
		}

		reqURL := c.cfg.BaseURL + "?" + q.Encode()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("explorer: build request: %w", err)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		body, env, kind := classifyResponse(resp, module)
		resp.Body.Close()

		switch kind {
		case classInvalidKey:
			c.log.Warnw("explorer key rejected, rotating", "module", module, "action", action)
			c.ring.rotate()
			lastErr = fmt.Errorf("explorer: invalid key")
			continue
		case classRateLimited:
			c.log.Debugw("explorer rate limited, rotating", "module", module, "action", action)
			c.ring.rotate()
			lastErr = fmt.Errorf("explorer: rate limited")
			continue
		case classMalformed:
			lastErr = fmt.Errorf("explorer: malformed response: %s", string(body))
			continue
		case classEmptySuccess:
			return &envelope{Status: "0", Message: "No data found", Result: json.RawMessage("null")}, nil
		case classSuccess:
			c.ring.recordRequest()
			return env, nil
		}
	}
	return nil, fmt.Errorf("explorer: all keys exhausted for %s.%s: %w", module, action, lastErr)
}

func (c *client) GetContractSource(ctx context.Context, addr string) (*ContractSource, error) {
	env, err := c.do(ctx, "contract", "getsourcecode", url.Values{"address": {addr}})
	if err != nil {
		return nil, err
	}
	if string(env.Result) == "null" {
		return &ContractSource{Verified: false}, nil
	}

	var rows []struct {
		ContractName string `json:"ContractName"`
		SourceCode   string `json:"SourceCode"`
	}
	if err := json.Unmarshal(env.Result, &rows); err != nil {
		return nil, fmt.Errorf("explorer: unmarshal source result: %w", err)
	}
	if len(rows) == 0 || rows[0].SourceCode == "" {
		return &ContractSource{Verified: false}, nil
	}
	return &ContractSource{Verified: true, ContractName: rows[0].ContractName, SourceCode: rows[0].SourceCode}, nil
}

// GetContractCreation batches in groups of up to 5, the explorer's cap
// (spec §4.7, "background deployment-time fetch... batches of ≤5").
const ContractCreationBatchCap = 5

func (c *client) GetContractCreation(ctx context.Context, addrs []string) ([]ContractCreation, error) {
	var out []ContractCreation
	for i := 0; i < len(addrs); i += ContractCreationBatchCap {
		end := i + ContractCreationBatchCap
		if end > len(addrs) {
			end = len(addrs)
		}
		batch := addrs[i:end]

		env, err := c.do(ctx, "contract", "getcontractcreation", url.Values{"contractaddresses": {joinCommas(batch)}})
		if err != nil {
			return nil, err
		}
		if string(env.Result) == "null" {
			continue
		}
		var rows []struct {
			ContractAddress string `json:"contractAddress"`
			ContractCreator string `json:"contractCreator"`
			TxHash          string `json:"txHash"`
			Timestamp       string `json:"timestamp"`
		}
		if err := json.Unmarshal(env.Result, &rows); err != nil {
			return nil, fmt.Errorf("explorer: unmarshal creation result: %w", err)
		}
		for _, r := range rows {
			ts, _ := strconv.ParseInt(r.Timestamp, 10, 64)
			out = append(out, ContractCreation{
				Address: r.ContractAddress, CreatorAddress: r.ContractCreator,
				TxHash: r.TxHash, Timestamp: ts,
			})
		}
	}
	return out, nil
}

func (c *client) GetBlockByNumber(ctx context.Context, n uint64) (*BlockInfo, error) {
	env, err := c.do(ctx, "proxy", "eth_getBlockByNumber", url.Values{
		"tag":        {"0x" + strconv.FormatUint(n, 16)},
		"boolean":    {"false"},
	})
	if err != nil {
		return nil, err
	}
	var raw struct {
		Number    string `json:"number"`
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal(env.Result, &raw); err != nil {
		return nil, fmt.Errorf("explorer: unmarshal block: %w", err)
	}
	num, _ := strconv.ParseUint(trimHexPrefix(raw.Number), 16, 64)
	ts, _ := strconv.ParseInt(trimHexPrefix(raw.Timestamp), 16, 64)
	return &BlockInfo{Number: num, Timestamp: ts}, nil
}

func (c *client) GetTransaction(ctx context.Context, hash string) (*TxInfo, error) {
	env, err := c.do(ctx, "proxy", "eth_getTransactionByHash", url.Values{"txhash": {hash}})
	if err != nil {
		return nil, err
	}
	var raw struct {
		Hash      string `json:"hash"`
		BlockHash string `json:"blockHash"`
		From      string `json:"from"`
		To        string `json:"to"`
	}
	if err := json.Unmarshal(env.Result, &raw); err != nil {
		return nil, fmt.Errorf("explorer: unmarshal transaction: %w", err)
	}
	return &TxInfo{Hash: raw.Hash, BlockHash: raw.BlockHash, From: raw.From, To: raw.To}, nil
}

func (c *client) BlockByTimestamp(ctx context.Context, ts int64, closest string) (uint64, error) {
	if closest == "" {
		closest = "before"
	}
	env, err := c.do(ctx, "block", "getblocknobytime", url.Values{
		"timestamp": {strconv.FormatInt(ts, 10)},
		"closest":   {closest},
	})
	if err != nil {
		return 0, err
	}
	var n string
	if err := json.Unmarshal(env.Result, &n); err != nil {
		return 0, fmt.Errorf("explorer: unmarshal block number: %w", err)
	}
	num, err := strconv.ParseUint(n, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("explorer: parse block number %q: %w", n, err)
	}
	return num, nil
}

func joinCommas(ss []string) string {
	out := ss[0]
	for _, s := range ss[1:] {
		out += "," + s
	}
	return out
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
