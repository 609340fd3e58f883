package config

import (
	"embed"
	"encoding/json"
	"fmt"
)

//go:embed static/genesis.json
var genesisData []byte

//go:embed static/tokens
var tokensFS embed.FS

// TokenWhitelistEntry is one row of a per-chain tokens/<chain>.json file
// (spec §6 static configuration).
type TokenWhitelistEntry struct {
	Rank     int    `json:"rank"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Address  string `json:"address"`
	Decimals int    `json:"decimals"`
}

// LoadTokenWhitelist reads the static per-chain ERC-20 whitelist used by
// both C7's selective-verification balance check and C8's valuation pass.
func LoadTokenWhitelist(network string) ([]TokenWhitelistEntry, error) {
	b, err := tokensFS.ReadFile(fmt.Sprintf("static/tokens/%s.json", network))
	if err != nil {
		return nil, fmt.Errorf("config: load token whitelist for %s: %w", network, err)
	}
	var entries []TokenWhitelistEntry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("config: parse token whitelist for %s: %w", network, err)
	}
	return entries, nil
}

// GenesisTimestamps is the static chainId -> unix-seconds table backing
// classify.GenesisTimestamp (spec §4.3).
func GenesisTimestamps() (map[uint64]int64, error) {
	var raw map[string]int64
	if err := json.Unmarshal(genesisData, &raw); err != nil {
		return nil, fmt.Errorf("config: parse genesis table: %w", err)
	}
	out := make(map[uint64]int64, len(raw))
	for k, v := range raw {
		var id uint64
		if _, err := fmt.Sscanf(k, "%d", &id); err != nil {
			return nil, fmt.Errorf("config: bad chain id key %q: %w", k, err)
		}
		out[id] = v
	}
	return out, nil
}
