// Package config loads the per-job environment configuration described in
// spec §6: target network, RPC tier, job timeout, proxy opt-in, and the
// FundUpdater/DataRevalidator mode switches.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Tier mirrors the RPC gateway service tier (spec §4.1, §6).
type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
	TierAuto    Tier = "auto"
)

// Config is the environment-derived configuration shared by every job.
type Config struct {
	Network string
	RPCTier Tier

	TimeoutSeconds time.Duration

	UseProxyRPC bool
	ProxyRPCURL string

	// FundUpdater / DataRevalidator mode switches.
	AllFlag           bool
	HighFundFlag      bool
	RecentContracts   bool
	RecentDays        int
	FundUpdateMaxBatch int
	PriceUpdateIntervalDays int
	ForcePriceUpdate  bool

	PGHost     string
	PGPort     string
	PGDatabase string
	PGUser     string
	PGPassword string

	// Upstream connectivity. Spec §6 enumerates the DB and proxy knobs
	// explicitly but leaves gateway/explorer/price endpoints implicit
	// ("each chain owns a client configured with one or more gateway
	// URLs and a credential" — spec §4.1); these fill that gap the same
	// comma-separated, env-var way the rest of the table does it.
	RPCGatewayURLs []string
	ExplorerDialect string
	ExplorerBaseURL string
	ExplorerChainID uint64
	ExplorerAPIKeys []string
	PriceAPIKeys    map[string]string // source name -> API key

	// BalanceHelperAddress is the per-chain deployed multicall helper
	// contract C6 batches eth_call against (spec §4.6).
	BalanceHelperAddress string
}

// Load reads every variable enumerated in spec §6 and applies the defaults
// named throughout spec §4. No third-party env-binding library is used here
// (see SPEC_FULL.md §2 DOMAIN STACK note) — the variable set is small and
// closed, so a hand-rolled loader is clearer than pulling in a struct-tag
// binder for a dozen fields.
func Load() (Config, error) {
	cfg := Config{
		Network:                 os.Getenv("NETWORK"),
		RPCTier:                 Tier(orDefault(os.Getenv("RPC_TIER"), string(TierAuto))),
		TimeoutSeconds:          durationSeconds(os.Getenv("TIMEOUT_SECONDS"), 7200),
		UseProxyRPC:             boolEnv("USE_PROXY_RPC", false),
		ProxyRPCURL:             os.Getenv("PROXY_RPC_URL"),
		AllFlag:                 boolEnv("ALL_FLAG", false),
		HighFundFlag:            boolEnv("HIGH_FUND_FLAG", false),
		RecentContracts:         boolEnv("RECENT_CONTRACTS", false),
		RecentDays:              intEnv("RECENT_DAYS", 7),
		FundUpdateMaxBatch:      intEnv("FUND_UPDATE_MAX_BATCH", 50000),
		PriceUpdateIntervalDays: intEnv("PRICE_UPDATE_INTERVAL_DAYS", 7),
		ForcePriceUpdate:        boolEnv("FORCE_PRICE_UPDATE", false),
		PGHost:                  orDefault(os.Getenv("PGHOST"), "localhost"),
		PGPort:                  orDefault(os.Getenv("PGPORT"), "5432"),
		PGDatabase:              os.Getenv("PGDATABASE"),
		PGUser:                  os.Getenv("PGUSER"),
		PGPassword:              os.Getenv("PGPASSWORD"),

		RPCGatewayURLs:  splitCSV(os.Getenv("RPC_GATEWAY_URLS")),
		ExplorerDialect: orDefault(os.Getenv("EXPLORER_DIALECT"), "unified"),
		ExplorerBaseURL: os.Getenv("EXPLORER_BASE_URL"),
		ExplorerChainID: uint64(intEnv("EXPLORER_CHAIN_ID", 1)),
		ExplorerAPIKeys: splitCSV(os.Getenv("EXPLORER_API_KEYS")),
		PriceAPIKeys:    parseKeyValueCSV(os.Getenv("PRICE_API_KEYS")),

		BalanceHelperAddress: os.Getenv("BALANCE_HELPER_ADDRESS"),
	}

	if cfg.Network == "" {
		return Config{}, fmt.Errorf("config: NETWORK is required")
	}
	if cfg.PGDatabase == "" {
		return Config{}, fmt.Errorf("config: PGDATABASE is required")
	}
	return cfg, nil
}

// DSN builds a libpq-style connection string for pgxpool.
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s dbname=%s user=%s password=%s",
		c.PGHost, c.PGPort, c.PGDatabase, c.PGUser, c.PGPassword)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func boolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}

func intEnv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

func splitCSV(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseKeyValueCSV parses "name=key,name2=key2" into a map, the shape
// PRICE_API_KEYS uses to carry one credential per price source.
func parseKeyValueCSV(v string) map[string]string {
	out := make(map[string]string)
	for _, part := range splitCSV(v) {
		k, val, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(val)
	}
	return out
}

func durationSeconds(v string, defSeconds int) time.Duration {
	if v == "" {
		return time.Duration(defSeconds) * time.Second
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return time.Duration(defSeconds) * time.Second
	}
	return time.Duration(n) * time.Second
}
