package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresNetwork(t *testing.T) {
	t.Setenv("NETWORK", "")
	t.Setenv("PGDATABASE", "indexer")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("NETWORK", "ethereum")
	t.Setenv("PGDATABASE", "indexer")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, TierAuto, cfg.RPCTier)
	assert.Equal(t, float64(7200), cfg.TimeoutSeconds.Seconds())
	assert.Equal(t, 50000, cfg.FundUpdateMaxBatch)
}

func TestLoadTokenWhitelist(t *testing.T) {
	entries, err := LoadTokenWhitelist("ethereum")
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.NotEmpty(t, entries[0].Symbol)
}

func TestGenesisTimestamps(t *testing.T) {
	table, err := GenesisTimestamps()
	require.NoError(t, err)
	assert.Equal(t, int64(1438269973), table[1])
}
