package classify

// GenesisTimestamp looks up the chain's genesis block timestamp in the
// supplied static table (spec §4.3 — the table itself is loaded by
// internal/config; this function stays pure by taking it as an argument).
func GenesisTimestamp(table map[uint64]int64, chainID uint64) (int64, bool) {
	ts, ok := table[chainID]
	return ts, ok
}

// GenesisTxMarker is the creation-transaction-hash prefix that signals a
// genesis contract per the GLOSSARY ("creation tx hash begins with the
// marker GENESIS").
const GenesisTxMarker = "GENESIS"

// IsGenesisCreation reports whether a contract creation transaction hash
// indicates a genesis-block contract.
func IsGenesisCreation(creationTxHash string) bool {
	return len(creationTxHash) >= len(GenesisTxMarker) && creationTxHash[:len(GenesisTxMarker)] == GenesisTxMarker
}
