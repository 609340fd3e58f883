package store

import (
	"fmt"
	"strings"
)

// UpsertBatchSize is the default number of rows per upsert statement
// (spec §4.4: "250-1000 per statement").
const UpsertBatchSize = 250

// upsertStatement is the COALESCE-style batched upsert from spec §4.4:
// every nullable field is merged with COALESCE (a null incoming value never
// overwrites a stored one), last_updated is always overwritten, first_seen
// keeps the value from the first insert, and tags is replaced wholesale
// because it represents a fresh reclassification conclusion, not a
// partial view.
const upsertStatement = `
INSERT INTO addresses (
	address, network, code_hash, contract_name, deployed,
	first_seen, last_updated, tags, fund, last_fund_updated,
	name_checked, name_checked_at
) VALUES %s
ON CONFLICT (address, network) DO UPDATE SET
	code_hash         = COALESCE(EXCLUDED.code_hash, addresses.code_hash),
	contract_name     = COALESCE(EXCLUDED.contract_name, addresses.contract_name),
	deployed          = COALESCE(EXCLUDED.deployed, addresses.deployed),
	last_updated      = EXCLUDED.last_updated,
	tags              = EXCLUDED.tags,
	fund              = COALESCE(EXCLUDED.fund, addresses.fund),
	last_fund_updated = COALESCE(EXCLUDED.last_fund_updated, addresses.last_fund_updated),
	name_checked      = COALESCE(EXCLUDED.name_checked, addresses.name_checked),
	name_checked_at   = COALESCE(EXCLUDED.name_checked_at, addresses.name_checked_at)
`

// buildUpsert renders the parameterized upsert statement for a batch of
// rows and returns the statement alongside the flattened argument list, so
// the SQL shape itself is unit-testable without a live connection.
func buildUpsert(rows []AddressRow) (string, []any, error) {
	if len(rows) == 0 {
		return "", nil, fmt.Errorf("store: buildUpsert called with no rows")
	}

	const fieldsPerRow = 12
	placeholders := make([]string, 0, len(rows))
	args := make([]any, 0, len(rows)*fieldsPerRow)

	for i, r := range rows {
		if err := ValidateRow(r); err != nil {
			return "", nil, err
		}
		tags, err := NormalizeTags(r.Tags)
		if err != nil {
			return "", nil, fmt.Errorf("store: row %d: %w", i, err)
		}

		base := i * fieldsPerRow
		ph := make([]string, fieldsPerRow)
		for j := range ph {
			ph[j] = fmt.Sprintf("$%d", base+j+1)
		}
		placeholders = append(placeholders, "("+strings.Join(ph, ", ")+")")

		args = append(args,
			r.Address, r.Network, r.CodeHash, r.ContractName, r.Deployed,
			r.FirstSeen, r.LastUpdated, tags, r.Fund, r.LastFundUpdated,
			r.NameChecked, r.NameCheckedAt,
		)
	}

	stmt := fmt.Sprintf(upsertStatement, strings.Join(placeholders, ",\n"))
	return stmt, args, nil
}

// chunk splits rows into groups of at most size, preserving order.
func chunk(rows []AddressRow, size int) [][]AddressRow {
	if size <= 0 {
		size = UpsertBatchSize
	}
	var out [][]AddressRow
	for i := 0; i < len(rows); i += size {
		end := i + size
		if end > len(rows) {
			end = len(rows)
		}
		out = append(out, rows[i:end])
	}
	return out
}
