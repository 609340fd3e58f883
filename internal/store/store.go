package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the C4 contract consumed by the scanner, fund updater, and
// revalidator jobs.
type Store interface {
	EnsureSchema(ctx context.Context) error
	UpsertAddresses(ctx context.Context, rows []AddressRow) error
	ExistingAddresses(ctx context.Context, network string, addrs []string) (map[string]bool, error)
	AddressDeployed(ctx context.Context, network, address string) (*int64, bool, error)
	ExistingCodeHash(ctx context.Context, network, address string) (*string, bool, error)
	ExistingTags(ctx context.Context, network, address string) ([]string, bool, error)
	NameChecked(ctx context.Context, network, address string) (bool, error)

	LoadExcludedBlocks(ctx context.Context, network string) (map[uint64]struct{}, error)
	ExcludeBlock(ctx context.Context, network string, block uint64, reason string) error

	AdvisoryLock(ctx context.Context, key int64, fn func(ctx context.Context) error) error

	UpsertTokenPrice(ctx context.Context, row TokenRow) error
	LatestPriceUpdate(ctx context.Context, network string) (int64, error)
	UpsertSymbolPrice(ctx context.Context, row SymbolPrice) error
	SymbolPrice(ctx context.Context, symbol string) (*SymbolPrice, error)

	UpsertTokenMetadata(ctx context.Context, row TokenMetadata) error
	TokenMetadata(ctx context.Context, network, tokenAddr string) (*TokenMetadata, error)

	SelectStaleFundRows(ctx context.Context, network string, opts FundSelectionOptions) ([]AddressRow, error)
	SelectRevalidationRows(ctx context.Context, network string, limit int) ([]AddressRow, error)

	Close()
}

// FundSelectionOptions mirrors the FundUpdater mode switches in spec §4.8.
type FundSelectionOptions struct {
	All               bool
	HighFund          bool
	DelayDays         int
	MaxBatch          int
}

type pgStore struct {
	pool *pgxpool.Pool
	dsn  string
}

// New opens a bounded pgxpool (≤20 connections, spec §5) against dsn.
func New(ctx context.Context, dsn string) (Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("store: parse dsn: %w", err)
	}
	cfg.MaxConns = 20

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	return &pgStore{pool: pool, dsn: dsn}, nil
}

func (s *pgStore) Close() { s.pool.Close() }

func (s *pgStore) EnsureSchema(ctx context.Context) error {
	return EnsureSchema(ctx, s.pool, s.dsn)
}

// UpsertAddresses writes rows in chunks of UpsertBatchSize, each chunk in
// its own transaction (spec §4.4, §5: short transactions, no long-held
// locks).
func (s *pgStore) UpsertAddresses(ctx context.Context, rows []AddressRow) error {
	for _, batch := range chunk(rows, UpsertBatchSize) {
		stmt, args, err := buildUpsert(batch)
		if err != nil {
			return err
		}
		if err := s.withTx(ctx, func(tx pgx.Tx) error {
			_, err := tx.Exec(ctx, stmt, args...)
			return err
		}); err != nil {
			return fmt.Errorf("store: upsert batch of %d: %w", len(batch), err)
		}
	}
	return nil
}

func (s *pgStore) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *pgStore) ExistingAddresses(ctx context.Context, network string, addrs []string) (map[string]bool, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT address FROM addresses WHERE network = $1 AND address = ANY($2)`,
		network, addrs)
	if err != nil {
		return nil, fmt.Errorf("store: existing addresses: %w", err)
	}
	defer rows.Close()

	out := make(map[string]bool, len(addrs))
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		out[a] = true
	}
	return out, rows.Err()
}

func (s *pgStore) AddressDeployed(ctx context.Context, network, address string) (*int64, bool, error) {
	var deployed *int64
	err := s.pool.QueryRow(ctx,
		`SELECT deployed FROM addresses WHERE network = $1 AND address = $2`, network, address,
	).Scan(&deployed)
	if err == pgx.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: address deployed: %w", err)
	}
	return deployed, true, nil
}

func (s *pgStore) ExistingCodeHash(ctx context.Context, network, address string) (*string, bool, error) {
	var hash *string
	err := s.pool.QueryRow(ctx,
		`SELECT code_hash FROM addresses WHERE network = $1 AND address = $2`, network, address,
	).Scan(&hash)
	if err == pgx.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: existing code hash: %w", err)
	}
	return hash, true, nil
}

func (s *pgStore) ExistingTags(ctx context.Context, network, address string) ([]string, bool, error) {
	var tags []string
	err := s.pool.QueryRow(ctx,
		`SELECT tags FROM addresses WHERE network = $1 AND address = $2`, network, address,
	).Scan(&tags)
	if err == pgx.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: existing tags: %w", err)
	}
	return tags, true, nil
}

func (s *pgStore) NameChecked(ctx context.Context, network, address string) (bool, error) {
	var checked *bool
	err := s.pool.QueryRow(ctx,
		`SELECT name_checked FROM addresses WHERE network = $1 AND address = $2`, network, address,
	).Scan(&checked)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: name checked: %w", err)
	}
	return checked != nil && *checked, nil
}

func (s *pgStore) LoadExcludedBlocks(ctx context.Context, network string) (map[uint64]struct{}, error) {
	// The excluded_blocks table is created if missing on first query (spec
	// §4.4), so this works even when schema ensure was skipped; the
	// initial migration also creates it.
	if _, err := s.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS excluded_blocks (
		network TEXT NOT NULL, block_number BIGINT NOT NULL,
		reason TEXT NOT NULL, excluded_at BIGINT NOT NULL,
		PRIMARY KEY (network, block_number))`); err != nil {
		return nil, fmt.Errorf("store: ensure excluded_blocks: %w", err)
	}

	rows, err := s.pool.Query(ctx, `SELECT block_number FROM excluded_blocks WHERE network = $1`, network)
	if err != nil {
		return nil, fmt.Errorf("store: load excluded blocks: %w", err)
	}
	defer rows.Close()

	out := make(map[uint64]struct{})
	for rows.Next() {
		var n int64
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out[uint64(n)] = struct{}{}
	}
	return out, rows.Err()
}

func (s *pgStore) ExcludeBlock(ctx context.Context, network string, block uint64, reason string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO excluded_blocks (network, block_number, reason, excluded_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (network, block_number) DO NOTHING`,
		network, int64(block), reason, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("store: exclude block %d: %w", block, err)
	}
	return nil
}

// AdvisoryLock serializes fn across concurrent processes sharing this
// database using a Postgres session-level advisory lock, the mechanism
// spec §4.4/§5 uses to protect the shared symbol_prices table.
func (s *pgStore) AdvisoryLock(ctx context.Context, key int64, fn func(ctx context.Context) error) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("store: acquire connection for advisory lock: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, key); err != nil {
		return fmt.Errorf("store: acquire advisory lock %d: %w", key, err)
	}
	defer conn.Exec(ctx, `SELECT pg_advisory_unlock($1)`, key) //nolint:errcheck

	return fn(ctx)
}

func (s *pgStore) UpsertTokenPrice(ctx context.Context, row TokenRow) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tokens (token_address, network, name, symbol, decimals, price, price_updated, is_valid)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (token_address, network) DO UPDATE SET
			price = EXCLUDED.price, price_updated = EXCLUDED.price_updated, is_valid = EXCLUDED.is_valid`,
		row.TokenAddress, row.Network, row.Name, row.Symbol, row.Decimals, row.PriceUSD, row.PriceUpdated, row.IsValid)
	if err != nil {
		return fmt.Errorf("store: upsert token price: %w", err)
	}
	return nil
}

func (s *pgStore) LatestPriceUpdate(ctx context.Context, network string) (int64, error) {
	var ts *int64
	err := s.pool.QueryRow(ctx,
		`SELECT MAX(price_updated) FROM tokens WHERE network = $1`, network,
	).Scan(&ts)
	if err != nil {
		return 0, fmt.Errorf("store: latest price update: %w", err)
	}
	if ts == nil {
		return 0, nil
	}
	return *ts, nil
}

func (s *pgStore) UpsertSymbolPrice(ctx context.Context, row SymbolPrice) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO symbol_prices (symbol, price_usd, decimals, name, last_updated)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (symbol) DO UPDATE SET
			price_usd = EXCLUDED.price_usd, decimals = EXCLUDED.decimals,
			name = EXCLUDED.name, last_updated = EXCLUDED.last_updated`,
		row.Symbol, row.PriceUSD, row.Decimals, row.Name, row.LastUpdated)
	if err != nil {
		return fmt.Errorf("store: upsert symbol price: %w", err)
	}
	return nil
}

func (s *pgStore) SymbolPrice(ctx context.Context, symbol string) (*SymbolPrice, error) {
	var row SymbolPrice
	err := s.pool.QueryRow(ctx,
		`SELECT symbol, price_usd, decimals, name, last_updated FROM symbol_prices WHERE symbol = $1`, symbol,
	).Scan(&row.Symbol, &row.PriceUSD, &row.Decimals, &row.Name, &row.LastUpdated)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: symbol price: %w", err)
	}
	return &row, nil
}

func (s *pgStore) UpsertTokenMetadata(ctx context.Context, row TokenMetadata) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO token_metadata_cache (network, token_address, symbol, name, decimals, logo_url, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (network, token_address) DO UPDATE SET
			symbol = EXCLUDED.symbol, name = EXCLUDED.name, decimals = EXCLUDED.decimals,
			logo_url = EXCLUDED.logo_url, last_updated = EXCLUDED.last_updated`,
		row.Network, row.TokenAddr, row.Symbol, row.Name, row.Decimals, row.LogoURL, row.LastUpdated)
	if err != nil {
		return fmt.Errorf("store: upsert token metadata: %w", err)
	}
	return nil
}

// TokenMetadataTTL is the 30-day freshness window from spec §3.
const TokenMetadataTTL = 30 * 24 * time.Hour

func (s *pgStore) TokenMetadata(ctx context.Context, network, tokenAddr string) (*TokenMetadata, error) {
	var row TokenMetadata
	err := s.pool.QueryRow(ctx, `
		SELECT network, token_address, symbol, name, decimals, logo_url, last_updated
		FROM token_metadata_cache WHERE network = $1 AND token_address = $2`,
		network, tokenAddr,
	).Scan(&row.Network, &row.TokenAddr, &row.Symbol, &row.Name, &row.Decimals, &row.LogoURL, &row.LastUpdated)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: token metadata: %w", err)
	}
	if time.Since(time.Unix(row.LastUpdated, 0)) > TokenMetadataTTL {
		return nil, nil
	}
	return &row, nil
}

// SelectStaleFundRows implements the FundUpdater selection query (spec
// §4.8): favor high fund then oldest last_fund_updated, excluding EOAs.
func (s *pgStore) SelectStaleFundRows(ctx context.Context, network string, opts FundSelectionOptions) ([]AddressRow, error) {
	maxBatch := opts.MaxBatch
	if maxBatch <= 0 {
		maxBatch = 50000
	}

	query := `SELECT address, network, code_hash, contract_name, deployed,
		first_seen, last_updated, tags, fund, last_fund_updated, name_checked, name_checked_at
		FROM addresses WHERE network = $1 AND NOT ('EOA' = ANY(tags))`

	args := []any{network}
	if opts.HighFund {
		query += ` AND COALESCE(fund, 0) >= 100000 ORDER BY fund DESC`
	} else if !opts.All {
		cutoff := time.Now().AddDate(0, 0, -opts.delayDaysOrDefault()).Unix()
		query += fmt.Sprintf(` AND COALESCE(last_fund_updated, 0) < $%d ORDER BY fund DESC NULLS LAST, last_fund_updated ASC NULLS FIRST`, len(args)+1)
		args = append(args, cutoff)
	} else {
		query += ` ORDER BY fund DESC NULLS LAST, last_fund_updated ASC NULLS FIRST`
	}
	query += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
	args = append(args, maxBatch)

	return s.queryAddressRows(ctx, query, args...)
}

func (o FundSelectionOptions) delayDaysOrDefault() int {
	if o.DelayDays <= 0 {
		return 7
	}
	return o.DelayDays
}

// SelectRevalidationRows implements DataRevalidator's selection query
// (spec §4.9): incomplete or inconsistent classification, highest value
// first.
func (s *pgStore) SelectRevalidationRows(ctx context.Context, network string, limit int) ([]AddressRow, error) {
	if limit <= 0 {
		limit = 100000
	}
	query := `SELECT address, network, code_hash, contract_name, deployed,
		first_seen, last_updated, tags, fund, last_fund_updated, name_checked, name_checked_at
		FROM addresses
		WHERE network = $1 AND (
			tags IS NULL OR cardinality(tags) = 0
			OR ('Contract' = ANY(tags) AND code_hash IS NULL)
			OR ('Contract' = ANY(tags) AND deployed IS NULL)
			OR 'SelfDestroyed' = ANY(tags)
		)
		ORDER BY fund DESC NULLS LAST
		LIMIT $2`
	return s.queryAddressRows(ctx, query, network, limit)
}

func (s *pgStore) queryAddressRows(ctx context.Context, query string, args ...any) ([]AddressRow, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query address rows: %w", err)
	}
	defer rows.Close()

	var out []AddressRow
	for rows.Next() {
		var r AddressRow
		if err := rows.Scan(
			&r.Address, &r.Network, &r.CodeHash, &r.ContractName, &r.Deployed,
			&r.FirstSeen, &r.LastUpdated, &r.Tags, &r.Fund, &r.LastFundUpdated,
			&r.NameChecked, &r.NameCheckedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
