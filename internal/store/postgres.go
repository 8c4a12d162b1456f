package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/drivelane/dealersync/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32
	MinConns int32
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS listings (
	id           TEXT PRIMARY KEY,
	dealer_id    TEXT NOT NULL,
	stock_id     TEXT NOT NULL,
	source       TEXT NOT NULL,
	type         TEXT NOT NULL DEFAULT 'used',
	status       TEXT NOT NULL DEFAULT 'available',
	make         TEXT NOT NULL,
	model        TEXT NOT NULL,
	variant      TEXT,
	fuel         TEXT,
	transmission TEXT,
	location     TEXT,
	description  TEXT,
	year         INT,
	km           DOUBLE PRECISION,
	price        DOUBLE PRECISION,
	photo_urls   JSONB,
	last_seen_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (dealer_id, stock_id)
);

CREATE INDEX IF NOT EXISTS idx_listings_dealer ON listings(dealer_id);
CREATE INDEX IF NOT EXISTS idx_listings_status ON listings(status);
CREATE INDEX IF NOT EXISTS idx_listings_last_seen ON listings(status, last_seen_at);

CREATE TABLE IF NOT EXISTS sync_runs (
	id           TEXT PRIMARY KEY,
	dealer_id    TEXT NOT NULL,
	mode         TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	rows_synced  INT NOT NULL DEFAULT 0,
	scanned      INT NOT NULL DEFAULT 0,
	error        TEXT,
	started_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_sync_runs_dealer ON sync_runs(dealer_id, started_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const upsertListingSQL = `
INSERT INTO listings (
	id, dealer_id, stock_id, source, type, status, make, model,
	variant, fuel, transmission, location, description,
	year, km, price, photo_urls, last_seen_at, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $18, $18)
ON CONFLICT (dealer_id, stock_id) DO UPDATE SET
	source = EXCLUDED.source,
	type = EXCLUDED.type,
	status = EXCLUDED.status,
	make = EXCLUDED.make,
	model = EXCLUDED.model,
	variant = EXCLUDED.variant,
	fuel = EXCLUDED.fuel,
	transmission = EXCLUDED.transmission,
	location = EXCLUDED.location,
	description = EXCLUDED.description,
	year = EXCLUDED.year,
	km = EXCLUDED.km,
	price = EXCLUDED.price,
	photo_urls = EXCLUDED.photo_urls,
	last_seen_at = EXCLUDED.last_seen_at,
	updated_at = EXCLUDED.updated_at`

// UpsertListing inserts or updates one listing keyed by (dealer_id, stock_id).
func (s *PostgresStore) UpsertListing(ctx context.Context, l *model.Listing) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if l.LastSeenAt.IsZero() {
		l.LastSeenAt = time.Now().UTC()
	}

	photos, err := marshalPhotos(l.PhotoURLs)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, upsertListingSQL,
		l.ID, l.DealerID, l.StockID, string(l.Source), string(l.Type), string(l.Status),
		l.Make, l.Model,
		nullString(l.Variant), nullString(l.Fuel), nullString(l.Transmission),
		nullString(l.Location), nullString(l.Description),
		l.Year, l.KM, l.Price, photos, l.LastSeenAt,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: upsert listing %s/%s", l.DealerID, l.StockID)
	}
	return nil
}

// CountListings returns the number of listings a dealer currently has.
func (s *PostgresStore) CountListings(ctx context.Context, dealerID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM listings WHERE dealer_id = $1`, dealerID,
	).Scan(&n)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: count listings for %s", dealerID)
	}
	return n, nil
}

const listAvailableSQL = `
SELECT id, dealer_id, stock_id, source, type, status, make, model,
	variant, fuel, transmission, location, description,
	year, km, price, photo_urls, last_seen_at, created_at, updated_at
FROM listings WHERE status = 'available'`

// ListAvailable loads every listing currently marked available.
func (s *PostgresStore) ListAvailable(ctx context.Context) ([]model.Listing, error) {
	rows, err := s.pool.Query(ctx, listAvailableSQL)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list available")
	}
	defer rows.Close()

	var out []model.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: list available rows")
	}
	return out, nil
}

// UpdateListingStatus sets the status on the given listing ids.
func (s *PostgresStore) UpdateListingStatus(ctx context.Context, ids []string, status model.ListingStatus) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE listings SET status = $1, updated_at = now() WHERE id = ANY($2)`,
		string(status), ids,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update %d listings to %s", len(ids), status)
	}
	return nil
}

// StartSyncRun records the beginning of a dealer sync and returns its id.
func (s *PostgresStore) StartSyncRun(ctx context.Context, dealerID string, mode model.SyncMode) (string, error) {
	id := uuid.New().String()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sync_runs (id, dealer_id, mode, status, started_at) VALUES ($1, $2, $3, $4, now())`,
		id, dealerID, string(mode), string(model.SyncRunRunning),
	)
	if err != nil {
		return "", eris.Wrapf(err, "postgres: start sync run for %s", dealerID)
	}
	return id, nil
}

// FinishSyncRun records the outcome of a dealer sync.
func (s *PostgresStore) FinishSyncRun(ctx context.Context, runID string, result model.SyncResult) error {
	status := model.SyncRunComplete
	if !result.OK {
		status = model.SyncRunFailed
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE sync_runs SET status = $1, rows_synced = $2, scanned = $3, error = $4, completed_at = now() WHERE id = $5`,
		string(status), result.Rows, result.Scanned, nullString(result.Error), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish sync run %s", runID)
	}
	return nil
}

// rowScanner covers pgx.Rows and pgx.Row.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(row rowScanner) (*model.Listing, error) {
	var (
		l      model.Listing
		photos []byte
		src    string
		typ    string
		status string
		opt    [5]sql.NullString
	)
	err := row.Scan(
		&l.ID, &l.DealerID, &l.StockID, &src, &typ, &status, &l.Make, &l.Model,
		&opt[0], &opt[1], &opt[2], &opt[3], &opt[4],
		&l.Year, &l.KM, &l.Price, &photos, &l.LastSeenAt, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: scan listing")
	}

	l.Source = model.ListingSource(src)
	l.Type = model.ListingType(typ)
	l.Status = model.ListingStatus(status)
	l.Variant, l.Fuel, l.Transmission = opt[0].String, opt[1].String, opt[2].String
	l.Location, l.Description = opt[3].String, opt[4].String

	if len(photos) > 0 {
		if err := json.Unmarshal(photos, &l.PhotoURLs); err != nil {
			return nil, eris.Wrapf(err, "postgres: unmarshal photos for %s", l.ID)
		}
	}
	return &l, nil
}

// marshalPhotos encodes the photo list for the JSONB column; empty lists
// store as NULL.
func marshalPhotos(photos []string) (any, error) {
	if len(photos) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(photos)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal photos")
	}
	return data, nil
}

// nullString maps empty strings onto SQL NULL.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
