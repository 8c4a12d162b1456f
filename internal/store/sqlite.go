package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/drivelane/dealersync/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Intended for local
// development and tests; production runs on Postgres.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
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
	year         INTEGER,
	km           REAL,
	price        REAL,
	photo_urls   TEXT,
	last_seen_at DATETIME NOT NULL,
	created_at   DATETIME NOT NULL,
	updated_at   DATETIME NOT NULL,
	UNIQUE (dealer_id, stock_id)
);

CREATE INDEX IF NOT EXISTS idx_listings_dealer ON listings(dealer_id);
CREATE INDEX IF NOT EXISTS idx_listings_status ON listings(status);

CREATE TABLE IF NOT EXISTS sync_runs (
	id           TEXT PRIMARY KEY,
	dealer_id    TEXT NOT NULL,
	mode         TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	rows_synced  INTEGER NOT NULL DEFAULT 0,
	scanned      INTEGER NOT NULL DEFAULT 0,
	error        TEXT,
	started_at   DATETIME NOT NULL,
	completed_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_sync_runs_dealer ON sync_runs(dealer_id, started_at DESC);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteUpsertListingSQL = `
INSERT INTO listings (
	id, dealer_id, stock_id, source, type, status, make, model,
	variant, fuel, transmission, location, description,
	year, km, price, photo_urls, last_seen_at, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (dealer_id, stock_id) DO UPDATE SET
	source = excluded.source,
	type = excluded.type,
	status = excluded.status,
	make = excluded.make,
	model = excluded.model,
	variant = excluded.variant,
	fuel = excluded.fuel,
	transmission = excluded.transmission,
	location = excluded.location,
	description = excluded.description,
	year = excluded.year,
	km = excluded.km,
	price = excluded.price,
	photo_urls = excluded.photo_urls,
	last_seen_at = excluded.last_seen_at,
	updated_at = excluded.updated_at`

func (s *SQLiteStore) UpsertListing(ctx context.Context, l *model.Listing) error {
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

	_, err = s.db.ExecContext(ctx, sqliteUpsertListingSQL,
		l.ID, l.DealerID, l.StockID, string(l.Source), string(l.Type), string(l.Status),
		l.Make, l.Model,
		nullString(l.Variant), nullString(l.Fuel), nullString(l.Transmission),
		nullString(l.Location), nullString(l.Description),
		l.Year, l.KM, l.Price, photos, l.LastSeenAt, l.LastSeenAt, l.LastSeenAt,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: upsert listing %s/%s", l.DealerID, l.StockID)
	}
	return nil
}

func (s *SQLiteStore) CountListings(ctx context.Context, dealerID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM listings WHERE dealer_id = ?`, dealerID,
	).Scan(&n)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: count listings for %s", dealerID)
	}
	return n, nil
}

func (s *SQLiteStore) ListAvailable(ctx context.Context) ([]model.Listing, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, dealer_id, stock_id, source, type, status, make, model,
	variant, fuel, transmission, location, description,
	year, km, price, photo_urls, last_seen_at, created_at, updated_at
FROM listings WHERE status = 'available'`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list available")
	}
	defer rows.Close()

	var out []model.Listing
	for rows.Next() {
		l, err := scanSQLiteListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: list available rows")
	}
	return out, nil
}

func scanSQLiteListing(rows *sql.Rows) (*model.Listing, error) {
	var (
		l      model.Listing
		photos sql.NullString
		src    string
		typ    string
		status string
		opt    [5]sql.NullString
	)
	err := rows.Scan(
		&l.ID, &l.DealerID, &l.StockID, &src, &typ, &status, &l.Make, &l.Model,
		&opt[0], &opt[1], &opt[2], &opt[3], &opt[4],
		&l.Year, &l.KM, &l.Price, &photos, &l.LastSeenAt, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan listing")
	}

	l.Source = model.ListingSource(src)
	l.Type = model.ListingType(typ)
	l.Status = model.ListingStatus(status)
	l.Variant, l.Fuel, l.Transmission = opt[0].String, opt[1].String, opt[2].String
	l.Location, l.Description = opt[3].String, opt[4].String

	if photos.Valid && photos.String != "" {
		if err := json.Unmarshal([]byte(photos.String), &l.PhotoURLs); err != nil {
			return nil, eris.Wrapf(err, "sqlite: unmarshal photos for %s", l.ID)
		}
	}
	return &l, nil
}

func (s *SQLiteStore) UpdateListingStatus(ctx context.Context, ids []string, status model.ListingStatus) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+2)
	args = append(args, string(status), time.Now().UTC())
	for _, id := range ids {
		args = append(args, id)
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE listings SET status = ?, updated_at = ? WHERE id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update %d listings to %s", len(ids), status)
	}
	return nil
}

func (s *SQLiteStore) StartSyncRun(ctx context.Context, dealerID string, mode model.SyncMode) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_runs (id, dealer_id, mode, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, dealerID, string(mode), string(model.SyncRunRunning), time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: start sync run for %s", dealerID)
	}
	return id, nil
}

func (s *SQLiteStore) FinishSyncRun(ctx context.Context, runID string, result model.SyncResult) error {
	status := model.SyncRunComplete
	if !result.OK {
		status = model.SyncRunFailed
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE sync_runs SET status = ?, rows_synced = ?, scanned = ?, error = ?, completed_at = ? WHERE id = ?`,
		string(status), result.Rows, result.Scanned, nullString(result.Error), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish sync run %s", runID)
	}
	return nil
}
