package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drivelane/dealersync/internal/model"
)

// newTestSQLiteStore opens an in-memory database, pinned to one connection so
// every statement sees the same schema.
func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(":memory:")
	require.NoError(t, err)
	s.db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func testListing(dealerID, stockID string) *model.Listing {
	price := 950000.0
	year := 2021
	return &model.Listing{
		DealerID:   dealerID,
		StockID:    stockID,
		Source:     model.SourceDealerFeed,
		Type:       model.TypeUsed,
		Status:     model.StatusAvailable,
		Make:       "Honda",
		Model:      "City",
		Variant:    "ZX",
		Year:       &year,
		Price:      &price,
		PhotoURLs:  []string{"https://cdn.example/1.jpg"},
		LastSeenAt: time.Now().UTC(),
	}
}

func TestSQLiteStore_UpsertConverges(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	first := testListing("d1", "A1")
	require.NoError(t, s.UpsertListing(ctx, first))

	// Same (dealer_id, stock_id) with new data updates in place.
	second := testListing("d1", "A1")
	newPrice := 900000.0
	second.Price = &newPrice
	require.NoError(t, s.UpsertListing(ctx, second))

	n, err := s.CountListings(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	listings, err := s.ListAvailable(ctx)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	require.NotNil(t, listings[0].Price)
	assert.Equal(t, 900000.0, *listings[0].Price)
}

func TestSQLiteStore_DealerScoping(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertListing(ctx, testListing("d1", "A1")))
	require.NoError(t, s.UpsertListing(ctx, testListing("d2", "A1")))

	for _, dealer := range []string{"d1", "d2"} {
		n, err := s.CountListings(ctx, dealer)
		require.NoError(t, err)
		assert.Equal(t, 1, n, dealer)
	}
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	in := testListing("d1", "A1")
	require.NoError(t, s.UpsertListing(ctx, in))

	listings, err := s.ListAvailable(ctx)
	require.NoError(t, err)
	require.Len(t, listings, 1)

	got := listings[0]
	assert.Equal(t, in.ID, got.ID)
	assert.Equal(t, "Honda", got.Make)
	assert.Equal(t, "ZX", got.Variant)
	assert.Empty(t, got.Fuel)
	require.NotNil(t, got.Year)
	assert.Equal(t, 2021, *got.Year)
	assert.Nil(t, got.KM)
	assert.Equal(t, []string{"https://cdn.example/1.jpg"}, got.PhotoURLs)
	assert.WithinDuration(t, in.LastSeenAt, got.LastSeenAt, time.Second)
}

func TestSQLiteStore_UpdateListingStatus(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	a := testListing("d1", "A1")
	b := testListing("d1", "A2")
	c := testListing("d1", "A3")
	for _, l := range []*model.Listing{a, b, c} {
		require.NoError(t, s.UpsertListing(ctx, l))
	}

	require.NoError(t, s.UpdateListingStatus(ctx, []string{a.ID, b.ID}, model.StatusSold))

	listings, err := s.ListAvailable(ctx)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, c.ID, listings[0].ID)
}

func TestSQLiteStore_SyncRunLifecycle(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	runID, err := s.StartSyncRun(ctx, "d1", model.ModeScrape)
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	require.NoError(t, s.FinishSyncRun(ctx, runID, model.SyncResult{
		OK: false, Rows: 3, Scanned: 10, Error: "deadline exceeded",
	}))

	var (
		status  string
		rows    int
		scanned int
		errMsg  string
	)
	err = s.db.QueryRowContext(ctx,
		`SELECT status, rows_synced, scanned, error FROM sync_runs WHERE id = ?`, runID,
	).Scan(&status, &rows, &scanned, &errMsg)
	require.NoError(t, err)
	assert.Equal(t, string(model.SyncRunFailed), status)
	assert.Equal(t, 3, rows)
	assert.Equal(t, 10, scanned)
	assert.Equal(t, "deadline exceeded", errMsg)
}
