// Package store persists canonical listings and sync run records, backed by
// Postgres or SQLite.
package store

import (
	"context"

	"github.com/drivelane/dealersync/internal/model"
)

// Store defines the persistence interface shared by the sync orchestrator
// and the lifecycle sweeper.
type Store interface {
	// Listings
	// UpsertListing inserts or updates a listing keyed by
	// (dealer_id, stock_id). The upsert is atomic per row; repeated syncs
	// of the same external item converge on one row.
	UpsertListing(ctx context.Context, l *model.Listing) error
	CountListings(ctx context.Context, dealerID string) (int, error)
	ListAvailable(ctx context.Context) ([]model.Listing, error)
	UpdateListingStatus(ctx context.Context, ids []string, status model.ListingStatus) error

	// Sync log
	StartSyncRun(ctx context.Context, dealerID string, mode model.SyncMode) (string, error)
	FinishSyncRun(ctx context.Context, runID string, result model.SyncResult) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
