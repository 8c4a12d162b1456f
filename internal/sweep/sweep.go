// Package sweep ages out stale listings: available rows unseen for too long
// become sold, and much older ones expired. It shares the listings store
// with the sync subsystem but runs independently of it.
package sweep

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/drivelane/dealersync/internal/model"
	"github.com/drivelane/dealersync/internal/store"
)

// chunkSize bounds how many ids one bulk status update carries.
const chunkSize = 300

// Options configures one sweep run.
type Options struct {
	// SoldAfterDays marks listings sold when unseen for at least this long.
	SoldAfterDays int
	// ExpireAfterDays marks listings expired; always coerced to at least
	// SoldAfterDays+1 so expiry can never fire before sold.
	ExpireAfterDays int
	// DryRun computes counts without writing.
	DryRun bool
}

// Sweeper runs the listing lifecycle sweep.
type Sweeper struct {
	store store.Store
}

// New creates a Sweeper over the given store.
func New(st store.Store) *Sweeper {
	return &Sweeper{store: st}
}

// Run loads all available listings, buckets them by age since last seen, and
// applies the status transitions. If the bulk expire update fails, those ids
// are folded into the sold update instead; partial progress beats losing the
// transition entirely.
func (s *Sweeper) Run(ctx context.Context, opts Options) (model.SweepResult, error) {
	if opts.SoldAfterDays <= 0 {
		opts.SoldAfterDays = 45
	}
	if opts.ExpireAfterDays <= opts.SoldAfterDays {
		opts.ExpireAfterDays = opts.SoldAfterDays + 1
	}

	result := model.SweepResult{
		DryRun:          opts.DryRun,
		SoldAfterDays:   opts.SoldAfterDays,
		ExpireAfterDays: opts.ExpireAfterDays,
	}

	listings, err := s.store.ListAvailable(ctx)
	if err != nil {
		return result, err
	}
	result.Checked = len(listings)

	now := time.Now().UTC()
	var soldIDs, expiredIDs []string
	for i := range listings {
		ts := lastActivity(&listings[i])
		if ts.IsZero() {
			continue
		}
		ageDays := int(now.Sub(ts).Hours() / 24)
		switch {
		case ageDays >= opts.ExpireAfterDays:
			expiredIDs = append(expiredIDs, listings[i].ID)
		case ageDays >= opts.SoldAfterDays:
			soldIDs = append(soldIDs, listings[i].ID)
		}
	}

	if opts.DryRun {
		result.Sold = len(soldIDs)
		result.Expired = len(expiredIDs)
		return result, nil
	}

	log := zap.L().With(zap.String("component", "sweep"))

	expired, failedExpire := s.updateChunked(ctx, expiredIDs, model.StatusExpired)
	if len(failedExpire) > 0 {
		// Fold the failed expirations into the sold update rather than
		// dropping the transition.
		note := fmt.Sprintf("expire update failed for %d listings, folding into sold", len(failedExpire))
		log.Warn(note)
		result.Notes = append(result.Notes, note)
		soldIDs = append(soldIDs, failedExpire...)
	}
	result.Expired = expired

	sold, failedSold := s.updateChunked(ctx, soldIDs, model.StatusSold)
	if len(failedSold) > 0 {
		note := fmt.Sprintf("sold update failed for %d listings", len(failedSold))
		log.Warn(note)
		result.Notes = append(result.Notes, note)
	}
	result.Sold = sold

	log.Info("sweep finished",
		zap.Int("checked", result.Checked),
		zap.Int("sold", result.Sold),
		zap.Int("expired", result.Expired),
	)
	return result, nil
}

// updateChunked applies the status in chunks and returns the success count
// plus ids whose chunk failed.
func (s *Sweeper) updateChunked(ctx context.Context, ids []string, status model.ListingStatus) (int, []string) {
	updated := 0
	var failed []string
	for start := 0; start < len(ids); start += chunkSize {
		end := min(start+chunkSize, len(ids))
		chunk := ids[start:end]
		if err := s.store.UpdateListingStatus(ctx, chunk, status); err != nil {
			zap.L().Warn("bulk status update failed",
				zap.String("status", string(status)),
				zap.Int("chunk", len(chunk)),
				zap.Error(err),
			)
			failed = append(failed, chunk...)
			continue
		}
		updated += len(chunk)
	}
	return updated, failed
}

// lastActivity picks the timestamp the age computation uses: last_seen_at,
// then updated_at, then created_at.
func lastActivity(l *model.Listing) time.Time {
	if !l.LastSeenAt.IsZero() {
		return l.LastSeenAt
	}
	if !l.UpdatedAt.IsZero() {
		return l.UpdatedAt
	}
	return l.CreatedAt
}
