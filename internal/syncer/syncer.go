// Package syncer orchestrates one dealer's inventory sync: mode selection,
// ingestion or crawl, normalization, and idempotent upserts. A sync always
// returns a structured result; no error escapes the orchestrator boundary.
package syncer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/drivelane/dealersync/internal/crawler"
	"github.com/drivelane/dealersync/internal/feed"
	"github.com/drivelane/dealersync/internal/model"
	"github.com/drivelane/dealersync/internal/normalize"
	"github.com/drivelane/dealersync/internal/store"
)

// Orchestrator drives dealer inventory syncs.
type Orchestrator struct {
	store    store.Store
	ingestor *feed.Ingestor
	crawler  *crawler.Crawler
	deadline time.Duration
}

// New creates an Orchestrator. deadline bounds one whole dealer sync; zero
// means the default of 10 minutes.
func New(st store.Store, ing *feed.Ingestor, cr *crawler.Crawler, deadline time.Duration) *Orchestrator {
	if deadline <= 0 {
		deadline = 10 * time.Minute
	}
	return &Orchestrator{store: st, ingestor: ing, crawler: cr, deadline: deadline}
}

// SyncDealer syncs one dealer's inventory and returns the result summary.
// Per-row failures (normalizer rejections, single upsert errors, single page
// failures) never abort the batch; only configuration and top-level
// transport/parse errors fail the sync, and those come back in the result.
func (o *Orchestrator) SyncDealer(ctx context.Context, cfg model.DealerSyncConfig, mode model.SyncMode) model.SyncResult {
	log := zap.L().With(
		zap.String("component", "syncer"),
		zap.String("dealer_id", cfg.DealerID),
	)

	resolved, err := resolveMode(cfg, mode)
	if err != nil {
		return model.SyncResult{OK: false, Error: err.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, o.deadline)
	defer cancel()

	runID, err := o.store.StartSyncRun(ctx, cfg.DealerID, resolved)
	if err != nil {
		// The sync log is observability, not a precondition.
		log.Warn("failed to record sync run start", zap.Error(err))
	}

	var result model.SyncResult
	start := time.Now()
	switch resolved {
	case model.ModeFeed:
		result = o.syncFeed(ctx, log, cfg)
	default:
		result = o.syncScrape(ctx, log, cfg)
	}
	result.Mode = resolved

	if runID != "" {
		if err := o.store.FinishSyncRun(ctx, runID, result); err != nil {
			log.Warn("failed to record sync run result", zap.Error(err))
		}
	}

	log.Info("dealer sync finished",
		zap.String("mode", string(resolved)),
		zap.Bool("ok", result.OK),
		zap.Int("rows", result.Rows),
		zap.Int("scanned", result.Scanned),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result
}

// resolveMode picks feed vs scrape from the dealer config and the caller's
// mode hint. A dealer with no source at all is a configuration error.
func resolveMode(cfg model.DealerSyncConfig, mode model.SyncMode) (model.SyncMode, error) {
	switch mode {
	case model.ModeFeed:
		if cfg.FeedURL == "" {
			return "", errNoFeedURL
		}
		return model.ModeFeed, nil
	case model.ModeScrape:
		if cfg.InventoryURL == "" && cfg.SitemapURL == "" {
			return "", errNoScrapeURL
		}
		return model.ModeScrape, nil
	default:
		if cfg.FeedURL != "" {
			return model.ModeFeed, nil
		}
		if cfg.InventoryURL != "" || cfg.SitemapURL != "" {
			return model.ModeScrape, nil
		}
		return "", errNoSource
	}
}

// syncFeed fetches and parses the feed, then normalizes and upserts each row.
func (o *Orchestrator) syncFeed(ctx context.Context, log *zap.Logger, cfg model.DealerSyncConfig) model.SyncResult {
	rows, err := o.ingestor.Fetch(ctx, cfg.FeedURL)
	if err != nil {
		log.Warn("feed fetch failed", zap.String("url", cfg.FeedURL), zap.Error(err))
		return model.SyncResult{OK: false, Error: err.Error()}
	}

	processed := 0
	for _, row := range rows {
		raw := normalize.FromFeedRow(row)
		if o.persist(ctx, log, cfg.DealerID, model.SourceDealerFeed, raw) {
			processed++
		}
	}
	return model.SyncResult{OK: true, Rows: processed, Scanned: len(rows)}
}

// syncScrape discovers detail URLs and extracts, normalizes, and upserts a
// listing from each.
func (o *Orchestrator) syncScrape(ctx context.Context, log *zap.Logger, cfg model.DealerSyncConfig) model.SyncResult {
	urls, err := o.crawler.DiscoverListingURLs(ctx, cfg.InventoryURL, cfg.SitemapURL)
	if err != nil {
		log.Warn("listing discovery failed", zap.Error(err))
		return model.SyncResult{OK: false, Error: err.Error()}
	}
	if len(urls) == 0 {
		return model.SyncResult{OK: false, Error: "no listing URLs found"}
	}

	processed := 0
	scanned, err := o.crawler.Scrape(ctx, urls, func(pageURL string, raw normalize.RawListing) {
		if o.persist(ctx, log, cfg.DealerID, model.SourceDealerScrape, raw) {
			processed++
		}
	})
	if err != nil {
		// Context ended mid-crawl; report the partial progress.
		return model.SyncResult{OK: false, Rows: processed, Scanned: scanned, Error: err.Error()}
	}
	return model.SyncResult{OK: true, Rows: processed, Scanned: scanned}
}

// persist normalizes one raw record and upserts it, stamping ownership and
// last-seen. Returns false when the record is rejected or the write fails;
// either way the batch continues.
func (o *Orchestrator) persist(ctx context.Context, log *zap.Logger, dealerID string, source model.ListingSource, raw normalize.RawListing) bool {
	listing := normalize.Canonical(raw)
	if listing == nil {
		log.Debug("record rejected by normalizer")
		return false
	}

	listing.DealerID = dealerID
	listing.Source = source
	listing.LastSeenAt = time.Now().UTC()

	if err := o.store.UpsertListing(ctx, listing); err != nil {
		log.Warn("listing upsert failed, skipping row",
			zap.String("stock_id", listing.StockID), zap.Error(err))
		return false
	}
	return true
}
