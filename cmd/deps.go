package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/drivelane/dealersync/internal/crawler"
	"github.com/drivelane/dealersync/internal/feed"
	"github.com/drivelane/dealersync/internal/fetcher"
	"github.com/drivelane/dealersync/internal/store"
	"github.com/drivelane/dealersync/internal/syncer"
)

// openStore creates the configured store backend.
func openStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	case "sqlite":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q (valid: postgres, sqlite)", cfg.Store.Driver)
	}
}

// newOrchestrator wires the fetcher, ingestor, and crawler from config.
func newOrchestrator(st store.Store) *syncer.Orchestrator {
	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:    cfg.Crawl.UserAgent,
		Timeout:      cfg.Crawl.Timeout(),
		MaxBodyBytes: cfg.Crawl.MaxBodyBytes,
	})
	ing := feed.NewIngestor(f)
	cr := crawler.New(f, crawler.Options{
		MaxListings: cfg.Crawl.MaxListings,
		Delay:       cfg.Crawl.Delay(),
	})
	return syncer.New(st, ing, cr, cfg.Sync.Deadline())
}
