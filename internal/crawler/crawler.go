// Package crawler discovers and extracts vehicle listings from dealer
// websites: sitemap and inventory-page discovery, then per-page JSON-LD
// extraction. All requests stay on the dealer's own origin.
package crawler

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/drivelane/dealersync/internal/fetcher"
	"github.com/drivelane/dealersync/internal/normalize"
)

// Options bounds a scrape run. Defaults are applied by New.
type Options struct {
	// MaxListings caps how many detail pages one sync visits.
	MaxListings int
	// Delay is the pause between detail-page fetches.
	Delay time.Duration
}

// Crawler fetches dealer pages and extracts vehicle records.
type Crawler struct {
	fetcher fetcher.Fetcher
	opts    Options
	limiter *rate.Limiter
}

// New creates a Crawler with the given fetcher and options.
func New(f fetcher.Fetcher, opts Options) *Crawler {
	if opts.MaxListings <= 0 {
		opts.MaxListings = 60
	}
	if opts.Delay <= 0 {
		opts.Delay = 150 * time.Millisecond
	}
	return &Crawler{
		fetcher: f,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Every(opts.Delay), 1),
	}
}

// Scrape visits each detail URL in order, separated by the configured delay,
// and calls handle for every page that yields a vehicle record. A fetch or
// extraction failure for one URL is logged and the crawl moves on. Returns
// the number of URLs scanned; the error is non-nil only when the context
// ends the run early.
func (c *Crawler) Scrape(ctx context.Context, urls []string, handle func(pageURL string, raw normalize.RawListing)) (int, error) {
	log := zap.L().With(zap.String("component", "crawler"))

	scanned := 0
	for _, pageURL := range urls {
		if err := c.limiter.Wait(ctx); err != nil {
			return scanned, err
		}
		scanned++

		body, err := c.fetcher.FetchOnce(ctx, pageURL)
		if err != nil {
			if ctx.Err() != nil {
				return scanned, ctx.Err()
			}
			log.Warn("detail page fetch failed, skipping", zap.String("url", pageURL), zap.Error(err))
			continue
		}

		raw := ExtractVehicle(body, pageURL)
		if raw == nil {
			log.Debug("no vehicle json-ld on page", zap.String("url", pageURL))
			continue
		}

		handle(pageURL, *raw)
	}
	return scanned, nil
}
