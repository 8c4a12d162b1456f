// Package fetcher downloads data from dealer-controlled HTTP endpoints.
// Dealer sites are untrusted: every request carries a timeout and a body
// size cap, and requests are rate limited per host.
package fetcher

import "context"

// Fetcher defines the interface for downloading remote data.
type Fetcher interface {
	// Fetch downloads the URL with retries on 429/5xx and transient network
	// errors. Returns the body and the Content-Type header value.
	Fetch(ctx context.Context, url string) ([]byte, string, error)

	// FetchOnce downloads the URL with a single attempt. Used for scrape-mode
	// detail pages, where a failed page is skipped rather than retried.
	FetchOnce(ctx context.Context, url string) ([]byte, error)
}
