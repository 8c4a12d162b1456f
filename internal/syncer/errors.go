package syncer

import "github.com/rotisserie/eris"

// Configuration errors are reported in the sync result and never retried.
var (
	errNoSource    = eris.New("no feed or inventory URL configured")
	errNoFeedURL   = eris.New("feed mode requested but no feed URL configured")
	errNoScrapeURL = eris.New("scrape mode requested but no inventory or sitemap URL configured")
)
