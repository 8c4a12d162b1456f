package model

import "time"

// SyncMode selects how a dealer's inventory is ingested.
type SyncMode string

const (
	ModeAuto   SyncMode = "auto"
	ModeFeed   SyncMode = "feed"
	ModeScrape SyncMode = "scrape"
)

// DealerSyncConfig is the per-dealer sync source configuration, owned by the
// dealer profile and read-only to the sync core. At least one of FeedURL,
// InventoryURL, or SitemapURL must be set.
type DealerSyncConfig struct {
	DealerID     string `json:"dealer_id" yaml:"dealer_id"`
	FeedURL      string `json:"feed_url,omitempty" yaml:"feed_url,omitempty"`
	InventoryURL string `json:"inventory_url,omitempty" yaml:"inventory_url,omitempty"`
	SitemapURL   string `json:"sitemap_url,omitempty" yaml:"sitemap_url,omitempty"`
}

// HasSource reports whether any sync source is configured.
func (c DealerSyncConfig) HasSource() bool {
	return c.FeedURL != "" || c.InventoryURL != "" || c.SitemapURL != ""
}

// SyncResult is the structured outcome of one dealer sync. The orchestrator
// always returns one; it never lets an error escape its boundary.
type SyncResult struct {
	OK      bool     `json:"ok"`
	Rows    int      `json:"rows,omitempty"`
	Mode    SyncMode `json:"mode,omitempty"`
	Scanned int      `json:"scanned,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// SyncRunStatus is the state of a recorded sync run.
type SyncRunStatus string

const (
	SyncRunRunning  SyncRunStatus = "running"
	SyncRunComplete SyncRunStatus = "complete"
	SyncRunFailed   SyncRunStatus = "failed"
)

// SyncRun is a row in the sync_runs log.
type SyncRun struct {
	ID          string        `json:"id"`
	DealerID    string        `json:"dealer_id"`
	Mode        SyncMode      `json:"mode"`
	Status      SyncRunStatus `json:"status"`
	Rows        int           `json:"rows"`
	Scanned     int           `json:"scanned"`
	Error       string        `json:"error,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

// SweepResult summarizes one lifecycle sweep.
type SweepResult struct {
	Checked         int      `json:"checked"`
	Sold            int      `json:"sold"`
	Expired         int      `json:"expired"`
	DryRun          bool     `json:"dry_run"`
	SoldAfterDays   int      `json:"sold_after_days"`
	ExpireAfterDays int      `json:"expire_after_days"`
	Notes           []string `json:"notes,omitempty"`
}
