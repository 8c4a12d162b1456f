package model

import "time"

// ListingSource records how a listing entered the system.
type ListingSource string

const (
	SourceDealerFeed   ListingSource = "dealer_feed"
	SourceDealerScrape ListingSource = "dealer_scrape"
)

// ListingType distinguishes new from used stock.
type ListingType string

const (
	TypeNew  ListingType = "new"
	TypeUsed ListingType = "used"
)

// ListingStatus is the lifecycle state of a listing.
type ListingStatus string

const (
	StatusAvailable ListingStatus = "available"
	StatusSold      ListingStatus = "sold"
	StatusExpired   ListingStatus = "expired"
)

// Listing is the canonical, normalized inventory record. The pair
// (DealerID, StockID) is its identity: re-syncing the same external item
// updates the row in place.
type Listing struct {
	ID           string        `json:"id,omitempty"`
	DealerID     string        `json:"dealer_id"`
	StockID      string        `json:"stock_id"`
	Source       ListingSource `json:"source"`
	Type         ListingType   `json:"type"`
	Status       ListingStatus `json:"status"`
	Make         string        `json:"make"`
	Model        string        `json:"model"`
	Variant      string        `json:"variant,omitempty"`
	Fuel         string        `json:"fuel,omitempty"`
	Transmission string        `json:"transmission,omitempty"`
	Location     string        `json:"location,omitempty"`
	Description  string        `json:"description,omitempty"`
	Year         *int          `json:"year,omitempty"`
	KM           *float64      `json:"km,omitempty"`
	Price        *float64      `json:"price,omitempty"`
	PhotoURLs    []string      `json:"photo_urls,omitempty"`
	LastSeenAt   time.Time     `json:"last_seen_at"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}
