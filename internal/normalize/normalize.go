// Package normalize converts raw external records (feed rows or scraped
// JSON-LD objects) into canonical listings. Both shapes pass through their
// own adapter into RawListing, then through the shared coercion in Canonical.
package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/drivelane/dealersync/internal/model"
)

// RawListing is the common intermediate shape produced by the feed and
// scrape adapters. All fields are uncoerced source values.
type RawListing struct {
	StockID      string
	Type         string
	Status       string
	Make         string
	Model        string
	Variant      string
	Fuel         string
	Transmission string
	Location     string
	Description  string
	Year         string
	KM           string
	Price        string
	Photos       any // []string, delimited string, or single URL
}

// Canonical coerces a RawListing into a canonical Listing. Returns nil when
// the record has no derivable stock id, make, or model; malformed source
// records are dropped, not errors.
func Canonical(raw RawListing) *model.Listing {
	stockID := CleanString(raw.StockID)
	mk := CleanString(raw.Make)
	mdl := CleanString(raw.Model)
	if stockID == "" || mk == "" || mdl == "" {
		return nil
	}

	return &model.Listing{
		StockID:      stockID,
		Type:         CoerceType(raw.Type),
		Status:       CoerceStatus(raw.Status),
		Make:         mk,
		Model:        mdl,
		Variant:      CleanString(raw.Variant),
		Fuel:         CleanString(raw.Fuel),
		Transmission: CleanString(raw.Transmission),
		Location:     CleanString(raw.Location),
		Description:  CleanString(raw.Description),
		Year:         ParseYear(raw.Year),
		KM:           ParseNumber(raw.KM),
		Price:        ParseMoneyLike(raw.Price),
		PhotoURLs:    PhotoList(raw.Photos),
	}
}

// CleanString trims whitespace; an empty result means the field is absent.
func CleanString(s string) string {
	return strings.TrimSpace(s)
}

var nonNumericRe = regexp.MustCompile(`[^0-9.]`)

// ParseNumber strips all non-digit/non-dot characters and parses the rest.
// Returns nil when the result is not a finite non-negative number, so
// "1,20,000 km" parses and "N/A" yields nil.
func ParseNumber(s string) *float64 {
	cleaned := nonNumericRe.ReplaceAllString(s, "")
	cleaned = strings.Trim(cleaned, ".")
	if cleaned == "" {
		return nil
	}
	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsInf(n, 0) || math.IsNaN(n) || n < 0 {
		return nil
	}
	return &n
}

var (
	lakhRe  = regexp.MustCompile(`(?i)^\s*(?:₹|rs\.?|inr)?\s*([0-9][0-9.,]*)\s*(?:l|lac|lakh|lakhs)\s*$`)
	croreRe = regexp.MustCompile(`(?i)^\s*(?:₹|rs\.?|inr)?\s*([0-9][0-9.,]*)\s*(?:cr|crore|crores)\s*$`)
)

// ParseMoneyLike parses currency-like strings, including Indian lakh/crore
// shorthand ("9.5L" means 950000). Everything else falls through to the
// plain digit-stripping rule of ParseNumber.
func ParseMoneyLike(s string) *float64 {
	if m := lakhRe.FindStringSubmatch(s); m != nil {
		if n := ParseNumber(m[1]); n != nil {
			v := *n * 100000
			return &v
		}
	}
	if m := croreRe.FindStringSubmatch(s); m != nil {
		if n := ParseNumber(m[1]); n != nil {
			v := *n * 10000000
			return &v
		}
	}
	return ParseNumber(s)
}

var yearRe = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// ParseYear extracts a 4-digit year token from the value.
func ParseYear(s string) *int {
	m := yearRe.FindString(s)
	if m == "" {
		return nil
	}
	y, err := strconv.Atoi(m)
	if err != nil {
		return nil
	}
	return &y
}

// Negative availability keywords, compared with separators stripped so both
// "out_of_stock" and schema.org's "OutOfStock" match.
var soldKeywords = []string{"soldout", "outofstock", "sold", "inactive", "unavailable"}

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]`)

// CoerceType maps a raw condition value onto new/used, defaulting to used.
func CoerceType(s string) model.ListingType {
	if strings.Contains(strings.ToLower(s), "new") {
		return model.TypeNew
	}
	return model.TypeUsed
}

// CoerceStatus maps a raw availability hint onto available/sold. Any negative
// keyword wins; "instock" or the absence of a negative keyword means available.
func CoerceStatus(s string) model.ListingStatus {
	lower := nonAlnumRe.ReplaceAllString(strings.ToLower(s), "")
	for _, kw := range soldKeywords {
		if strings.Contains(lower, kw) {
			return model.StatusSold
		}
	}
	return model.StatusAvailable
}

var photoDelimRe = regexp.MustCompile(`[\n,|]`)

// PhotoList accepts a list, a delimited string (newline/comma/pipe), or a
// single URL, and returns a deduplicated list preserving source order.
func PhotoList(v any) []string {
	var raw []string
	switch t := v.(type) {
	case nil:
		return nil
	case []string:
		raw = t
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok {
				raw = append(raw, s)
			}
		}
	case string:
		raw = photoDelimRe.Split(t, -1)
	default:
		return nil
	}

	seen := make(map[string]bool, len(raw))
	var out []string
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
