package normalize

import (
	"strconv"
	"strings"
)

// Per-field fallback chains for feed rows. Dealer feeds disagree on header
// naming; the first key with a non-empty value wins.
var feedFieldKeys = map[string][]string{
	"stock_id":     {"stock_id", "stockid", "stock", "id", "vin", "sku"},
	"type":         {"type", "condition", "vehicle_type"},
	"status":       {"status", "availability", "available"},
	"make":         {"make", "brand", "manufacturer"},
	"model":        {"model", "model_name"},
	"variant":      {"variant", "trim", "version", "grade"},
	"fuel":         {"fuel", "fuel_type", "fueltype"},
	"transmission": {"transmission", "gearbox", "transmission_type"},
	"location":     {"location", "city", "dealer_city"},
	"description":  {"description", "details", "summary"},
	"year":         {"year", "model_year", "manufacture_year", "yr"},
	"km":           {"km", "kms", "kilometers", "mileage", "odometer", "kms_driven"},
	"price":        {"price", "selling_price", "asking_price", "amount", "cost"},
	"photos":       {"photos", "photo_urls", "images", "image_urls", "image", "picture"},
}

// FromFeedRow adapts one feed row (header name → value, names matched
// case-insensitively) into the shared RawListing shape. Values may be strings
// (CSV) or arbitrary JSON scalars/arrays (JSON feeds).
func FromFeedRow(row map[string]any) RawListing {
	lowered := make(map[string]any, len(row))
	for k, v := range row {
		lowered[strings.ToLower(strings.TrimSpace(k))] = v
	}

	pick := func(field string) string {
		for _, key := range feedFieldKeys[field] {
			if s := stringValue(lowered[key]); s != "" {
				return s
			}
		}
		return ""
	}

	raw := RawListing{
		StockID:      pick("stock_id"),
		Type:         pick("type"),
		Status:       pick("status"),
		Make:         pick("make"),
		Model:        pick("model"),
		Variant:      pick("variant"),
		Fuel:         pick("fuel"),
		Transmission: pick("transmission"),
		Location:     pick("location"),
		Description:  pick("description"),
		Year:         pick("year"),
		KM:           pick("km"),
		Price:        pick("price"),
	}

	// Photos keep their source shape; PhotoList handles arrays and
	// delimited strings alike.
	for _, key := range feedFieldKeys["photos"] {
		if v, ok := lowered[key]; ok && v != nil {
			raw.Photos = v
			break
		}
	}
	return raw
}

// stringValue renders a feed value as a trimmed string. Floats that are
// whole numbers print without an exponent or trailing zeros.
func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}
