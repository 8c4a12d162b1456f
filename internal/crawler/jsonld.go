package crawler

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/drivelane/dealersync/internal/normalize"
)

// vehicleTypes are the schema.org @type values accepted as vehicle records.
// Matching is a case-insensitive substring test, tolerating type arrays.
var vehicleTypes = []string{"vehicle", "car", "product"}

// ExtractVehicle parses the detail page's JSON-LD blocks and returns the raw
// record of the best vehicle candidate, or nil when the page carries none.
// When several candidates exist (a generic Product breadcrumb next to the
// actual Vehicle node is common), the highest-scoring one wins; ties go to
// the first in document order.
func ExtractVehicle(html []byte, pageURL string) *normalize.RawListing {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil
	}

	var best map[string]any
	bestScore := -1
	for _, node := range parseJSONLD(doc) {
		if !isVehicleNode(node) {
			continue
		}
		if s := scoreCandidate(node); s > bestScore {
			best, bestScore = node, s
		}
	}
	if best == nil {
		return nil
	}

	return buildRawListing(best, pageURL)
}

// isVehicleNode reports whether the node's @type looks like a vehicle record.
func isVehicleNode(node map[string]any) bool {
	for _, t := range vehicleTypes {
		if typeContains(node, t) {
			return true
		}
	}
	return false
}

// typeContains checks @type (string or array) for a case-insensitive
// substring.
func typeContains(node map[string]any, substr string) bool {
	switch t := node["@type"].(type) {
	case string:
		return strings.Contains(strings.ToLower(t), substr)
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && strings.Contains(strings.ToLower(s), substr) {
				return true
			}
		}
	}
	return false
}

// scoreCandidate ranks a JSON-LD node by how much vehicle signal it carries:
// an offer price counts double, brand/model/image one each.
func scoreCandidate(node map[string]any) int {
	score := 0
	if offerPrice(node) != "" {
		score += 2
	}
	if ldString(node["brand"]) != "" || ldString(node["manufacturer"]) != "" || ldString(node["make"]) != "" {
		score++
	}
	if ldString(node["model"]) != "" || ldString(node["vehicleModel"]) != "" {
		score++
	}
	if imageURLs(node["image"]) != nil {
		score++
	}
	return score
}

// buildRawListing maps the chosen node onto the shared raw record shape.
func buildRawListing(node map[string]any, pageURL string) *normalize.RawListing {
	raw := &normalize.RawListing{
		StockID:      stockID(node, pageURL),
		Type:         firstLD(node, "itemCondition", "vehicleCondition"),
		Status:       offerField(node, "availability"),
		Make:         firstLD(node, "brand", "manufacturer", "make"),
		Model:        firstLD(node, "model", "vehicleModel"),
		Variant:      firstLD(node, "vehicleConfiguration", "trim"),
		Fuel:         firstLD(node, "fuelType", "vehicleFuelType"),
		Transmission: firstLD(node, "vehicleTransmission", "transmission"),
		Location:     sellerLocation(node),
		Description:  ldString(node["description"]),
		Year:         firstLD(node, "vehicleModelDate", "modelDate", "productionDate"),
		KM:           mileage(node),
		Price:        offerPrice(node),
	}

	// Many dealer sites only populate the free-text name ("2021 Hyundai
	// Creta SX"); parse it when structured fields are missing.
	if raw.Make == "" || raw.Model == "" || raw.Year == "" {
		year, mk, mdl, variant := parseName(ldString(node["name"]))
		if raw.Year == "" {
			raw.Year = year
		}
		if raw.Make == "" {
			raw.Make = mk
		}
		if raw.Model == "" {
			raw.Model = mdl
		}
		if raw.Variant == "" {
			raw.Variant = variant
		}
	}

	if photos := imageURLs(node["image"]); photos != nil {
		raw.Photos = resolvePhotos(photos, pageURL)
	}
	return raw
}

// stockIDKeys are tried in order before falling back to a URL hash.
var stockIDKeys = []string{"sku", "productID", "mpn", "vehicleIdentificationNumber", "vin", "@id"}

// stockID derives a dealer-scoped identifier for the record. Without any
// explicit id the detail URL is hashed, so the same URL maps to the same
// stock id on every sync run.
func stockID(node map[string]any, pageURL string) string {
	for _, key := range stockIDKeys {
		if v := ldString(node[key]); v != "" {
			return v
		}
	}
	return HashStockID(pageURL)
}

// HashStockID returns a deterministic short id for a detail-page URL.
func HashStockID(pageURL string) string {
	sum := sha256.Sum256([]byte(strings.TrimRight(pageURL, "/")))
	return "u-" + hex.EncodeToString(sum[:])[:12]
}

var namePunctRe = regexp.MustCompile(`[^\p{L}\p{N}\s-]`)

// parseName splits a free-text vehicle name into year, make, model, and
// variant: punctuation stripped, a 4-digit year token pulled out, first
// remaining word is the make, second the model, the rest the variant.
func parseName(name string) (year, mk, mdl, variant string) {
	name = namePunctRe.ReplaceAllString(name, " ")

	var words []string
	for _, w := range strings.Fields(name) {
		if year == "" && len(w) == 4 {
			if _, err := strconv.Atoi(w); err == nil {
				year = w
				continue
			}
		}
		words = append(words, w)
	}

	if len(words) > 0 {
		mk = words[0]
	}
	if len(words) > 1 {
		mdl = words[1]
	}
	if len(words) > 2 {
		variant = strings.Join(words[2:], " ")
	}
	return year, mk, mdl, variant
}

// ldString renders a JSON-LD value as a string. Nested objects commonly wrap
// the useful value in "name" (Brand, Model) or "value" (QuantitativeValue).
func ldString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case map[string]any:
		if s := ldString(t["name"]); s != "" {
			return s
		}
		return ldString(t["value"])
	}
	return ""
}

// firstLD returns the first non-empty field among keys.
func firstLD(node map[string]any, keys ...string) string {
	for _, key := range keys {
		if v := ldString(node[key]); v != "" {
			return v
		}
	}
	return ""
}

// offerNode returns the first offers object, tolerating an array of offers.
func offerNode(node map[string]any) map[string]any {
	switch t := node["offers"].(type) {
	case map[string]any:
		return t
	case []any:
		for _, item := range t {
			if obj, ok := item.(map[string]any); ok {
				return obj
			}
		}
	}
	return nil
}

// offerField reads a scalar field off the offers object.
func offerField(node map[string]any, key string) string {
	if offer := offerNode(node); offer != nil {
		return ldString(offer[key])
	}
	return ""
}

// offerPrice tries offers.price, then offers.priceSpecification.price, then
// a top-level price.
func offerPrice(node map[string]any) string {
	if offer := offerNode(node); offer != nil {
		if p := ldString(offer["price"]); p != "" {
			return p
		}
		if spec, ok := offer["priceSpecification"].(map[string]any); ok {
			if p := ldString(spec["price"]); p != "" {
				return p
			}
		}
	}
	return ldString(node["price"])
}

// mileage tries mileage, then mileageFromOdometer.value.
func mileage(node map[string]any) string {
	if v := ldString(node["mileage"]); v != "" {
		return v
	}
	return ldString(node["mileageFromOdometer"])
}

// sellerLocation reads offers.seller.address, joining locality and region.
func sellerLocation(node map[string]any) string {
	offer := offerNode(node)
	if offer == nil {
		return ""
	}
	seller, ok := offer["seller"].(map[string]any)
	if !ok {
		return ""
	}
	switch addr := seller["address"].(type) {
	case string:
		return strings.TrimSpace(addr)
	case map[string]any:
		var parts []string
		for _, key := range []string{"addressLocality", "addressRegion"} {
			if v := ldString(addr[key]); v != "" {
				parts = append(parts, v)
			}
		}
		return strings.Join(parts, ", ")
	}
	return ""
}

// imageURLs accepts a string, an array, or ImageObject nodes.
func imageURLs(v any) []string {
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return []string{s}
		}
	case []any:
		var out []string
		for _, item := range t {
			out = append(out, imageURLs(item)...)
		}
		return out
	case map[string]any:
		if u := ldString(t["url"]); u != "" {
			return []string{u}
		}
		if u := ldString(t["contentUrl"]); u != "" {
			return []string{u}
		}
	}
	return nil
}

// resolvePhotos makes every photo URL absolute against the detail page.
func resolvePhotos(photos []string, pageURL string) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return photos
	}
	out := make([]string, 0, len(photos))
	for _, p := range photos {
		if u, err := base.Parse(p); err == nil {
			out = append(out, u.String())
		}
	}
	return out
}
