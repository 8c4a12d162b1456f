package crawler

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"
)

// listingPathRe matches URL paths that conventionally point at vehicle
// detail pages. Sites that don't use any of these keywords fall back to the
// full same-origin candidate set.
var listingPathRe = regexp.MustCompile(`(?i)(inventory|vehicle|used|new|car|listing|stock|detail|pre-owned)`)

// DiscoverListingURLs finds candidate detail-page URLs from a sitemap and/or
// an inventory page. Only same-origin URLs are kept; the keyword-filtered
// subset is preferred when non-empty. The result is capped at MaxListings.
func (c *Crawler) DiscoverListingURLs(ctx context.Context, inventoryURL, sitemapURL string) ([]string, error) {
	if inventoryURL == "" && sitemapURL == "" {
		return nil, eris.New("crawler: no inventory or sitemap URL given")
	}

	var candidates []string
	seen := make(map[string]bool)
	add := func(u string) {
		if u != "" && !seen[u] {
			seen[u] = true
			candidates = append(candidates, u)
		}
	}

	if sitemapURL != "" {
		locs, err := c.sitemapURLs(ctx, sitemapURL)
		if err != nil {
			return nil, err
		}
		for _, u := range locs {
			add(u)
		}
	}

	if inventoryURL != "" {
		links, err := c.inventoryPageURLs(ctx, inventoryURL)
		if err != nil {
			// Sitemap results alone can still carry the sync.
			if len(candidates) == 0 {
				return nil, err
			}
			zap.L().Warn("inventory page discovery failed, using sitemap only",
				zap.String("url", inventoryURL), zap.Error(err))
		}
		for _, u := range links {
			add(u)
		}
	}

	var filtered []string
	for _, u := range candidates {
		if parsed, err := url.Parse(u); err == nil && listingPathRe.MatchString(parsed.Path) {
			filtered = append(filtered, u)
		}
	}
	if len(filtered) > 0 {
		candidates = filtered
	}

	if len(candidates) > c.opts.MaxListings {
		candidates = candidates[:c.opts.MaxListings]
	}
	return candidates, nil
}

// sitemapURLs fetches a sitemap and returns every same-origin <loc> value.
func (c *Crawler) sitemapURLs(ctx context.Context, sitemapURL string) ([]string, error) {
	base, err := url.Parse(sitemapURL)
	if err != nil {
		return nil, eris.Wrapf(err, "crawler: parse sitemap url %s", sitemapURL)
	}

	body, _, err := c.fetcher.Fetch(ctx, sitemapURL)
	if err != nil {
		return nil, eris.Wrapf(err, "crawler: fetch sitemap %s", sitemapURL)
	}

	locs, err := parseSitemapLocs(body)
	if err != nil {
		return nil, eris.Wrapf(err, "crawler: parse sitemap %s", sitemapURL)
	}

	var out []string
	for _, loc := range locs {
		if u, err := url.Parse(loc); err == nil && sameOrigin(u, base) {
			out = append(out, u.String())
		}
	}
	return out, nil
}

// parseSitemapLocs streams the XML and collects every <loc> element,
// covering both <urlset> and <sitemapindex> documents.
func parseSitemapLocs(body []byte) ([]string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(body))
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "crawler: unsupported charset %q", charset)
		}
		return enc.NewDecoder().Reader(input), nil
	}

	var locs []string
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "crawler: read xml token")
		}

		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "loc" {
			continue
		}

		var loc string
		if err := decoder.DecodeElement(&loc, &se); err != nil {
			return nil, eris.Wrap(err, "crawler: decode loc element")
		}
		if loc = strings.TrimSpace(loc); loc != "" {
			locs = append(locs, loc)
		}
	}
	return locs, nil
}

// inventoryPageURLs fetches an inventory page and collects candidate detail
// URLs from JSON-LD ItemList nodes and plain anchors, resolved against the
// page base and restricted to the page's origin.
func (c *Crawler) inventoryPageURLs(ctx context.Context, inventoryURL string) ([]string, error) {
	base, err := url.Parse(inventoryURL)
	if err != nil {
		return nil, eris.Wrapf(err, "crawler: parse inventory url %s", inventoryURL)
	}

	body, _, err := c.fetcher.Fetch(ctx, inventoryURL)
	if err != nil {
		return nil, eris.Wrapf(err, "crawler: fetch inventory page %s", inventoryURL)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrapf(err, "crawler: parse inventory page %s", inventoryURL)
	}

	var out []string
	seen := make(map[string]bool)
	keep := func(raw string) {
		u, err := base.Parse(strings.TrimSpace(raw))
		if err != nil {
			return
		}
		u.Fragment = ""
		if (u.Scheme != "http" && u.Scheme != "https") || !sameOrigin(u, base) {
			return
		}
		s := u.String()
		if s == inventoryURL || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}

	for _, item := range itemListURLs(doc) {
		keep(item)
	}
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		if href, ok := sel.Attr("href"); ok {
			keep(href)
		}
	})
	return out, nil
}

// itemListURLs pulls item URLs out of any JSON-LD ItemList nodes on the page.
func itemListURLs(doc *goquery.Document) []string {
	var urls []string
	for _, node := range parseJSONLD(doc) {
		if !typeContains(node, "itemlist") {
			continue
		}
		elems, ok := node["itemListElement"].([]any)
		if !ok {
			continue
		}
		for _, elem := range elems {
			obj, ok := elem.(map[string]any)
			if !ok {
				continue
			}
			// ListItem wraps its target in "url" or a nested "item".
			if u, ok := obj["url"].(string); ok {
				urls = append(urls, u)
				continue
			}
			switch item := obj["item"].(type) {
			case string:
				urls = append(urls, item)
			case map[string]any:
				if u, ok := item["@id"].(string); ok {
					urls = append(urls, u)
				} else if u, ok := item["url"].(string); ok {
					urls = append(urls, u)
				}
			}
		}
	}
	return urls
}

// parseJSONLD decodes every <script type="application/ld+json"> block,
// flattening @graph arrays so nested structured data is visible at the top
// level. A block with invalid JSON is skipped, not fatal.
func parseJSONLD(doc *goquery.Document) []map[string]any {
	var nodes []map[string]any

	var collect func(v any)
	collect = func(v any) {
		switch t := v.(type) {
		case map[string]any:
			nodes = append(nodes, t)
			if graph, ok := t["@graph"].([]any); ok {
				for _, g := range graph {
					collect(g)
				}
			}
		case []any:
			for _, item := range t {
				collect(item)
			}
		}
	}

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		var v any
		if err := json.Unmarshal([]byte(sel.Text()), &v); err != nil {
			zap.L().Debug("skipping invalid json-ld block", zap.Error(err))
			return
		}
		collect(v)
	})
	return nodes
}

// sameOrigin reports whether two URLs share scheme and host.
func sameOrigin(a, b *url.URL) bool {
	return a.Scheme == b.Scheme && strings.EqualFold(a.Host, b.Host)
}
