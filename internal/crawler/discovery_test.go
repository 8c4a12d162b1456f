package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drivelane/dealersync/internal/fetcher"
)

func newTestCrawler(opts Options) *Crawler {
	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{MaxRetries: 1, HostRate: 1000})
	if opts.Delay == 0 {
		opts.Delay = time.Millisecond
	}
	return New(f, opts)
}

func TestParseSitemapLocs(t *testing.T) {
	t.Parallel()

	body := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://dealer.example/inventory/car-1</loc><lastmod>2024-01-15</lastmod></url>
  <url><loc> https://dealer.example/about </loc></url>
</urlset>`)

	locs, err := parseSitemapLocs(body)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://dealer.example/inventory/car-1",
		"https://dealer.example/about",
	}, locs)
}

func TestParseSitemapLocs_SitemapIndex(t *testing.T) {
	t.Parallel()

	body := []byte(`<sitemapindex>
  <sitemap><loc>https://dealer.example/sitemap-inventory.xml</loc></sitemap>
  <sitemap><loc>https://dealer.example/sitemap-pages.xml</loc></sitemap>
</sitemapindex>`)

	locs, err := parseSitemapLocs(body)
	require.NoError(t, err)
	assert.Len(t, locs, 2)
}

func TestParseSitemapLocs_Invalid(t *testing.T) {
	t.Parallel()

	_, err := parseSitemapLocs([]byte(`<urlset><url><loc>broken`))
	require.Error(t, err)
}

func TestDiscoverListingURLs_SitemapFiltering(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sitemap.xml" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, `<urlset>
  <url><loc>%s/inventory/honda-city-2021</loc></url>
  <url><loc>%s/blog/monsoon-maintenance</loc></url>
  <url><loc>https://otherdomain.example/vehicle/1</loc></url>
</urlset>`, srv.URL, srv.URL)
	}))
	defer srv.Close()

	urls, err := newTestCrawler(Options{}).DiscoverListingURLs(context.Background(), "", srv.URL+"/sitemap.xml")
	require.NoError(t, err)

	// Off-site loc is dropped; the keyword-matching path is preferred over
	// the blog page.
	assert.Equal(t, []string{srv.URL + "/inventory/honda-city-2021"}, urls)
}

func TestDiscoverListingURLs_SameOriginOnly(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body>
  <a href="/car/swift-dzire">Swift Dzire</a>
  <a href="%s/car/i20-sportz">i20</a>
  <a href="https://otherdomain.example/car/1">Partner stock</a>
  <a href="mailto:sales@dealer.example">Mail us</a>
</body></html>`, srv.URL)
	}))
	defer srv.Close()

	urls, err := newTestCrawler(Options{}).DiscoverListingURLs(context.Background(), srv.URL+"/inventory", "")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		srv.URL + "/car/swift-dzire",
		srv.URL + "/car/i20-sportz",
	}, urls)
	assert.NotContains(t, urls, "https://otherdomain.example/car/1")
}

func TestDiscoverListingURLs_KeywordFallback(t *testing.T) {
	// No link matches the conventional path keywords; the full same-origin
	// set is used instead of returning nothing.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>
  <a href="/fleet/alpha-9">Alpha 9</a>
  <a href="/fleet/beta-3">Beta 3</a>
</body></html>`))
	}))
	defer srv.Close()

	urls, err := newTestCrawler(Options{}).DiscoverListingURLs(context.Background(), srv.URL+"/fleet", "")
	require.NoError(t, err)
	assert.Len(t, urls, 2)
}

func TestDiscoverListingURLs_ItemList(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><head>
<script type="application/ld+json">
{"@context":"https://schema.org","@type":"ItemList","itemListElement":[
  {"@type":"ListItem","position":1,"url":"%s/vehicle/creta-sx"},
  {"@type":"ListItem","position":2,"item":{"@id":"%s/vehicle/venue-s"}}
]}
</script>
</head><body>no anchors here</body></html>`, srv.URL, srv.URL)
	}))
	defer srv.Close()

	urls, err := newTestCrawler(Options{}).DiscoverListingURLs(context.Background(), srv.URL+"/stock", "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		srv.URL + "/vehicle/creta-sx",
		srv.URL + "/vehicle/venue-s",
	}, urls)
}

func TestDiscoverListingURLs_Cap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for i := 0; i < 10; i++ {
			fmt.Fprintf(w, `<a href="/car/%d">car %d</a>`, i, i)
		}
	}))
	defer srv.Close()

	urls, err := newTestCrawler(Options{MaxListings: 3}).DiscoverListingURLs(context.Background(), srv.URL+"/inventory", "")
	require.NoError(t, err)
	assert.Len(t, urls, 3)
}

func TestDiscoverListingURLs_NoSource(t *testing.T) {
	t.Parallel()

	_, err := newTestCrawler(Options{}).DiscoverListingURLs(context.Background(), "", "")
	require.Error(t, err)
}
