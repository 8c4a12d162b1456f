// Package feed ingests dealer-supplied CSV or JSON inventory feeds.
package feed

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/drivelane/dealersync/internal/fetcher"
)

// Row is one raw feed record, header name → value.
type Row = map[string]any

// Ingestor fetches and parses a dealer feed URL into raw rows.
type Ingestor struct {
	fetcher fetcher.Fetcher
}

// NewIngestor creates an Ingestor using the given fetcher.
func NewIngestor(f fetcher.Fetcher) *Ingestor {
	return &Ingestor{fetcher: f}
}

// Fetch downloads the feed and parses it. The format is detected from the
// Content-Type header or a .json extension; everything else is treated as
// CSV with a header row.
func (i *Ingestor) Fetch(ctx context.Context, feedURL string) ([]Row, error) {
	body, contentType, err := i.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		return nil, eris.Wrapf(err, "feed: fetch %s", feedURL)
	}

	if isJSON(feedURL, contentType) {
		return parseJSON(body)
	}
	return parseCSV(body)
}

// isJSON detects a JSON feed by content type or file extension.
func isJSON(feedURL, contentType string) bool {
	if strings.Contains(strings.ToLower(contentType), "json") {
		return true
	}
	u, err := url.Parse(feedURL)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(u.Path), ".json")
}

// parseCSV reads a header row and turns each following line into a Row.
// A malformed line is skipped; a body with no parsable header is an error.
func parseCSV(body []byte) ([]Row, error) {
	reader := csv.NewReader(bytes.NewReader(body))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrap(err, "feed: read csv header")
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			zap.L().Debug("skipping malformed csv row", zap.Error(err))
			continue
		}

		row := make(Row, len(header))
		for i, h := range header {
			if i < len(record) {
				row[h] = strings.TrimSpace(record[i])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// parseJSON accepts a top-level array, or an object with a "listings" or
// "items" array. Any other shape yields zero rows, not an error.
func parseJSON(body []byte) ([]Row, error) {
	var top any
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, eris.Wrap(err, "feed: parse json")
	}

	var items []any
	switch t := top.(type) {
	case []any:
		items = t
	case map[string]any:
		for _, key := range []string{"listings", "items"} {
			if arr, ok := t[key].([]any); ok {
				items = arr
				break
			}
		}
	}

	rows := make([]Row, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			rows = append(rows, obj)
		}
	}
	return rows, nil
}
