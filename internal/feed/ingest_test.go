package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drivelane/dealersync/internal/fetcher"
)

func newTestIngestor() *Ingestor {
	return NewIngestor(fetcher.NewHTTPFetcher(fetcher.HTTPOptions{MaxRetries: 1}))
}

func TestIngestor_CSV(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte("stock_id,make,model,price\nA1,Honda,City,950000\nA2,,Civic,800000\n"))
	}))
	defer srv.Close()

	rows, err := newTestIngestor().Fetch(context.Background(), srv.URL+"/feed.csv")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "A1", rows[0]["stock_id"])
	assert.Equal(t, "City", rows[0]["model"])
	assert.Equal(t, "", rows[1]["make"])
}

func TestIngestor_CSV_TrimsAndSkipsShortRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("stock_id , make\n A1 , Honda \nB2\n"))
	}))
	defer srv.Close()

	rows, err := newTestIngestor().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "A1", rows[0]["stock_id"])
	assert.Equal(t, "Honda", rows[0]["make"])
	// Short row keeps the fields it has.
	assert.Equal(t, "B2", rows[1]["stock_id"])
	_, ok := rows[1]["make"]
	assert.False(t, ok)
}

func TestIngestor_JSONArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"J1","make":"Tata","model":"Punch"}]`))
	}))
	defer srv.Close()

	rows, err := newTestIngestor().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Tata", rows[0]["make"])
}

func TestIngestor_JSONWrapped(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"listings property", `{"listings":[{"id":"1"},{"id":"2"}]}`, 2},
		{"items property", `{"items":[{"id":"1"}]}`, 1},
		{"no match yields zero rows", `{"vehicles":[{"id":"1"}]}`, 0},
		{"scalar", `42`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			rows, err := newTestIngestor().Fetch(context.Background(), srv.URL)
			require.NoError(t, err)
			assert.Len(t, rows, tt.want)
		})
	}
}

func TestIngestor_JSONByExtension(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Content type says nothing useful; the .json path should decide.
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte(`[{"id":"E1","make":"Honda","model":"Jazz"}]`))
	}))
	defer srv.Close()

	rows, err := newTestIngestor().Fetch(context.Background(), srv.URL+"/inventory.json")
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestIngestor_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"listings":[`))
	}))
	defer srv.Close()

	_, err := newTestIngestor().Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse json")
}

func TestIngestor_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestIngestor().Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
