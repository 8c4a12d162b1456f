package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.HostRate == 0 {
		opts.HostRate = 1000
	}
	return NewHTTPFetcher(opts)
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "DealersyncBot")
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte("stock_id,make\n"))
	}))
	defer srv.Close()

	body, contentType, err := newTestFetcher(HTTPOptions{}).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "stock_id,make\n", string(body))
	assert.Equal(t, "text/csv", contentType)
}

func TestFetch_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	body, _, err := newTestFetcher(HTTPOptions{MaxRetries: 3}).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetch_ExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, _, err := newTestFetcher(HTTPOptions{MaxRetries: 2}).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retries exhausted")
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetch_NotFoundDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, _, err := newTestFetcher(HTTPOptions{MaxRetries: 3}).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_BodyCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 4096))
	}))
	defer srv.Close()

	body, _, err := newTestFetcher(HTTPOptions{MaxBodyBytes: 1024}).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, body, 1024)
}

func TestFetchOnce_SingleAttempt(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestFetcher(HTTPOptions{MaxRetries: 3}).FetchOnce(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := newTestFetcher(HTTPOptions{}).Fetch(ctx, srv.URL)
	require.Error(t, err)
}
