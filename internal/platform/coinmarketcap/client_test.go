package coinmarketcap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/pulseboard/internal/domain"
)

const quotesBody = `{
  "status": {"error_code": 0},
  "data": {
    "BTC": {"id": 1, "symbol": "BTC", "quote": {"USD": {"price": 67123.45, "volume_24h": 1}}},
    "ETH": {"id": 1027, "symbol": "ETH", "quote": {"USD": {"price": 2456.78}}}
  }
}`

func TestLatestQuotes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/cryptocurrency/quotes/latest", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-CMC_PRO_API_KEY"))
		assert.Equal(t, "BTC,ETH", r.URL.Query().Get("symbol"))
		assert.Equal(t, "USD", r.URL.Query().Get("convert"))
		w.Write([]byte(quotesBody))
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL, "secret", 0).LatestQuotes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.Crypto{Bitcoin: 67123.45, Ethereum: 2456.78}, got)
}

func TestLatestQuotesMissingAsset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"BTC":{"quote":{"USD":{"price":1}}}}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "k", 0).LatestQuotes(context.Background())
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
}

func TestLatestQuotesUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"status":{"error_code":1001,"error_message":"This API Key is invalid."}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "bad", 0).LatestQuotes(context.Background())
	assert.ErrorIs(t, err, domain.ErrUpstreamStatus)
}

func TestLatestQuotesRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "k", 0).LatestQuotes(context.Background())
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.ErrorIs(t, err, domain.ErrUpstreamStatus)
}

func TestLatestQuotesTruncatesErrorBody(t *testing.T) {
	page := strings.Repeat("Z", 10_000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(page))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "k", 0).LatestQuotes(context.Background())
	require.ErrorIs(t, err, domain.ErrUpstreamStatus)
	assert.Equal(t, 256, strings.Count(err.Error(), "Z"))
}
