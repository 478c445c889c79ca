// Package coinmarketcap is the REST client for the CoinMarketCap Pro API.
package coinmarketcap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/alanyoungcy/pulseboard/internal/domain"
)

const (
	// DefaultBaseURL is the CoinMarketCap Pro API root.
	DefaultBaseURL = "https://pro-api.coinmarketcap.com"

	// apiKeyHeader carries the account key on every request.
	apiKeyHeader = "X-CMC_PRO_API_KEY"

	quoteCurrency = "USD"
)

// Client fetches the latest BTC and ETH quotes.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a Client authenticated with apiKey.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type quote struct {
	Price *float64 `json:"price"`
}

type asset struct {
	Quote map[string]quote `json:"quote"`
}

// quotesResponse is the subset of /v1/cryptocurrency/quotes/latest we read.
type quotesResponse struct {
	Data map[string]asset `json:"data"`
}

// LatestQuotes returns the current USD price of BTC and ETH.
func (c *Client) LatestQuotes(ctx context.Context) (domain.Crypto, error) {
	params := url.Values{}
	params.Set("symbol", "BTC,ETH")
	params.Set("convert", quoteCurrency)

	body, err := c.doGet(ctx, "/v1/cryptocurrency/quotes/latest?"+params.Encode())
	if err != nil {
		return domain.Crypto{}, fmt.Errorf("coinmarketcap: get quotes: %w", err)
	}

	var resp quotesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Crypto{}, fmt.Errorf("coinmarketcap: decode quotes: %w: %v", domain.ErrMalformedResponse, err)
	}

	btc, err := resp.price("BTC")
	if err != nil {
		return domain.Crypto{}, err
	}
	eth, err := resp.price("ETH")
	if err != nil {
		return domain.Crypto{}, err
	}
	return domain.Crypto{Bitcoin: btc, Ethereum: eth}, nil
}

func (r quotesResponse) price(symbol string) (float64, error) {
	a, ok := r.Data[symbol]
	if !ok {
		return 0, fmt.Errorf("coinmarketcap: %w: no data for %s", domain.ErrMalformedResponse, symbol)
	}
	q, ok := a.Quote[quoteCurrency]
	if !ok || q.Price == nil {
		return 0, fmt.Errorf("coinmarketcap: %w: no %s quote for %s", domain.ErrMalformedResponse, quoteCurrency, symbol)
	}
	return *q.Price, nil
}

func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: %w: %s", domain.ErrUpstreamStatus, domain.ErrRateLimited, truncate(body))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: HTTP %d: %s", domain.ErrUpstreamStatus, resp.StatusCode, truncate(body))
	}
	return body, nil
}

// truncate caps an upstream error body so large error pages stay out of logs.
func truncate(body []byte) string {
	const max = 256
	if len(body) > max {
		return string(body[:max])
	}
	return string(body)
}

var _ domain.CryptoSource = (*Client)(nil)
