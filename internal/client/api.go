package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alanyoungcy/pulseboard/internal/domain"
)

// APIClient reads snapshots from a pulseboard server.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClient creates an APIClient for the server at baseURL.
func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Dashboard fetches GET /dashboard.
func (c *APIClient) Dashboard(ctx context.Context) (domain.Snapshot, error) {
	body, err := c.doGet(ctx, "/dashboard")
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("client: get dashboard: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return domain.Snapshot{}, fmt.Errorf("client: decode dashboard: %w: %v", domain.ErrMalformedResponse, err)
	}
	return snap, nil
}

func (c *APIClient) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

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
		return nil, fmt.Errorf("%w: %w: %s", domain.ErrUpstreamStatus, domain.ErrRateLimited, body)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: HTTP %d: %s", domain.ErrUpstreamStatus, resp.StatusCode, body)
	}
	return body, nil
}

var _ Fetcher = (*APIClient)(nil)
