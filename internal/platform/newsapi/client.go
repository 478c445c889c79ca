// Package newsapi is the REST client for the NewsAPI top-headlines endpoint.
package newsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/alanyoungcy/pulseboard/internal/domain"
)

const (
	// DefaultBaseURL is the NewsAPI root.
	DefaultBaseURL = "https://newsapi.org"

	// DefaultCategory is the headline category shown on the dashboard.
	DefaultCategory = "technology"

	// MaxItems caps the number of projected headlines.
	MaxItems = 5
)

// Client fetches top headlines for a single category.
type Client struct {
	baseURL    string
	apiKey     string
	category   string
	httpClient *http.Client
}

// NewClient creates a Client. An empty category falls back to DefaultCategory.
func NewClient(baseURL, apiKey, category string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if category == "" {
		category = DefaultCategory
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		category:   category,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type article struct {
	Source struct {
		ID   *string `json:"id"`
		Name string  `json:"name"`
	} `json:"source"`
	Author      *string `json:"author"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	URL         string  `json:"url"`
	URLToImage  *string `json:"urlToImage"`
	PublishedAt string  `json:"publishedAt"`
}

type headlinesResponse struct {
	Status   string    `json:"status"`
	Code     string    `json:"code"`
	Message  string    `json:"message"`
	Articles []article `json:"articles"`
}

// TopHeadlines returns at most MaxItems headlines in provider order.
func (c *Client) TopHeadlines(ctx context.Context) ([]domain.NewsItem, error) {
	params := url.Values{}
	params.Set("category", c.category)
	params.Set("pageSize", strconv.Itoa(MaxItems))
	params.Set("apiKey", c.apiKey)

	body, err := c.doGet(ctx, "/v2/top-headlines?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("newsapi: get top headlines: %w", err)
	}

	var resp headlinesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("newsapi: decode headlines: %w: %v", domain.ErrMalformedResponse, err)
	}
	if resp.Status != "ok" {
		return nil, fmt.Errorf("newsapi: %w: status=%q code=%q %s", domain.ErrMalformedResponse, resp.Status, resp.Code, resp.Message)
	}

	return project(resp.Articles), nil
}

// project keeps the first MaxItems articles and strips them down to the
// dashboard shape.
func project(articles []article) []domain.NewsItem {
	n := min(len(articles), MaxItems)
	items := make([]domain.NewsItem, 0, n)
	for _, a := range articles[:n] {
		items = append(items, domain.NewsItem{
			Title:  a.Title,
			Source: a.Source.Name,
			URL:    a.URL,
		})
	}
	return items
}

func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The request URL carries the key; never let it reach the logs.
		return nil, fmt.Errorf("http request: %w", redactURLError(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
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

// redactURLError strips the request URL from a *url.Error.
func redactURLError(err error) error {
	if ue, ok := err.(*url.Error); ok {
		return fmt.Errorf("%s: %w", ue.Op, ue.Err)
	}
	return err
}

var _ domain.NewsSource = (*Client)(nil)
