// Package openmeteo is the REST client for the keyless Open-Meteo forecast API.
package openmeteo

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

// DefaultBaseURL is the public Open-Meteo API root.
const DefaultBaseURL = "https://api.open-meteo.com"

// currentFields is the fixed set of current-condition variables requested.
const currentFields = "temperature_2m,relative_humidity_2m,weathercode"

// weatherCodes maps WMO weather codes to display descriptions. Codes absent
// from the table are reported as "Unknown".
var weatherCodes = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	61: "Rain",
	80: "Showers",
}

// Describe returns the description for a WMO weather code.
func Describe(code int) string {
	if d, ok := weatherCodes[code]; ok {
		return d
	}
	return "Unknown"
}

// Client fetches current conditions.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client. A zero timeout leaves the transport default.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// forecastResponse is the subset of /v1/forecast that we read.
type forecastResponse struct {
	Current *struct {
		Temperature *float64 `json:"temperature_2m"`
		Humidity    *float64 `json:"relative_humidity_2m"`
		WeatherCode *int     `json:"weathercode"`
	} `json:"current"`
}

// CurrentWeather returns the current conditions at loc.
func (c *Client) CurrentWeather(ctx context.Context, loc domain.Location) (domain.Weather, error) {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
	params.Set("current", currentFields)

	body, err := c.doGet(ctx, "/v1/forecast?"+params.Encode())
	if err != nil {
		return domain.Weather{}, fmt.Errorf("openmeteo: get forecast: %w", err)
	}

	var resp forecastResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Weather{}, fmt.Errorf("openmeteo: decode forecast: %w: %v", domain.ErrMalformedResponse, err)
	}
	cur := resp.Current
	if cur == nil || cur.Temperature == nil || cur.Humidity == nil || cur.WeatherCode == nil {
		return domain.Weather{}, fmt.Errorf("openmeteo: decode forecast: %w: missing current fields", domain.ErrMalformedResponse)
	}

	return domain.Weather{
		City:        loc.City,
		Temp:        *cur.Temperature,
		Humidity:    *cur.Humidity,
		Description: Describe(*cur.WeatherCode),
	}, nil
}

func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
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

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: HTTP %d: %s", domain.ErrUpstreamStatus, resp.StatusCode, truncate(body))
	}
	return body, nil
}

func truncate(body []byte) string {
	const max = 256
	if len(body) > max {
		return string(body[:max])
	}
	return string(body)
}

var _ domain.WeatherSource = (*Client)(nil)
