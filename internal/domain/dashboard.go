// Package domain holds the dashboard data model and the interfaces that the
// service layer depends on.
package domain

import (
	"context"
	"encoding/json"
)

// EventCryptoUpdate is the push event carrying a CryptoResult.
const EventCryptoUpdate = "crypto update"

// Location is the fixed point the weather provider is queried for.
type Location struct {
	City      string
	Latitude  float64
	Longitude float64
}

// Weather is the normalized current-conditions reading.
type Weather struct {
	City        string  `json:"city"`
	Temp        float64 `json:"temp"`
	Humidity    float64 `json:"humidity"`
	Description string  `json:"description"`
}

// Crypto holds USD prices for the two tracked assets.
type Crypto struct {
	Bitcoin  float64 `json:"bitcoin"`
	Ethereum float64 `json:"ethereum"`
}

// NewsItem is a projected headline. Only these three fields ever leave the
// news provider.
type NewsItem struct {
	Title  string `json:"title"`
	Source string `json:"source"`
	URL    string `json:"url"`
}

type (
	WeatherResult = Result[Weather]
	CryptoResult  = Result[Crypto]
	NewsResult    = Result[[]NewsItem]
)

// Snapshot is one point-in-time aggregation of all three providers.
type Snapshot struct {
	Weather WeatherResult `json:"weather"`
	Crypto  CryptoResult  `json:"crypto"`
	News    NewsResult    `json:"news"`
}

// PushEvent is the envelope written to push-channel clients.
type PushEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// NewPushEvent encodes payload into an envelope for event.
func NewPushEvent(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(PushEvent{Event: event, Data: data})
}

// WeatherSource fetches current conditions from an upstream.
type WeatherSource interface {
	CurrentWeather(ctx context.Context, loc Location) (Weather, error)
}

// CryptoSource fetches the latest BTC and ETH quotes from an upstream.
type CryptoSource interface {
	LatestQuotes(ctx context.Context) (Crypto, error)
}

// NewsSource fetches top headlines from an upstream.
type NewsSource interface {
	TopHeadlines(ctx context.Context) ([]NewsItem, error)
}
