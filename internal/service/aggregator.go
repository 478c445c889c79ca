// Package service contains the dashboard use cases: provider adapters, the
// snapshot aggregator and the crypto push scheduler.
package service

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/pulseboard/internal/domain"
)

// Aggregator composes a Snapshot from the three provider adapters.
type Aggregator struct {
	weather Adapter[domain.Weather]
	crypto  Adapter[domain.Crypto]
	news    Adapter[[]domain.NewsItem]
	logger  *slog.Logger
}

// NewAggregator creates an Aggregator over the given adapters.
func NewAggregator(
	weather Adapter[domain.Weather],
	crypto Adapter[domain.Crypto],
	news Adapter[[]domain.NewsItem],
	logger *slog.Logger,
) *Aggregator {
	return &Aggregator{
		weather: weather,
		crypto:  crypto,
		news:    news,
		logger:  logger.With(slog.String("component", "aggregator")),
	}
}

// Snapshot runs all adapters concurrently and waits for every one of them.
// It never fails; in the worst case all three fields carry error markers.
func (a *Aggregator) Snapshot(ctx context.Context) domain.Snapshot {
	start := time.Now()
	var (
		snap domain.Snapshot
		g    errgroup.Group
	)

	// Each goroutine writes a distinct field; Wait orders the writes before
	// the read below.
	g.Go(func() error {
		snap.Weather = a.weather.Fetch(ctx)
		return nil
	})
	g.Go(func() error {
		snap.Crypto = a.crypto.Fetch(ctx)
		return nil
	})
	g.Go(func() error {
		snap.News = a.news.Fetch(ctx)
		return nil
	})
	_ = g.Wait()

	a.logger.DebugContext(ctx, "snapshot aggregated",
		slog.Bool("weather_ok", !snap.Weather.Failed()),
		slog.Bool("crypto_ok", !snap.Crypto.Failed()),
		slog.Bool("news_ok", !snap.News.Failed()),
		slog.Duration("elapsed", time.Since(start)),
	)
	return snap
}
