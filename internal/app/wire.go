package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/pulseboard/internal/cache/memory"
	"github.com/alanyoungcy/pulseboard/internal/cache/redis"
	"github.com/alanyoungcy/pulseboard/internal/config"
	"github.com/alanyoungcy/pulseboard/internal/domain"
	"github.com/alanyoungcy/pulseboard/internal/platform/coinmarketcap"
	"github.com/alanyoungcy/pulseboard/internal/platform/newsapi"
	"github.com/alanyoungcy/pulseboard/internal/platform/openmeteo"
)

// Dependencies bundles the concrete implementations the backend runs on.
type Dependencies struct {
	Location domain.Location
	Weather  domain.WeatherSource
	Crypto   domain.CryptoSource
	News     domain.NewsSource

	// RateLimiter is always set: Redis-backed when Redis is enabled,
	// in-process otherwise.
	RateLimiter domain.RateLimiter

	// LockManager and SignalBus are nil without Redis.
	LockManager domain.LockManager
	SignalBus   domain.SignalBus

	// background holds maintenance loops that must run alongside the server.
	background []func(ctx context.Context) error
}

// Wire constructs all dependencies from cfg and returns them with a cleanup
// function to call on shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	timeout := cfg.ProviderTimeout()
	deps := &Dependencies{
		Location: domain.Location{
			City:      cfg.Weather.City,
			Latitude:  cfg.Weather.Latitude,
			Longitude: cfg.Weather.Longitude,
		},
		Weather: openmeteo.NewClient(cfg.Weather.BaseURL, timeout),
		Crypto:  coinmarketcap.NewClient(cfg.Crypto.BaseURL, cfg.Crypto.APIKey, timeout),
		News:    newsapi.NewClient(cfg.News.BaseURL, cfg.News.APIKey, cfg.News.Category, timeout),
	}

	if !cfg.Redis.Enabled {
		limiter := memory.NewRateLimiter()
		deps.RateLimiter = limiter
		deps.background = append(deps.background, limiter.Run)
		return deps, cleanup, nil
	}

	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })
	logger.InfoContext(ctx, "redis connected", slog.String("addr", cfg.Redis.Addr))

	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)

	return deps, cleanup, nil
}
