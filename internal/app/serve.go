package app

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/pulseboard/internal/resilience/circuitbreaker"
	"github.com/alanyoungcy/pulseboard/internal/server"
	"github.com/alanyoungcy/pulseboard/internal/server/handler"
	"github.com/alanyoungcy/pulseboard/internal/server/ws"
	"github.com/alanyoungcy/pulseboard/internal/service"
)

// Serve runs the HTTP server, push hub and crypto push scheduler on deps
// until ctx is cancelled.
func (a *App) Serve(ctx context.Context, deps *Dependencies) error {
	g, ctx := errgroup.WithContext(ctx)

	weather := service.NewWeatherProvider(deps.Weather, deps.Location, a.logger)
	crypto := service.NewCryptoProvider(deps.Crypto, a.logger)
	news := service.NewNewsProvider(deps.News, a.logger)
	if a.cfg.Providers.BreakerEnabled {
		weather.WithBreaker(a.breaker(weather.Name()))
		crypto.WithBreaker(a.breaker(crypto.Name()))
		news.WithBreaker(a.breaker(news.Name()))
	}
	agg := service.NewAggregator(weather, crypto, news, a.logger)

	hub := ws.NewHub(a.logger, a.cfg.Server.CORSOrigins...)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	// With a bus, ticks go through Redis so every replica's hub receives
	// them; without one the scheduler feeds the local hub directly.
	var pub service.Publisher = hub
	if deps.SignalBus != nil {
		pub = service.NewBusPublisher(deps.SignalBus, service.PushChannel)
		relay := service.NewBusRelay(deps.SignalBus, service.PushChannel, hub, a.logger)
		g.Go(func() error {
			return relay.Run(ctx)
		})
	}

	pusher := service.NewCryptoPusher(crypto, pub, a.cfg.PushInterval(), a.logger)
	if deps.LockManager != nil {
		pusher.WithLock(deps.LockManager)
	}
	g.Go(func() error {
		return pusher.Run(ctx)
	})

	for _, run := range deps.background {
		g.Go(func() error {
			return run(ctx)
		})
	}

	srvCfg := server.Config{
		Host:        a.cfg.Server.Host,
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
	}
	if a.cfg.RateLimit.Enabled {
		srvCfg.RateLimiter = deps.RateLimiter
		srvCfg.RateLimit = a.cfg.RateLimit.Requests
		srvCfg.RateLimitWindow = a.cfg.RateLimitWindow()
	}
	srv := server.NewServer(srvCfg, server.Handlers{
		Health:    handler.NewHealthHandler(hub, a.logger),
		Dashboard: handler.NewDashboardHandler(agg, a.logger),
	}, hub, a.logger)

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout())
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			a.logger.Error("graceful shutdown failed", slog.String("error", err.Error()))
			return err
		}
		return nil
	})

	return g.Wait()
}

// breaker builds the circuit breaker guarding one upstream provider.
func (a *App) breaker(name string) *circuitbreaker.CircuitBreaker {
	cfg := circuitbreaker.UpstreamConfig(name)
	cfg.FailureRatio = a.cfg.Providers.BreakerFailureRatio
	cfg.MinRequests = uint32(a.cfg.Providers.BreakerMinRequests)
	cfg.Timeout = a.cfg.BreakerCooldown()
	return circuitbreaker.New(cfg, a.logger)
}
