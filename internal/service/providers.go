package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/alanyoungcy/pulseboard/internal/domain"
	"github.com/alanyoungcy/pulseboard/internal/observability/metrics"
	"github.com/alanyoungcy/pulseboard/internal/resilience/circuitbreaker"
)

// Adapter fetches one provider's data and never returns a Go error: every
// failure is folded into the Result's error variant.
type Adapter[T any] interface {
	Fetch(ctx context.Context) domain.Result[T]
}

// Provider wraps an upstream fetch function. Failures are logged, counted,
// and converted to the provider's fixed error kind.
type Provider[T any] struct {
	name    string
	fetch   func(ctx context.Context) (T, error)
	failure error
	breaker *circuitbreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewProvider creates a Provider named name. failure is the error kind
// reported to callers whenever fetch fails.
func NewProvider[T any](name string, fetch func(ctx context.Context) (T, error), failure error, logger *slog.Logger) *Provider[T] {
	return &Provider[T]{
		name:    name,
		fetch:   fetch,
		failure: failure,
		logger:  logger.With(slog.String("component", "provider"), slog.String("provider", name)),
	}
}

// NewWeatherProvider adapts a WeatherSource queried at the fixed location loc.
func NewWeatherProvider(src domain.WeatherSource, loc domain.Location, logger *slog.Logger) *Provider[domain.Weather] {
	return NewProvider("weather", func(ctx context.Context) (domain.Weather, error) {
		return src.CurrentWeather(ctx, loc)
	}, domain.ErrWeatherFetch, logger)
}

// NewCryptoProvider adapts a CryptoSource.
func NewCryptoProvider(src domain.CryptoSource, logger *slog.Logger) *Provider[domain.Crypto] {
	return NewProvider("crypto", src.LatestQuotes, domain.ErrCryptoFetch, logger)
}

// NewNewsProvider adapts a NewsSource.
func NewNewsProvider(src domain.NewsSource, logger *slog.Logger) *Provider[[]domain.NewsItem] {
	return NewProvider("news", src.TopHeadlines, domain.ErrNewsFetch, logger)
}

// WithBreaker routes every fetch through cb. While cb is open the upstream
// is not called and the provider's error kind is returned immediately.
func (p *Provider[T]) WithBreaker(cb *circuitbreaker.CircuitBreaker) *Provider[T] {
	p.breaker = cb
	return p
}

// Name returns the provider label used in logs and metrics.
func (p *Provider[T]) Name() string { return p.name }

// Fetch performs one upstream call.
func (p *Provider[T]) Fetch(ctx context.Context) (res domain.Result[T]) {
	start := time.Now()
	defer func() {
		metrics.ProviderFetchDuration.WithLabelValues(p.name).Observe(time.Since(start).Seconds())
	}()

	v, err := p.guardedFetch(ctx)
	if errors.Is(err, circuitbreaker.ErrOpen) {
		metrics.ProviderFetchTotal.WithLabelValues(p.name, "open").Inc()
		p.logger.WarnContext(ctx, "provider circuit open, skipping upstream")
		return domain.Fail[T](p.failure)
	}
	if err != nil && ctx.Err() != nil {
		metrics.ProviderFetchTotal.WithLabelValues(p.name, "canceled").Inc()
		p.logger.DebugContext(ctx, "provider fetch abandoned by caller",
			slog.String("error", err.Error()),
		)
		return domain.Fail[T](p.failure)
	}
	if err != nil {
		metrics.ProviderFetchTotal.WithLabelValues(p.name, "error").Inc()
		p.logger.ErrorContext(ctx, "provider fetch failed",
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)),
		)
		return domain.Fail[T](p.failure)
	}

	metrics.ProviderFetchTotal.WithLabelValues(p.name, "success").Inc()
	return domain.OK(v)
}

func (p *Provider[T]) guardedFetch(ctx context.Context) (T, error) {
	if p.breaker == nil {
		return p.safeFetch(ctx)
	}
	out, err := p.breaker.Execute(func() (any, error) {
		v, err := p.safeFetch(ctx)
		if err != nil && ctx.Err() != nil {
			// the caller went away; that says nothing about the upstream
			return v, circuitbreaker.Abandoned(err)
		}
		return v, err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out.(T), nil
}

// safeFetch turns a panic in the upstream client into an error so nothing
// escapes the adapter boundary.
func (p *Provider[T]) safeFetch(ctx context.Context) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()
	return p.fetch(ctx)
}

type panicError struct{ value any }

func (e *panicError) Error() string {
	return "provider panicked: " + slog.AnyValue(e.value).String()
}
