package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/alanyoungcy/pulseboard/internal/domain"
	"github.com/alanyoungcy/pulseboard/internal/observability/metrics"
)

// TickLockKey is the lock that elects one replica per push interval.
const TickLockKey = "crypto_tick"

// Publisher delivers a named event to push-channel subscribers.
type Publisher interface {
	Publish(ctx context.Context, event string, payload any) error
}

// CryptoPusher polls the crypto adapter on a fixed interval and publishes
// each result as a "crypto update" event.
type CryptoPusher struct {
	crypto   Adapter[domain.Crypto]
	pub      Publisher
	locks    domain.LockManager
	interval time.Duration
	logger   *slog.Logger
}

// NewCryptoPusher creates a CryptoPusher. interval is rounded to whole
// seconds by the scheduler and must be at least one second.
func NewCryptoPusher(crypto Adapter[domain.Crypto], pub Publisher, interval time.Duration, logger *slog.Logger) *CryptoPusher {
	return &CryptoPusher{
		crypto:   crypto,
		pub:      pub,
		interval: interval,
		logger:   logger.With(slog.String("component", "crypto_pusher")),
	}
}

// WithLock makes every tick contend for a distributed lock so only one
// replica polls the upstream per interval.
func (p *CryptoPusher) WithLock(locks domain.LockManager) *CryptoPusher {
	p.locks = locks
	return p
}

// Tick performs one poll-and-publish cycle.
func (p *CryptoPusher) Tick(ctx context.Context) error {
	if p.locks != nil {
		ttl := p.interval * 9 / 10
		// The lock is left to expire so replicas firing later in the same
		// interval still see it held.
		_, err := p.locks.Acquire(ctx, TickLockKey, ttl)
		switch {
		case errors.Is(err, domain.ErrLockHeld):
			metrics.PushTicksSkippedTotal.Inc()
			p.logger.DebugContext(ctx, "tick skipped, lock held elsewhere")
			return nil
		case err != nil:
			p.logger.WarnContext(ctx, "tick lock unavailable, polling anyway",
				slog.String("error", err.Error()),
			)
		}
	}

	res := p.crypto.Fetch(ctx)
	if err := p.pub.Publish(ctx, domain.EventCryptoUpdate, res); err != nil {
		return err
	}
	metrics.PushBroadcastsTotal.WithLabelValues(domain.EventCryptoUpdate).Inc()
	return nil
}

// Run schedules Tick every interval and blocks until ctx is cancelled. The
// first tick fires one interval after Run starts.
func (p *CryptoPusher) Run(ctx context.Context) error {
	c := cron.New(cron.WithLogger(cronLogger{p.logger}))
	c.Schedule(cron.Every(p.interval), cron.FuncJob(func() {
		if err := p.Tick(ctx); err != nil {
			p.logger.ErrorContext(ctx, "crypto push failed",
				slog.String("error", err.Error()),
			)
		}
	}))

	p.logger.Info("crypto pusher started", slog.Duration("interval", p.interval))
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	p.logger.Info("crypto pusher stopped")
	return nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, slog.String("error", err.Error()))...)
}
