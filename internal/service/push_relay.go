package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/pulseboard/internal/domain"
)

// PushChannel is the Redis pub/sub channel that carries encoded push events
// between replicas.
const PushChannel = "pulseboard:push"

// BusPublisher publishes push events onto a SignalBus instead of a local hub.
type BusPublisher struct {
	bus     domain.SignalBus
	channel string
}

// NewBusPublisher creates a BusPublisher writing to channel.
func NewBusPublisher(bus domain.SignalBus, channel string) *BusPublisher {
	return &BusPublisher{bus: bus, channel: channel}
}

// Publish encodes the event envelope and publishes it on the bus.
func (b *BusPublisher) Publish(ctx context.Context, event string, payload any) error {
	msg, err := domain.NewPushEvent(event, payload)
	if err != nil {
		return fmt.Errorf("service: encode push event: %w", err)
	}
	if err := b.bus.Publish(ctx, b.channel, msg); err != nil {
		return fmt.Errorf("service: publish push event: %w", err)
	}
	return nil
}

// Forwarder accepts already-encoded push events.
type Forwarder interface {
	Forward(msg []byte)
}

// BusRelay forwards every message from a SignalBus channel to a local hub.
type BusRelay struct {
	bus     domain.SignalBus
	channel string
	dst     Forwarder
	logger  *slog.Logger
}

// NewBusRelay creates a BusRelay from channel to dst.
func NewBusRelay(bus domain.SignalBus, channel string, dst Forwarder, logger *slog.Logger) *BusRelay {
	return &BusRelay{
		bus:     bus,
		channel: channel,
		dst:     dst,
		logger:  logger.With(slog.String("component", "push_relay")),
	}
}

// Run subscribes and forwards until ctx is cancelled or the subscription
// closes.
func (r *BusRelay) Run(ctx context.Context) error {
	msgs, err := r.bus.Subscribe(ctx, r.channel)
	if err != nil {
		return fmt.Errorf("service: relay subscribe: %w", err)
	}
	r.logger.Info("relay subscribed", slog.String("channel", r.channel))

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("service: relay subscription %s closed", r.channel)
			}
			r.dst.Forward(msg)
		}
	}
}
