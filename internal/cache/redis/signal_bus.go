package redis

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/pulseboard/internal/domain"
	"github.com/alanyoungcy/pulseboard/internal/observability/metrics"
)

// defaultBusBuffer is how many undelivered push events a subscriber may
// hold. Push events are superseded by the next tick, so older ones are not
// worth queueing behind.
const defaultBusBuffer = 16

// SignalBus carries encoded push events between replicas over Redis Pub/Sub.
// Delivery is at-most-once: replicas that are not subscribed miss events, and
// a subscriber that falls behind has new events dropped rather than stalling
// the Redis connection.
type SignalBus struct {
	rdb    *redis.Client
	buffer int
}

// NewSignalBus creates a SignalBus backed by c.
func NewSignalBus(c *Client) *SignalBus {
	return &SignalBus{rdb: c.Underlying(), buffer: defaultBusBuffer}
}

// Publish sends payload to channel and returns once Redis has accepted it.
// It does not wait for any subscriber.
func (sb *SignalBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := sb.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe returns the events published to channel from now on. Glob
// patterns use PSUBSCRIBE. The returned channel closes when ctx is cancelled
// or Redis drops the subscription.
func (sb *SignalBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	var pubsub *redis.PubSub
	if strings.ContainsAny(channel, "*?[") {
		pubsub = sb.rdb.PSubscribe(ctx, channel)
	} else {
		pubsub = sb.rdb.Subscribe(ctx, channel)
	}

	// Wait for the confirmation so nothing published after Subscribe
	// returns is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", channel, err)
	}

	out := make(chan []byte, sb.buffer)
	dropped := metrics.PushRelayDroppedTotal.WithLabelValues(channel)
	go func() {
		defer close(out)
		defer pubsub.Close()

		in := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				default:
					dropped.Inc()
				}
			}
		}
	}()

	return out, nil
}

var _ domain.SignalBus = (*SignalBus)(nil)
