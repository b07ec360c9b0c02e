package redis

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/spotarb/internal/domain"
)

// Bus implements domain.SignalBus using Redis Pub/Sub. One engine publish
// fans out to every connected subscriber, in or out of process.
type Bus struct {
	client *Client
	rdb    *redis.Client
}

// NewBus creates a Bus backed by the given Client. Closing the bus closes
// the client.
func NewBus(c *Client) *Bus {
	return &Bus{client: c, rdb: c.rdb}
}

// Publish sends a raw byte payload to a Redis Pub/Sub channel.
func (b *Bus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := b.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe creates a Redis Pub/Sub subscription and returns a read-only
// channel of raw payloads. The subscription closes with ctx; the returned
// channel is closed at that point as well.
func (b *Bus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	var pubsub *redis.PubSub
	if hasPattern(channel) {
		pubsub = b.rdb.PSubscribe(ctx, channel)
	} else {
		pubsub = b.rdb.Subscribe(ctx, channel)
	}

	// Verify the subscription is established by receiving the confirmation.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", channel, err)
	}

	out := make(chan []byte, 128)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Close closes the underlying Redis connection, ending all subscriptions.
func (b *Bus) Close() error {
	return b.client.Close()
}

// hasPattern reports whether the channel uses glob-style wildcards, which
// require PSubscribe instead of Subscribe.
func hasPattern(channel string) bool {
	return strings.ContainsAny(channel, "*?[")
}

// Compile-time interface check.
var _ domain.SignalBus = (*Bus)(nil)
