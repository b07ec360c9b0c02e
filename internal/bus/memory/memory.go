// Package memory provides a process-local SignalBus. It is the default bus
// for single-binary runs; the redis bus replaces it when external monitors
// need the same event feed. Channel names match exactly, no patterns.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/alanyoungcy/spotarb/internal/domain"
)

// subscriberBuffer is the per-subscriber backlog. A subscriber that falls
// further behind loses messages rather than stalling the publisher.
const subscriberBuffer = 128

// ErrClosed is returned by Publish and Subscribe after Close.
var ErrClosed = errors.New("bus: closed")

// Bus is an in-process publish/subscribe fan-out keyed by channel name.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]chan []byte
	closed bool
}

// New returns an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[string]map[int]chan []byte)}
}

// Publish delivers the payload to every current subscriber of the channel.
// Delivery is best effort: a subscriber with a full backlog is skipped.
func (b *Bus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	for _, ch := range b.subs[channel] {
		select {
		case ch <- payload:
		default: // slow subscriber, drop rather than stall the engine
		}
	}
	return nil
}

// Subscribe registers a subscriber and returns its receive channel. The
// channel is closed when ctx is cancelled or the bus shuts down.
func (b *Bus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	id := b.nextID
	b.nextID++
	ch := make(chan []byte, subscriberBuffer)
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[int]chan []byte)
	}
	b.subs[channel][id] = ch
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.remove(channel, id)
	}()

	return ch, nil
}

// remove detaches one subscriber and closes its channel. Safe to call twice:
// Close may have already detached it.
func (b *Bus) remove(channel string, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	chans := b.subs[channel]
	ch, ok := chans[id]
	if !ok {
		return
	}
	delete(chans, id)
	if len(chans) == 0 {
		delete(b.subs, channel)
	}
	close(ch)
}

// Close shuts the bus down and closes every subscriber channel. Further
// publishes and subscribes return ErrClosed.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for channel, chans := range b.subs {
		for id, ch := range chans {
			delete(chans, id)
			close(ch)
		}
		delete(b.subs, channel)
	}
	return nil
}

// Compile-time interface check.
var _ domain.SignalBus = (*Bus)(nil)
