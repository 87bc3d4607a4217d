// Package redisbus implements transport.Bus over a Redis pub/sub channel.
//
// Every Bus subscribed to the same channel acts as one frame of a shared
// window: a post reaches the listeners of all buses whose origin matches
// the target, the posting bus included.
package redisbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/fxsml/devbridge/transport"
	"github.com/redis/go-redis/v9"
)

// Config configures a Bus.
type Config struct {
	// Channel is the Redis pub/sub channel (default: "devbridge:window").
	Channel string
	// Origin is the origin of this frame. Required.
	Origin string
	// Logger is used for logging (default: slog.Default()).
	Logger transport.Logger
}

func (c Config) defaults() Config {
	if c.Channel == "" {
		c.Channel = "devbridge:window"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

type frame struct {
	Origin string `json:"origin"`
	Target string `json:"target"`
	Data   []byte `json:"data"`
}

// Bus is a window bus backed by Redis.
type Bus struct {
	client redis.UniversalClient
	config Config
	pubsub *redis.PubSub

	listeners transport.Listeners[transport.Event]

	closed atomic.Bool
	done   chan struct{}
}

var _ transport.Bus = (*Bus)(nil)

// New subscribes to the configured channel and returns the Bus once the
// subscription is confirmed.
func New(ctx context.Context, client redis.UniversalClient, config Config) (*Bus, error) {
	config = config.defaults()
	if config.Origin == "" {
		return nil, fmt.Errorf("redisbus: origin is required")
	}

	pubsub := client.Subscribe(ctx, config.Channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("redisbus: subscribe %s: %w", config.Channel, err)
	}

	b := &Bus{
		client: client,
		config: config,
		pubsub: pubsub,
		done:   make(chan struct{}),
	}
	go b.receive()
	return b, nil
}

// Origin returns the origin of this frame.
func (b *Bus) Origin() string {
	return b.config.Origin
}

// Post publishes data for listeners matching targetOrigin.
func (b *Bus) Post(ctx context.Context, data []byte, targetOrigin string) error {
	if b.closed.Load() {
		return transport.ErrClosed
	}
	payload, err := json.Marshal(frame{
		Origin: b.config.Origin,
		Target: targetOrigin,
		Data:   data,
	})
	if err != nil {
		return fmt.Errorf("redisbus: encode frame: %w", err)
	}
	if err := b.client.Publish(ctx, b.config.Channel, payload).Err(); err != nil {
		return fmt.Errorf("redisbus: publish: %w", err)
	}
	return nil
}

// Listen registers fn for events on the channel. Listeners run on the
// receive goroutine in arrival order.
func (b *Bus) Listen(fn func(transport.Event)) (remove func()) {
	return b.listeners.Add(fn)
}

// Close unsubscribes and waits for the receive goroutine to exit.
func (b *Bus) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	err := b.pubsub.Close()
	<-b.done
	return err
}

func (b *Bus) receive() {
	defer close(b.done)
	for msg := range b.pubsub.Channel() {
		var f frame
		if err := json.Unmarshal([]byte(msg.Payload), &f); err != nil {
			b.config.Logger.Debug("Dropped foreign payload",
				"component", "redisbus",
				"channel", msg.Channel,
				"error", err)
			continue
		}
		if f.Target != transport.AnyOrigin && f.Target != b.config.Origin {
			continue
		}
		b.listeners.Emit(transport.Event{Origin: f.Origin, Data: f.Data})
	}
}
