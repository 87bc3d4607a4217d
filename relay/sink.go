package relay

import (
	"context"
	"log/slog"

	"github.com/fxsml/devbridge/message"
	"github.com/fxsml/devbridge/stream"
	"github.com/fxsml/devbridge/transport"
)

// SinkConfig configures the sink adapters.
type SinkConfig struct {
	// Codec encodes outgoing envelopes (default: message.DefaultCodec).
	Codec *message.Codec
	// Logger is used for logging (default: slog.Default()).
	Logger Logger
}

func (c SinkConfig) defaults() SinkConfig {
	if c.Codec == nil {
		c.Codec = message.DefaultCodec
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// RepostWindowMessage posts every envelope from src on bus to all origins.
// Each value is acknowledged as soon as it was posted. Cancelling ctx
// cancels src.
func RepostWindowMessage(
	ctx context.Context,
	bus transport.Bus,
	src stream.Source[message.Envelope],
	config SinkConfig,
) *stream.Subscription {
	config = config.defaults()
	return stream.ForEach(ctx, src, func(env message.Envelope) {
		data, err := config.Codec.Encode(env)
		if err != nil {
			config.Logger.Warn("Could not encode envelope",
				"component", "relay",
				"type", env.Type,
				"error", err)
			return
		}
		if err := bus.Post(ctx, data, transport.AnyOrigin); err != nil {
			config.Logger.Warn("Could not post window message",
				"component", "relay",
				"type", env.Type,
				"error", err)
		}
	})
}

// RepostRuntimeMessage sends every envelope from src to the runtime peer
// dest. Delivery failures are logged as warnings and not retried; each
// value is acknowledged regardless. Cancelling ctx cancels src.
func RepostRuntimeMessage(
	ctx context.Context,
	rt transport.Runtime,
	dest string,
	src stream.Source[message.Envelope],
	config SinkConfig,
) *stream.Subscription {
	config = config.defaults()
	return stream.ForEach(ctx, src, func(env message.Envelope) {
		data, err := config.Codec.Encode(env)
		if err != nil {
			config.Logger.Warn("Could not encode envelope",
				"component", "relay",
				"type", env.Type,
				"error", err)
			return
		}
		if err := rt.Send(ctx, dest, data); err != nil {
			config.Logger.Warn("Could not deliver runtime message",
				"component", "relay",
				"type", env.Type,
				"dest", dest,
				"error", err)
		}
	})
}
