package relay

import (
	"log/slog"

	"github.com/fxsml/devbridge/message"
	"github.com/fxsml/devbridge/stream"
	"github.com/fxsml/devbridge/transport"
)

// SourceConfig configures the source adapters.
type SourceConfig struct {
	// Codec decodes incoming data (default: message.DefaultCodec).
	Codec *message.Codec
	// DecodeErrorHandler is called with data that did not decode.
	// Undecodable data is dropped silently by default.
	DecodeErrorHandler func(data []byte, err error)
	// Logger is used for logging (default: slog.Default()).
	Logger Logger
}

func (c SourceConfig) defaults() SourceConfig {
	if c.Codec == nil {
		c.Codec = message.DefaultCodec
	}
	if c.DecodeErrorHandler == nil {
		c.DecodeErrorHandler = func([]byte, error) {}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// FromWindowMessages emits envelopes posted on bus by frames of the same
// origin. Events from other origins are ignored before decoding. The
// listener is removed on cancel.
func FromWindowMessages(bus transport.Bus, config SourceConfig) stream.Source[message.Envelope] {
	config = config.defaults()
	origin := bus.Origin()
	return stream.FromListener(func(emit func(message.Envelope)) func() {
		return bus.Listen(func(e transport.Event) {
			if e.Origin != origin {
				return
			}
			env, err := config.Codec.Decode(e.Data)
			if err != nil {
				config.DecodeErrorHandler(e.Data, err)
				return
			}
			emit(env)
		})
	})
}

// FromRuntimeMessages emits every decodable message delivered to rt. The
// listener is removed on cancel.
func FromRuntimeMessages(rt transport.Runtime, config SourceConfig) stream.Source[message.Envelope] {
	config = config.defaults()
	return stream.FromListener(func(emit func(message.Envelope)) func() {
		return rt.Listen(func(data []byte) {
			env, err := config.Codec.Decode(data)
			if err != nil {
				config.DecodeErrorHandler(data, err)
				return
			}
			emit(env)
		})
	})
}
