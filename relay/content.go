package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/fxsml/devbridge/message"
	"github.com/fxsml/devbridge/pipe"
	"github.com/fxsml/devbridge/stream"
	"github.com/fxsml/devbridge/transport"
)

// ErrAlreadyStarted is returned by Content.Start when called twice.
var ErrAlreadyStarted = errors.New("relay: already started")

// DefaultPolicies replay every init and the latest updateState. Content
// keeps one init per session: a resent init replaces the session's
// earlier one.
var DefaultPolicies = []pipe.Policy{
	{Type: string(message.TypeInit), Pick: pipe.PickAll},
	{Type: string(message.TypeUpdateState), Pick: pipe.PickLatest},
}

// ContentConfig configures a Content relay.
type ContentConfig struct {
	// Window is the bus shared with the page hook. Required.
	Window transport.Bus
	// Runtime connects to the extension. Required.
	Runtime transport.Runtime
	// ExtensionID is the runtime peer receiving editor envelopes. Required.
	ExtensionID string
	// Codec encodes and decodes envelopes on both transports
	// (default: message.DefaultCodec).
	Codec *message.Codec
	// Policies is the replay policy table (default: DefaultPolicies).
	Policies []pipe.Policy
	// Reconnect configures the keep-alive port. Its OnConnect is replaced.
	Reconnect ReconnectConfig
	// DisableReconnect attaches the runtime sink once at Start and never
	// opens a keep-alive port.
	DisableReconnect bool
	// DecodeErrorHandler receives undecodable input from both sources.
	DecodeErrorHandler func(data []byte, err error)
	// Logger is used for logging (default: slog.Default()).
	Logger Logger
}

func (c ContentConfig) defaults() ContentConfig {
	if c.Codec == nil {
		c.Codec = message.DefaultCodec
	}
	if c.Policies == nil {
		c.Policies = DefaultPolicies
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Reconnect.Logger == nil {
		c.Reconnect.Logger = c.Logger
	}
	return c
}

// Content is the relay between a page and the extension.
//
// Page to extension: window source, extension tag filter, type filter
// (init, updateState), gate on Showing, replay, runtime sink to
// ExtensionID. The runtime sink subscribes to the replay anew after every
// reconnect, so a reloaded extension receives the retained state first.
//
// Extension to page: runtime source, extension tag filter, type filter
// (extension-showing), tap updating Showing, window sink.
type Content struct {
	config      ContentConfig
	replay      *pipe.Replay[message.Envelope]
	reconnector *Reconnector

	showing atomic.Bool
	started atomic.Bool
	done    chan struct{}

	mu     sync.Mutex
	shared stream.Source[message.Envelope]
	sink   *stream.Subscription
}

// NewContent validates config and creates a Content relay.
func NewContent(config ContentConfig) (*Content, error) {
	config = config.defaults()
	if config.Window == nil || config.Runtime == nil {
		return nil, fmt.Errorf("relay: window and runtime are required")
	}
	if config.ExtensionID == "" {
		return nil, fmt.Errorf("relay: extension ID is required")
	}
	replay, err := pipe.NewReplay(pipe.ReplayConfig[message.Envelope]{
		Policies: config.Policies,
		Key:      message.Key,
		Identity: message.Session,
		Logger:   config.Logger,
	})
	if err != nil {
		return nil, err
	}

	c := &Content{
		config: config,
		replay: replay,
		done:   make(chan struct{}),
	}
	if !config.DisableReconnect {
		rc := config.Reconnect
		rc.OnConnect = func(ctx context.Context, _ transport.Port) { c.attachSink(ctx) }
		c.reconnector = NewReconnector(config.Runtime, rc)
	}
	return c, nil
}

// Start wires both directions and, unless disabled, runs the reconnect
// loop. Everything is torn down when ctx is done; Done is closed after.
func (c *Content) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	srcConfig := SourceConfig{
		Codec:              c.config.Codec,
		DecodeErrorHandler: c.config.DecodeErrorHandler,
		Logger:             c.config.Logger,
	}
	sinkConfig := SinkConfig{Codec: c.config.Codec, Logger: c.config.Logger}

	toExtension := stream.Pipe(
		FromWindowMessages(c.config.Window, srcConfig),
		stream.Filtering(message.FromExtension),
		stream.Filtering(message.OfType(message.TypeInit, message.TypeUpdateState)),
		func(src stream.Source[message.Envelope]) stream.Source[message.Envelope] {
			return pipe.Gate(src, c.Showing)
		},
	)
	shared, err := c.replay.Replay(toExtension)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.shared = shared
	c.mu.Unlock()

	toPage := stream.Pipe(
		FromRuntimeMessages(c.config.Runtime, srcConfig),
		stream.Filtering(message.FromExtension),
		stream.Filtering(message.OfType(message.TypeExtensionShowing)),
		stream.Tapping(c.updateShowing),
	)
	RepostWindowMessage(ctx, c.config.Window, toPage, sinkConfig)

	if c.reconnector == nil {
		c.attachSink(ctx)
		go func() {
			<-ctx.Done()
			c.replay.Close()
			close(c.done)
		}()
		return nil
	}

	go func() {
		defer close(c.done)
		defer c.replay.Close()
		err := c.reconnector.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			c.config.Logger.Warn("Reconnect loop stopped",
				"component", "content",
				"error", err)
			<-ctx.Done()
		}
	}()
	return nil
}

// Showing reports whether the devtools panel is visible.
func (c *Content) Showing() bool {
	return c.showing.Load()
}

// State returns the state of the keep-alive port, or Idle if reconnect
// is disabled.
func (c *Content) State() ReconnectState {
	if c.reconnector == nil {
		return Idle
	}
	return c.reconnector.State()
}

// Replay returns the replay operator, for inspection.
func (c *Content) Replay() *pipe.Replay[message.Envelope] {
	return c.replay
}

// Done is closed after the relay was torn down.
func (c *Content) Done() <-chan struct{} {
	return c.done
}

func (c *Content) updateShowing(env message.Envelope) {
	showing, ok := env.Payload.(message.ExtensionShowing)
	if !ok {
		return
	}
	c.showing.Store(bool(showing))
	if showing {
		c.config.Logger.Info("Extension showing", "component", "content")
	} else {
		c.config.Logger.Info("Extension hiding", "component", "content")
	}
}

// attachSink replaces the runtime sink subscription. The new subscriber
// receives the replay before live values.
func (c *Content) attachSink(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sink != nil {
		c.sink.Cancel()
	}
	c.sink = RepostRuntimeMessage(ctx, c.config.Runtime, c.config.ExtensionID, c.shared,
		SinkConfig{Codec: c.config.Codec, Logger: c.config.Logger})
}
