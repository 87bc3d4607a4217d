package hook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/fxsml/devbridge/message"
	"github.com/fxsml/devbridge/relay"
	"github.com/fxsml/devbridge/stream"
	"github.com/fxsml/devbridge/transport"
)

var (
	// ErrAlreadyPublished is returned by Publish if a hook was published.
	ErrAlreadyPublished = errors.New("hook: already published")
	// ErrDisconnected is returned by Session.UpdateState after Disconnect.
	ErrDisconnected = errors.New("hook: session disconnected")
)

// Config configures a Hook.
type Config struct {
	// Codec encodes envelopes posted on the bus (default: message.DefaultCodec).
	Codec *message.Codec
	// TargetOrigin restricts which frames receive posted envelopes
	// (default: transport.AnyOrigin).
	TargetOrigin string
	// IDGenerator creates session IDs (default: message.NewSessionID).
	IDGenerator func() string
	// MaxDepth limits the nesting of serialized plugin state
	// (default: DefaultMaxDepth).
	MaxDepth int
	// DisableResendOnShow stops the hook from posting init again for live
	// sessions when the panel becomes visible.
	DisableResendOnShow bool
	// Logger is used for logging (default: slog.Default()).
	Logger Logger
}

func (c Config) defaults() Config {
	if c.Codec == nil {
		c.Codec = message.DefaultCodec
	}
	if c.TargetOrigin == "" {
		c.TargetOrigin = transport.AnyOrigin
	}
	if c.IDGenerator == nil {
		c.IDGenerator = message.NewSessionID
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = DefaultMaxDepth
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Hook registers editor views and posts their envelopes on a window bus.
type Hook struct {
	bus    transport.Bus
	config Config

	showing atomic.Bool
	sub     *stream.Subscription

	mu       sync.Mutex
	sessions []*Session
}

// New creates a Hook posting on bus and starts tracking panel visibility.
// Call Close to stop listening.
func New(bus transport.Bus, config Config) *Hook {
	config = config.defaults()
	h := &Hook{bus: bus, config: config}

	showing := stream.Pipe(
		relay.FromWindowMessages(bus, relay.SourceConfig{
			Codec:  config.Codec,
			Logger: config.Logger,
		}),
		stream.Filtering(message.FromExtension),
		stream.Filtering(message.OfType(message.TypeExtensionShowing)),
	)
	h.sub = stream.ForEach(context.Background(), showing, h.handleShowing)
	return h
}

// Inject registers view and posts its init envelope. The session stays
// registered until Disconnect.
func (h *Hook) Inject(ctx context.Context, view View) (*Session, error) {
	if view == nil {
		return nil, fmt.Errorf("hook: view is nil")
	}
	s := &Session{id: h.config.IDGenerator(), view: view, hook: h}

	env, err := h.initEnvelope(s)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	h.sessions = append(h.sessions, s)
	h.mu.Unlock()

	if err := h.post(ctx, env); err != nil {
		h.remove(s)
		return nil, err
	}
	h.config.Logger.Info("Editor injected",
		"component", "hook",
		"session", s.id)
	return s, nil
}

// Showing reports whether the devtools panel is visible.
func (h *Hook) Showing() bool {
	return h.showing.Load()
}

// Views returns the live sessions in injection order.
func (h *Hook) Views() []*Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.sessions)
}

// Close stops tracking panel visibility. Sessions remain usable.
func (h *Hook) Close() {
	h.sub.Cancel()
}

func (h *Hook) handleShowing(env message.Envelope) {
	showing, ok := env.Payload.(message.ExtensionShowing)
	if !ok {
		return
	}
	was := h.showing.Swap(bool(showing))
	h.config.Logger.Debug("Panel visibility changed",
		"component", "hook",
		"showing", bool(showing))
	if !bool(showing) || was || h.config.DisableResendOnShow {
		return
	}
	for _, s := range h.Views() {
		env, err := h.initEnvelope(s)
		if err == nil {
			err = h.post(context.Background(), env)
		}
		if err != nil {
			h.config.Logger.Warn("Could not resend init",
				"component", "hook",
				"session", s.id,
				"error", err)
		}
	}
}

func (h *Hook) initEnvelope(s *Session) (message.Envelope, error) {
	view := s.view
	plugins := view.Plugins()
	cloned := make([]pluginJSON, 0, len(plugins))
	for _, p := range plugins {
		cloned = append(cloned, pluginJSON{
			Key:   p.Key,
			State: cloneExcluding(p.State, []any{view}, h.config.MaxDepth),
		})
	}
	pluginsAsJSON, err := json.Marshal(cloned)
	if err != nil {
		return message.Envelope{}, fmt.Errorf("hook: plugin state: %w", err)
	}

	return message.NewInit(message.Init{
		SchemaSpec:    view.SchemaSpec(),
		State:         s.state(),
		PluginsAsJSON: string(pluginsAsJSON),
		ViewAttrs:     pickAttrs(view.Attrs()),
		Session:       s.id,
	}), nil
}

func (h *Hook) post(ctx context.Context, env message.Envelope) error {
	data, err := h.config.Codec.Encode(env)
	if err != nil {
		return err
	}
	if err := h.bus.Post(ctx, data, h.config.TargetOrigin); err != nil {
		return fmt.Errorf("hook: post %s: %w", env.Type, err)
	}
	return nil
}

func (h *Hook) remove(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions = slices.DeleteFunc(h.sessions, func(e *Session) bool { return e == s })
}

type pluginJSON struct {
	Key   string `json:"key"`
	State any    `json:"state"`
}

var published atomic.Pointer[Hook]

// Publish makes h the process-wide hook. It can be called once.
func Publish(h *Hook) error {
	if h == nil {
		return fmt.Errorf("hook: publish nil hook")
	}
	if !published.CompareAndSwap(nil, h) {
		return ErrAlreadyPublished
	}
	return nil
}

// Published returns the process-wide hook, or nil.
func Published() *Hook {
	return published.Load()
}
