package panel

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/fxsml/devbridge/message"
	"github.com/fxsml/devbridge/relay"
	"github.com/fxsml/devbridge/stream"
	"github.com/fxsml/devbridge/transport"
)

var (
	// ErrAlreadyRunning is returned by Run while another Run is active.
	ErrAlreadyRunning = errors.New("panel: already running")
	// ErrInvalidState is returned when an init carries no editor state.
	ErrInvalidState = errors.New("panel: invalid state")
)

// DefaultHistorySize is the default number of states kept per view.
const DefaultHistorySize = 100

// Config configures a Panel.
type Config struct {
	// Codec decodes incoming data (default: message.DefaultCodec).
	Codec *message.Codec
	// HistorySize bounds View.History (default: DefaultHistorySize).
	HistorySize int
	// OnChange is called with the new view after init or updateState.
	OnChange func(*View)
	// DecodeErrorHandler receives undecodable runtime messages.
	DecodeErrorHandler func(data []byte, err error)
	// Logger is used for logging (default: slog.Default()).
	Logger Logger
}

func (c Config) defaults() Config {
	if c.Codec == nil {
		c.Codec = message.DefaultCodec
	}
	if c.HistorySize <= 0 {
		c.HistorySize = DefaultHistorySize
	}
	if c.OnChange == nil {
		c.OnChange = func(*View) {}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Panel mirrors the editor of the inspected page.
type Panel struct {
	config  Config
	view    atomic.Pointer[View]
	running atomic.Bool
}

// New creates a Panel.
func New(config Config) *Panel {
	return &Panel{config: config.defaults()}
}

// Run consumes envelopes delivered to rt until ctx is done and returns
// ctx.Err().
func (p *Panel) Run(ctx context.Context, rt transport.Runtime) error {
	if !p.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer p.running.Store(false)

	src := stream.Pipe(
		relay.FromRuntimeMessages(rt, relay.SourceConfig{
			Codec:              p.config.Codec,
			DecodeErrorHandler: p.config.DecodeErrorHandler,
			Logger:             p.config.Logger,
		}),
		stream.Filtering(message.FromExtension),
		stream.Filtering(message.OfType(message.TypeInit, message.TypeUpdateState)),
	)
	sub := stream.ForEach(ctx, src, p.handle)
	<-sub.Done()
	return ctx.Err()
}

// View returns the current view, or false before a successful init.
func (p *Panel) View() (*View, bool) {
	v := p.view.Load()
	return v, v != nil
}

func (p *Panel) handle(env message.Envelope) {
	p.config.Logger.Debug("Received message",
		"component", "panel",
		"type", env.Type)

	switch payload := env.Payload.(type) {
	case message.Init:
		v, err := rebuildView(payload)
		if err != nil {
			p.config.Logger.Error("Could not initialize devtools from editor",
				"component", "panel",
				"error", err)
			return
		}
		p.view.Store(v)
		p.config.OnChange(v)
	case message.UpdateState:
		cur := p.view.Load()
		if cur == nil {
			p.config.Logger.Warn("Received state before init",
				"component", "panel")
			return
		}
		v := cur.withState(payload.State, p.config.HistorySize)
		p.view.Store(v)
		p.config.OnChange(v)
	}
}
