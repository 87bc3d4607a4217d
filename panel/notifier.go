package panel

import (
	"context"
	"log/slog"

	"github.com/fxsml/devbridge/message"
	"github.com/fxsml/devbridge/transport"
)

// Notifier sends envelopes from the extension to content relays.
// Failures are logged as warnings.
type Notifier struct {
	// Runtime sends to tabs. Required.
	Runtime transport.Runtime
	// Tabs resolves the active and all tabs. Required.
	Tabs transport.Tabs
	// Codec encodes envelopes (default: message.DefaultCodec).
	Codec *message.Codec
	// Logger is used for logging (default: slog.Default()).
	Logger Logger
}

// Shown tells the active tab that the panel is visible.
func (n *Notifier) Shown(ctx context.Context) {
	n.notifyActive(ctx, message.NewExtensionShowing(true))
}

// Hidden tells the active tab that the panel is hidden.
func (n *Notifier) Hidden(ctx context.Context) {
	n.notifyActive(ctx, message.NewExtensionShowing(false))
}

// Broadcast sends env to every tab.
func (n *Notifier) Broadcast(ctx context.Context, env message.Envelope) {
	tabs, err := n.Tabs.Tabs(ctx)
	if err != nil {
		n.logger().Warn("Could not notify tabs",
			"component", "notifier",
			"error", err)
		return
	}
	data, ok := n.encode(env)
	if !ok {
		return
	}
	for _, tab := range tabs {
		n.send(ctx, tab, data)
	}
}

func (n *Notifier) notifyActive(ctx context.Context, env message.Envelope) {
	tab, err := n.Tabs.ActiveTab(ctx)
	if err != nil {
		n.logger().Warn("Could not notify tabs",
			"component", "notifier",
			"error", err)
		return
	}
	if data, ok := n.encode(env); ok {
		n.send(ctx, tab, data)
	}
}

func (n *Notifier) encode(env message.Envelope) ([]byte, bool) {
	codec := n.Codec
	if codec == nil {
		codec = message.DefaultCodec
	}
	data, err := codec.Encode(env)
	if err != nil {
		n.logger().Warn("Could not encode envelope",
			"component", "notifier",
			"type", env.Type,
			"error", err)
		return nil, false
	}
	return data, true
}

func (n *Notifier) send(ctx context.Context, tab string, data []byte) {
	if err := n.Runtime.Send(ctx, tab, data); err != nil {
		n.logger().Warn("Could not notify tab",
			"component", "notifier",
			"tab", tab,
			"error", err)
	}
}

func (n *Notifier) logger() Logger {
	if n.Logger == nil {
		return slog.Default()
	}
	return n.Logger
}
