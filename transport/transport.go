// Package transport defines the boundaries the relay moves envelopes
// across: the same-window message bus shared by a page and its scripts,
// the cross-process runtime connecting content endpoints with the
// extension, and the extension's registry of tabs.
//
// Implementations live in sub-packages: memory (in-process), redisbus
// (window bus over Redis pub/sub), websocket and nats (runtime).
package transport

import (
	"context"
	"errors"
)

// AnyOrigin addresses every listener on a Bus regardless of its origin.
const AnyOrigin = "*"

var (
	// ErrClosed is returned when using a closed transport.
	ErrClosed = errors.New("transport: closed")
	// ErrUnknownPeer is returned when sending to a peer that is not connected.
	ErrUnknownPeer = errors.New("transport: unknown peer")
	// ErrNoActiveTab is returned by Tabs.ActiveTab when no tab is attached.
	ErrNoActiveTab = errors.New("transport: no active tab")
)

// Event is a message received from a Bus.
type Event struct {
	// Origin is the origin of the posting frame.
	Origin string
	// Data is the encoded envelope.
	Data []byte
}

// Bus is a same-window message bus. Every frame of a window shares it;
// listeners receive events posted by any frame.
type Bus interface {
	// Origin returns the origin of this frame.
	Origin() string
	// Post delivers data to listeners whose origin matches targetOrigin,
	// or to all listeners for AnyOrigin.
	Post(ctx context.Context, data []byte, targetOrigin string) error
	// Listen registers fn for incoming events. The returned function
	// removes the listener.
	Listen(fn func(Event)) (remove func())
}

// Runtime is a cross-process transport addressed by peer ID.
type Runtime interface {
	// ID returns the ID of this endpoint.
	ID() string
	// Send delivers data to the peer with ID to.
	Send(ctx context.Context, to string, data []byte) error
	// Listen registers fn for incoming messages. The returned function
	// removes the listener.
	Listen(fn func(data []byte)) (remove func())
	// Connect opens a named keep-alive port to the extension. A failed
	// connection may be reported either as an error or as a port that is
	// already done.
	Connect(ctx context.Context, name string) (Port, error)
}

// Port is a keep-alive connection. Done is closed on disconnect.
type Port interface {
	Name() string
	Done() <-chan struct{}
	Close() error
}

// Tabs is the extension's view of attached content endpoints.
type Tabs interface {
	// ActiveTab returns the ID of the active tab.
	ActiveTab(ctx context.Context) (string, error)
	// Tabs returns the IDs of all attached tabs.
	Tabs(ctx context.Context) ([]string, error)
}

// Logger defines an interface for logging at different severity levels.
type Logger interface {
	// Debug logs a message at debug level.
	Debug(msg string, args ...any)
	// Info logs a message at info level.
	Info(msg string, args ...any)
	// Warn logs a message at warning level.
	Warn(msg string, args ...any)
	// Error logs a message at error level.
	Error(msg string, args ...any)
}
