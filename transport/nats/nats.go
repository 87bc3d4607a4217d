// Package nats implements the runtime transport over NATS subjects.
//
// Every endpoint subscribes to "<prefix>.<id>". Data is framed as a
// structured CloudEvents JSON event, so other CloudEvents consumers on the
// same server can observe relay traffic:
//
//	{"specversion":"1.0","id":"...","source":"/devbridge/tab-1",
//	 "type":"io.devbridge.envelope","subject":"devbridge-extension",
//	 "datacontenttype":"application/json","data":{...}}
//
// Ports opened with Connect stay up while the NATS connection is
// connected. A disconnect ends every port; the reconnect loop of the
// relay then retries until the client library has reconnected.
package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/fxsml/devbridge/message"
	"github.com/fxsml/devbridge/transport"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// EventType is the CloudEvents type of relayed envelopes.
const EventType = "io.devbridge.envelope"

// ErrNotConnected is returned by Connect while the NATS connection is down.
var ErrNotConnected = errors.New("nats: not connected")

// Config configures a Runtime.
type Config struct {
	// URL is the NATS server URL, used by Open (default: nats.DefaultURL).
	URL string
	// ID is the endpoint ID. Required.
	ID string
	// Prefix is the subject prefix (default: "devbridge").
	Prefix string
	// ContentType is the content type of relayed data
	// (default: message.ContentTypeJSON).
	ContentType string
	// ConnectTimeout bounds the initial dial in Open (default: 5s).
	ConnectTimeout time.Duration
	// Logger is used for logging (default: slog.Default()).
	Logger transport.Logger
}

func (c Config) defaults() Config {
	if c.URL == "" {
		c.URL = nats.DefaultURL
	}
	if c.Prefix == "" {
		c.Prefix = "devbridge"
	}
	if c.ContentType == "" {
		c.ContentType = message.ContentTypeJSON
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// link is the part of the connection that port liveness depends on.
type link interface {
	IsClosed() bool
	IsConnected() bool
	FlushWithContext(ctx context.Context) error
}

// Runtime is a transport.Runtime over a NATS connection.
type Runtime struct {
	config Config
	conn   *nats.Conn
	link   link
	sub    *nats.Subscription
	owned  bool

	listeners transport.Listeners[[]byte]

	mu    sync.Mutex
	ports map[*port]struct{}
}

var _ transport.Runtime = (*Runtime)(nil)

// Open dials the configured server and returns a Runtime owning the
// connection.
func Open(config Config) (*Runtime, error) {
	config = config.defaults()
	var rt atomic.Pointer[Runtime]
	conn, err := nats.Connect(
		config.URL,
		nats.Timeout(config.ConnectTimeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				config.Logger.Warn("NATS disconnected", "component", "nats", "error", err)
			}
			if r := rt.Load(); r != nil {
				r.disconnectPorts()
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			config.Logger.Info("NATS reconnected", "component", "nats")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if r := rt.Load(); r != nil {
				r.disconnectPorts()
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats: connect %s: %w", config.URL, err)
	}
	r, err := newRuntime(conn, config)
	if err != nil {
		conn.Close()
		return nil, err
	}
	r.owned = true
	rt.Store(r)
	return r, nil
}

// NewRuntime creates a Runtime on an existing connection. Ports end when
// the connection closes; the connection's disconnect handler is not
// replaced.
func NewRuntime(conn *nats.Conn, config Config) (*Runtime, error) {
	r, err := newRuntime(conn, config.defaults())
	if err != nil {
		return nil, err
	}
	conn.SetClosedHandler(func(*nats.Conn) { r.disconnectPorts() })
	return r, nil
}

func newRuntime(conn *nats.Conn, config Config) (*Runtime, error) {
	if config.ID == "" {
		return nil, fmt.Errorf("nats: ID is required")
	}
	r := &Runtime{
		config: config,
		conn:   conn,
		link:   conn,
		ports:  make(map[*port]struct{}),
	}
	sub, err := conn.Subscribe(r.subject(config.ID), r.receive)
	if err != nil {
		return nil, fmt.Errorf("nats: subscribe: %w", err)
	}
	r.sub = sub
	config.Logger.Info("NATS runtime started",
		"component", "nats",
		"subject", sub.Subject)
	return r, nil
}

// ID returns the endpoint ID.
func (r *Runtime) ID() string {
	return r.config.ID
}

// Send publishes data to the subject of peer to. NATS does not report
// absent subscribers, so delivery to an unknown peer succeeds silently.
func (r *Runtime) Send(ctx context.Context, to string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.conn.IsClosed() {
		return transport.ErrClosed
	}
	payload, err := encodeFrame(r.config, to, data)
	if err != nil {
		return err
	}
	if err := r.conn.Publish(r.subject(to), payload); err != nil {
		return fmt.Errorf("nats: publish to %s: %w", to, err)
	}
	return nil
}

// Listen registers fn for data sent to this endpoint.
func (r *Runtime) Listen(fn func(data []byte)) (remove func()) {
	return r.listeners.Add(fn)
}

// Connect verifies the server round trip and returns a port that ends on
// the next disconnect. The port is registered before the round trip, so a
// disconnect at any point after the status check ends it.
func (r *Runtime) Connect(ctx context.Context, name string) (transport.Port, error) {
	if r.link.IsClosed() {
		return nil, transport.ErrClosed
	}
	p := r.openPort(name)
	if !r.link.IsConnected() {
		p.Close()
		return nil, ErrNotConnected
	}
	if err := r.link.FlushWithContext(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("nats: flush: %w", err)
	}
	return p, nil
}

func (r *Runtime) openPort(name string) *port {
	p := &port{name: name, done: make(chan struct{})}
	p.onClose = func() {
		r.mu.Lock()
		delete(r.ports, p)
		r.mu.Unlock()
	}
	r.mu.Lock()
	r.ports[p] = struct{}{}
	r.mu.Unlock()
	return p
}

// Close unsubscribes, ends every port and closes the connection if it was
// dialed by Open.
func (r *Runtime) Close() error {
	err := r.sub.Unsubscribe()
	r.disconnectPorts()
	r.listeners.Clear()
	if r.owned {
		r.conn.Close()
	}
	if errors.Is(err, nats.ErrConnectionClosed) || errors.Is(err, nats.ErrBadSubscription) {
		err = nil
	}
	return err
}

func (r *Runtime) subject(peer string) string {
	return r.config.Prefix + "." + peer
}

func (r *Runtime) receive(msg *nats.Msg) {
	data, err := decodeFrame(msg.Data)
	if err != nil {
		r.config.Logger.Debug("Dropped foreign event",
			"component", "nats",
			"subject", msg.Subject,
			"error", err)
		return
	}
	r.listeners.Emit(data)
}

func (r *Runtime) disconnectPorts() {
	r.mu.Lock()
	ports := make([]*port, 0, len(r.ports))
	for p := range r.ports {
		ports = append(ports, p)
	}
	r.mu.Unlock()
	for _, p := range ports {
		p.Close()
	}
}

func encodeFrame(config Config, to string, data []byte) ([]byte, error) {
	e := cloudevents.NewEvent()
	e.SetID(uuid.NewString())
	e.SetSource("/devbridge/" + config.ID)
	e.SetType(EventType)
	e.SetSubject(to)
	e.SetTime(time.Now())

	var err error
	if config.ContentType == message.ContentTypeJSON && json.Valid(data) {
		err = e.SetData(config.ContentType, json.RawMessage(data))
	} else {
		err = e.SetData(config.ContentType, data)
	}
	if err != nil {
		return nil, fmt.Errorf("nats: set data: %w", err)
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("nats: encode event: %w", err)
	}
	return payload, nil
}

func decodeFrame(payload []byte) ([]byte, error) {
	var e cloudevents.Event
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, fmt.Errorf("nats: decode event: %w", err)
	}
	if e.Type() != EventType {
		return nil, fmt.Errorf("nats: unexpected event type %q", e.Type())
	}
	return e.Data(), nil
}

type port struct {
	name    string
	done    chan struct{}
	once    sync.Once
	onClose func()
}

func (p *port) Name() string          { return p.name }
func (p *port) Done() <-chan struct{} { return p.done }

func (p *port) Close() error {
	p.once.Do(func() {
		close(p.done)
		if p.onClose != nil {
			p.onClose()
		}
	})
	return nil
}
