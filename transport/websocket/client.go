package websocket

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/fxsml/devbridge/transport"
	gorilla "github.com/gorilla/websocket"
)

// Config configures a Client.
type Config struct {
	// URL is the hub address, for example "ws://localhost:7345/". Required.
	URL string
	// ID is the tab ID of this endpoint. Required.
	ID string
	// HubID is the runtime ID of the hub (default: DefaultHubID).
	HubID string
	// Dialer dials sockets (default: gorilla's DefaultDialer).
	Dialer *gorilla.Dialer
	// Logger is used for logging (default: slog.Default()).
	Logger transport.Logger
}

func (c Config) defaults() Config {
	if c.HubID == "" {
		c.HubID = DefaultHubID
	}
	if c.Dialer == nil {
		c.Dialer = gorilla.DefaultDialer
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Client is a content endpoint connected to a Hub. It implements
// transport.Runtime.
type Client struct {
	config Config

	listeners transport.Listeners[[]byte]

	mu     sync.Mutex
	closed bool
	conn   *conn
	ports  map[*conn]struct{}
}

var _ transport.Runtime = (*Client)(nil)

// Dial connects the message socket of a new Client.
func Dial(ctx context.Context, config Config) (*Client, error) {
	config = config.defaults()
	if config.URL == "" || config.ID == "" {
		return nil, fmt.Errorf("websocket: URL and ID are required")
	}
	c := &Client{
		config: config,
		ports:  make(map[*conn]struct{}),
	}
	if _, err := c.messageConn(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// ID returns the tab ID.
func (c *Client) ID() string {
	return c.config.ID
}

// Send writes data to the hub. The message socket is redialed if it was
// lost.
func (c *Client) Send(ctx context.Context, to string, data []byte) error {
	if to != c.config.HubID {
		return fmt.Errorf("%w: %s", transport.ErrUnknownPeer, to)
	}
	mc, err := c.messageConn(ctx)
	if err != nil {
		return err
	}
	if err := mc.write(ctx, data); err != nil {
		return fmt.Errorf("websocket: send to %s: %w", to, err)
	}
	return nil
}

// Listen registers fn for data sent by the hub.
func (c *Client) Listen(fn func(data []byte)) (remove func()) {
	return c.listeners.Add(fn)
}

// Connect dials a port socket. The message socket is restored first.
func (c *Client) Connect(ctx context.Context, name string) (transport.Port, error) {
	if _, err := c.messageConn(ctx); err != nil {
		return nil, err
	}
	ws, err := c.dial(ctx, name)
	if err != nil {
		return nil, err
	}
	pc := newConn(ws)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		pc.close()
		return nil, transport.ErrClosed
	}
	c.ports[pc] = struct{}{}
	c.mu.Unlock()

	go func() {
		_ = pc.readLoop(nil)
		c.mu.Lock()
		delete(c.ports, pc)
		c.mu.Unlock()
	}()
	return &port{name: name, c: pc}, nil
}

// Close closes the message socket and every port.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conns := make([]*conn, 0, len(c.ports)+1)
	if c.conn != nil {
		conns = append(conns, c.conn)
	}
	for pc := range c.ports {
		conns = append(conns, pc)
	}
	c.mu.Unlock()

	for _, cc := range conns {
		cc.close()
	}
	return nil
}

// messageConn returns the live message socket, dialing it if needed.
func (c *Client) messageConn(ctx context.Context) (*conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, transport.ErrClosed
	}
	if c.conn != nil {
		select {
		case <-c.conn.done:
		default:
			return c.conn, nil
		}
	}

	ws, err := c.dial(ctx, "")
	if err != nil {
		return nil, err
	}
	mc := newConn(ws)
	c.conn = mc
	go func() {
		if err := mc.readLoop(c.listeners.Emit); err != nil && !isNormalClose(err) {
			c.config.Logger.Debug("Message socket ended",
				"component", "websocket",
				"tab", c.config.ID,
				"error", err)
		}
	}()
	return mc, nil
}

func (c *Client) dial(ctx context.Context, portName string) (*gorilla.Conn, error) {
	u, err := url.Parse(c.config.URL)
	if err != nil {
		return nil, fmt.Errorf("websocket: parse url: %w", err)
	}
	q := u.Query()
	q.Set("id", c.config.ID)
	if portName != "" {
		q.Set("port", portName)
	}
	u.RawQuery = q.Encode()

	ws, resp, err := c.config.Dialer.DialContext(ctx, u.String(), nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("websocket: dial %s: %w", u.Host, err)
	}
	return ws, nil
}
