package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"

	"github.com/fxsml/devbridge/transport"
	gorilla "github.com/gorilla/websocket"
)

// DefaultHubID is the runtime ID of the extension hub.
const DefaultHubID = "devbridge-extension"

// HubConfig configures a Hub.
type HubConfig struct {
	// ID is the runtime ID of the hub (default: DefaultHubID).
	ID string
	// BufferSize sets the read and write buffer sizes (default: 1024).
	BufferSize int
	// CheckOrigin is passed to the upgrader. Nil accepts same-origin
	// requests only.
	CheckOrigin func(r *http.Request) bool
	// Logger is used for logging (default: slog.Default()).
	Logger transport.Logger
}

func (c HubConfig) defaults() HubConfig {
	if c.ID == "" {
		c.ID = DefaultHubID
	}
	if c.BufferSize <= 0 {
		c.BufferSize = 1024
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Hub is the extension side of the WebSocket runtime. It implements
// transport.Runtime and transport.Tabs; tabs are the IDs of attached
// message sockets, the active tab is the most recently attached or
// activated one.
type Hub struct {
	config   HubConfig
	upgrader gorilla.Upgrader

	listeners transport.Listeners[[]byte]

	mu     sync.Mutex
	closed bool
	tabs   map[string]*conn
	order  []string
	active string
	ports  map[*conn]struct{}
}

var (
	_ transport.Runtime = (*Hub)(nil)
	_ transport.Tabs    = (*Hub)(nil)
	_ http.Handler      = (*Hub)(nil)
)

// NewHub creates a Hub. Serve it with net/http.
func NewHub(config HubConfig) *Hub {
	config = config.defaults()
	return &Hub{
		config: config,
		upgrader: gorilla.Upgrader{
			ReadBufferSize:  config.BufferSize,
			WriteBufferSize: config.BufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		tabs:  make(map[string]*conn),
		ports: make(map[*conn]struct{}),
	}
}

// ServeHTTP upgrades the request to a message or port socket and serves
// it until the connection ends.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "missing id", http.StatusBadRequest)
		return
	}
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		http.Error(w, "hub closed", http.StatusServiceUnavailable)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.config.Logger.Warn("Upgrade failed",
			"component", "websocket",
			"tab", id,
			"error", err)
		return
	}
	c := newConn(ws)

	if name := r.URL.Query().Get("port"); name != "" {
		h.servePort(id, name, c)
		return
	}
	h.serveTab(id, c)
}

func (h *Hub) serveTab(id string, c *conn) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		c.close()
		return
	}
	old := h.tabs[id]
	h.tabs[id] = c
	h.order = append(slices.DeleteFunc(h.order, func(s string) bool { return s == id }), id)
	h.active = id
	h.mu.Unlock()

	if old != nil {
		old.close()
	}
	h.config.Logger.Info("Tab attached", "component", "websocket", "tab", id)

	err := c.readLoop(h.listeners.Emit)

	h.mu.Lock()
	if h.tabs[id] == c {
		delete(h.tabs, id)
		h.order = slices.DeleteFunc(h.order, func(s string) bool { return s == id })
		if h.active == id {
			h.active = ""
			if n := len(h.order); n > 0 {
				h.active = h.order[n-1]
			}
		}
	}
	h.mu.Unlock()

	if err != nil && !isNormalClose(err) {
		h.config.Logger.Debug("Tab socket ended",
			"component", "websocket",
			"tab", id,
			"error", err)
	}
	h.config.Logger.Info("Tab detached", "component", "websocket", "tab", id)
}

func (h *Hub) servePort(id, name string, c *conn) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		c.close()
		return
	}
	h.ports[c] = struct{}{}
	h.mu.Unlock()

	h.config.Logger.Debug("Port connected", "component", "websocket", "tab", id, "port", name)
	_ = c.readLoop(nil)

	h.mu.Lock()
	delete(h.ports, c)
	h.mu.Unlock()
}

// ID returns the hub ID.
func (h *Hub) ID() string {
	return h.config.ID
}

// Send writes data to the message socket of tab to.
func (h *Hub) Send(ctx context.Context, to string, data []byte) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return transport.ErrClosed
	}
	c, ok := h.tabs[to]
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", transport.ErrUnknownPeer, to)
	}
	if err := c.write(ctx, data); err != nil {
		return fmt.Errorf("websocket: send to %s: %w", to, err)
	}
	return nil
}

// Listen registers fn for data received from any tab.
func (h *Hub) Listen(fn func(data []byte)) (remove func()) {
	return h.listeners.Add(fn)
}

// Connect is not supported: the hub is the end ports connect to.
func (h *Hub) Connect(context.Context, string) (transport.Port, error) {
	return nil, errors.New("websocket: hub has no upstream")
}

// Activate makes an attached tab the active one.
func (h *Hub) Activate(id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.tabs[id]; !ok {
		return fmt.Errorf("%w: %s", transport.ErrUnknownPeer, id)
	}
	h.active = id
	return nil
}

// ActiveTab returns the active tab.
func (h *Hub) ActiveTab(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.active == "" {
		return "", transport.ErrNoActiveTab
	}
	return h.active, nil
}

// Tabs returns the attached tabs in attachment order.
func (h *Hub) Tabs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.order), nil
}

// Connections returns the number of open port sockets.
func (h *Hub) Connections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.ports)
}

// Close disconnects every tab and port. Later upgrade requests fail.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	conns := make([]*conn, 0, len(h.tabs)+len(h.ports))
	for _, c := range h.tabs {
		conns = append(conns, c)
	}
	for c := range h.ports {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		c.close()
	}
	h.listeners.Clear()
	return nil
}
