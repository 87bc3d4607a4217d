package memory

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/fxsml/devbridge/transport"
)

// Network is an in-process runtime transport. Content endpoints are
// created with Endpoint, the extension side with Host. Network implements
// transport.Tabs over its content endpoints.
type Network struct {
	mu     sync.Mutex
	peers  map[string]*Endpoint
	tabs   []string
	active string
	host   *Endpoint
}

var _ transport.Tabs = (*Network)(nil)

// NewNetwork creates an empty network.
func NewNetwork() *Network {
	return &Network{peers: make(map[string]*Endpoint)}
}

// Endpoint returns the content endpoint with the given ID, creating it if
// necessary. A new endpoint becomes the active tab.
func (n *Network) Endpoint(id string) *Endpoint {
	n.mu.Lock()
	defer n.mu.Unlock()
	if e, ok := n.peers[id]; ok {
		return e
	}
	e := n.newEndpoint(id)
	n.tabs = append(n.tabs, id)
	n.active = id
	return e
}

// Host returns the extension endpoint with the given ID, creating it if
// there is none. Ports opened with Connect attach to the host. Closing the
// host disconnects them; a later Host call models a reloaded extension.
func (n *Network) Host(id string) *Endpoint {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.host != nil && n.host.id == id {
		return n.host
	}
	e := n.newEndpoint(id)
	n.host = e
	return e
}

// newEndpoint must be called with n.mu held.
func (n *Network) newEndpoint(id string) *Endpoint {
	e := &Endpoint{
		id:        id,
		network:   n,
		listeners: &transport.Listeners[[]byte]{},
		inbound:   make(map[*port]struct{}),
	}
	n.peers[id] = e
	return e
}

// Activate makes the tab with the given ID active.
func (n *Network) Activate(id string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !slices.Contains(n.tabs, id) {
		return fmt.Errorf("%w: %s", transport.ErrUnknownPeer, id)
	}
	n.active = id
	return nil
}

// ActiveTab returns the active tab.
func (n *Network) ActiveTab(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.active == "" {
		return "", transport.ErrNoActiveTab
	}
	return n.active, nil
}

// Tabs returns all content endpoints in creation order.
func (n *Network) Tabs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.tabs), nil
}

func (n *Network) lookup(id string) (*Endpoint, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	e, ok := n.peers[id]
	return e, ok
}

func (n *Network) currentHost() *Endpoint {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.host
}

func (n *Network) remove(e *Endpoint) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.peers[e.id] == e {
		delete(n.peers, e.id)
	}
	if n.host == e {
		n.host = nil
	}
	if i := slices.Index(n.tabs, e.id); i >= 0 {
		n.tabs = slices.Delete(n.tabs, i, i+1)
		if n.active == e.id {
			n.active = ""
			if len(n.tabs) > 0 {
				n.active = n.tabs[len(n.tabs)-1]
			}
		}
	}
}

// Endpoint is one peer of a Network. It implements transport.Runtime.
type Endpoint struct {
	id        string
	network   *Network
	listeners *transport.Listeners[[]byte]

	mu      sync.Mutex
	closed  bool
	inbound map[*port]struct{}
}

var _ transport.Runtime = (*Endpoint)(nil)

// ID returns the endpoint ID.
func (e *Endpoint) ID() string {
	return e.id
}

// Send delivers data synchronously to the listeners of peer to.
func (e *Endpoint) Send(ctx context.Context, to string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.isClosed() {
		return transport.ErrClosed
	}
	peer, ok := e.network.lookup(to)
	if !ok || peer.isClosed() {
		return fmt.Errorf("%w: %s", transport.ErrUnknownPeer, to)
	}
	peer.listeners.Emit(bytes.Clone(data))
	return nil
}

// Listen registers fn for messages sent to this endpoint.
func (e *Endpoint) Listen(fn func(data []byte)) (remove func()) {
	return e.listeners.Add(fn)
}

// Listeners returns the number of registered listeners.
func (e *Endpoint) Listeners() int {
	return e.listeners.Len()
}

// Connect opens a port to the network host. Without a live host the
// returned port is already done.
func (e *Endpoint) Connect(ctx context.Context, name string) (transport.Port, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.isClosed() {
		return nil, transport.ErrClosed
	}
	p := &port{name: name, done: make(chan struct{})}
	host := e.network.currentHost()
	if host == nil || !host.attach(p) {
		p.Close()
	}
	return p, nil
}

// Connections returns the number of open ports attached to this endpoint.
func (e *Endpoint) Connections() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.inbound)
}

// Close removes the endpoint from the network and disconnects every port
// attached to it.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	ports := make([]*port, 0, len(e.inbound))
	for p := range e.inbound {
		ports = append(ports, p)
	}
	e.inbound = nil
	e.mu.Unlock()

	e.listeners.Clear()
	e.network.remove(e)
	for _, p := range ports {
		p.Close()
	}
	return nil
}

func (e *Endpoint) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func (e *Endpoint) attach(p *port) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}
	e.inbound[p] = struct{}{}
	p.onClose = func() {
		e.mu.Lock()
		delete(e.inbound, p)
		e.mu.Unlock()
	}
	return true
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
