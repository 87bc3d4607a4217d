package memory

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"

	"github.com/fxsml/devbridge/transport"
)

// Window is an in-process transport.Bus. Frames created with Frame share
// the same bus and differ in origin, like an embedded iframe.
//
// Delivery is synchronous: Post returns after every matching listener ran.
type Window struct {
	origin string
	hub    *windowHub
	own    *transport.Listeners[transport.Event]
	closed atomic.Bool
}

type windowHub struct {
	mu     sync.RWMutex
	frames []*Window
}

var _ transport.Bus = (*Window)(nil)

// NewWindow creates a window whose top frame has the given origin.
func NewWindow(origin string) *Window {
	hub := &windowHub{}
	return hub.attach(origin)
}

func (h *windowHub) attach(origin string) *Window {
	w := &Window{origin: origin, hub: h, own: &transport.Listeners[transport.Event]{}}
	h.mu.Lock()
	h.frames = append(h.frames, w)
	h.mu.Unlock()
	return w
}

// Frame attaches another frame with its own origin to the same window.
func (w *Window) Frame(origin string) *Window {
	return w.hub.attach(origin)
}

// Origin returns the origin of this frame.
func (w *Window) Origin() string {
	return w.origin
}

// Post delivers data to the listeners of every frame matching
// targetOrigin. Each listener receives its own copy of data.
func (w *Window) Post(ctx context.Context, data []byte, targetOrigin string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if w.closed.Load() {
		return transport.ErrClosed
	}

	w.hub.mu.RLock()
	frames := make([]*Window, len(w.hub.frames))
	copy(frames, w.hub.frames)
	w.hub.mu.RUnlock()

	for _, f := range frames {
		if f.closed.Load() {
			continue
		}
		if targetOrigin != transport.AnyOrigin && targetOrigin != f.origin {
			continue
		}
		f.own.Emit(transport.Event{Origin: w.origin, Data: bytes.Clone(data)})
	}
	return nil
}

// Listen registers fn for events posted by any frame of the window.
func (w *Window) Listen(fn func(transport.Event)) (remove func()) {
	return w.own.Add(fn)
}

// Listeners returns the number of registered listeners of this frame.
func (w *Window) Listeners() int {
	return w.own.Len()
}

// Close detaches the frame and drops its listeners.
func (w *Window) Close() error {
	if w.closed.Swap(true) {
		return nil
	}
	w.own.Clear()
	w.hub.mu.Lock()
	for i, f := range w.hub.frames {
		if f == w {
			w.hub.frames = append(w.hub.frames[:i], w.hub.frames[i+1:]...)
			break
		}
	}
	w.hub.mu.Unlock()
	return nil
}
