package transport

import (
	"maps"
	"slices"
	"sync"
)

// Listeners is a registry of callbacks shared by transport
// implementations. The zero value is ready to use.
type Listeners[T any] struct {
	mu  sync.RWMutex
	seq int
	fns map[int]func(T)
}

// Add registers fn and returns a function that removes it.
func (l *Listeners[T]) Add(fn func(T)) (remove func()) {
	l.mu.Lock()
	if l.fns == nil {
		l.fns = make(map[int]func(T))
	}
	l.seq++
	id := l.seq
	l.fns[id] = fn
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		delete(l.fns, id)
		l.mu.Unlock()
	}
}

// Emit calls every listener with v in registration order. Listeners run
// without the registry lock held and may add or remove listeners.
func (l *Listeners[T]) Emit(v T) {
	for _, fn := range l.snapshot() {
		fn(v)
	}
}

// Len returns the number of registered listeners.
func (l *Listeners[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.fns)
}

// Clear removes all listeners.
func (l *Listeners[T]) Clear() {
	l.mu.Lock()
	l.fns = nil
	l.mu.Unlock()
}

func (l *Listeners[T]) snapshot() []func(T) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]func(T), 0, len(l.fns))
	for _, id := range slices.Sorted(maps.Keys(l.fns)) {
		out = append(out, l.fns[id])
	}
	return out
}
