package stream

import (
	"context"
	"sync"
	"sync/atomic"
)

// FromSlice delivers each element of slice synchronously, then ends.
func FromSlice[T any](
	slice []T,
) Source[T] {
	return func(sink Sink[T]) {
		var canceled atomic.Bool
		sink.Start(TalkbackFuncs{OnCancel: func() { canceled.Store(true) }})
		for _, v := range slice {
			if canceled.Load() {
				return
			}
			sink.Next(v)
		}
		if !canceled.Load() {
			sink.End(nil)
		}
	}
}

// FromValues delivers each value synchronously, then ends.
func FromValues[T any](
	values ...T,
) Source[T] {
	return FromSlice(values)
}

// FromChan delivers values received from ch on a new goroutine.
// The source ends with nil when ch is closed and with ctx.Err() when
// ctx is done first.
func FromChan[T any](
	ctx context.Context,
	ch <-chan T,
) Source[T] {
	return func(sink Sink[T]) {
		stop := make(chan struct{})
		var once sync.Once
		sink.Start(TalkbackFuncs{OnCancel: func() { once.Do(func() { close(stop) }) }})

		go func() {
			for {
				select {
				case <-stop:
					return
				case <-ctx.Done():
					sink.End(ctx.Err())
					return
				case v, ok := <-ch:
					if !ok {
						sink.End(nil)
						return
					}
					select {
					case <-stop:
						return
					default:
					}
					sink.Next(v)
				}
			}
		}()
	}
}

// FromListener adapts a push-based event origin. register is called once
// the sink completed the handshake and must return a function that
// removes the listener again. The listener is removed on cancellation.
// The source never ends by itself.
func FromListener[T any](
	register func(emit func(T)) (remove func()),
) Source[T] {
	return func(sink Sink[T]) {
		var (
			mu       sync.Mutex
			canceled atomic.Bool
			remove   func()
		)

		sink.Start(TalkbackFuncs{OnCancel: func() {
			if canceled.Swap(true) {
				return
			}
			mu.Lock()
			r := remove
			remove = nil
			mu.Unlock()
			if r != nil {
				r()
			}
		}})
		if canceled.Load() {
			return
		}

		r := register(func(v T) {
			if !canceled.Load() {
				sink.Next(v)
			}
		})

		mu.Lock()
		if canceled.Load() {
			mu.Unlock()
			r()
			return
		}
		remove = r
		mu.Unlock()
	}
}
