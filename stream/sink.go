package stream

import (
	"context"
	"sync"
)

// Subscription is the consumer side of a running source. It acknowledges
// every delivered value and is the cancellation handle for the source.
type Subscription struct {
	mu       sync.Mutex
	tb       Talkback
	canceled bool
	ended    bool
	err      error
	done     chan struct{}
	stop     func() bool
}

// Subscribe starts src and delivers its signals to fns. Cancelling ctx
// cancels the subscription.
func Subscribe[T any](
	ctx context.Context,
	src Source[T],
	fns SinkFuncs[T],
) *Subscription {
	s := &Subscription{done: make(chan struct{})}
	s.stop = context.AfterFunc(ctx, func() { s.cancel(ctx.Err()) })

	src(SinkFuncs[T]{
		OnStart: func(tb Talkback) {
			s.mu.Lock()
			s.tb = tb
			canceled := s.canceled
			s.mu.Unlock()
			if canceled {
				tb.Cancel()
				return
			}
			fns.Start(TalkbackFuncs{OnRequest: tb.Request, OnCancel: s.Cancel})
			tb.Request()
		},
		OnNext: func(v T) {
			s.mu.Lock()
			canceled, tb := s.canceled, s.tb
			s.mu.Unlock()
			if canceled {
				return
			}
			fns.Next(v)
			tb.Request()
		},
		OnEnd: func(err error) {
			s.mu.Lock()
			if s.canceled {
				s.mu.Unlock()
				return
			}
			s.mu.Unlock()
			fns.End(err)
			s.finish(err)
		},
	})
	return s
}

// ForEach calls handle for every value delivered by src.
func ForEach[T any](
	ctx context.Context,
	src Source[T],
	handle func(T),
) *Subscription {
	return Subscribe(ctx, src, SinkFuncs[T]{OnNext: handle})
}

// ToSlice collects all values of src into a slice.
// It blocks until src ends.
func ToSlice[T any](
	src Source[T],
) ([]T, error) {
	var (
		mu    sync.Mutex
		slice []T
	)
	sub := ForEach(context.Background(), src, func(v T) {
		mu.Lock()
		slice = append(slice, v)
		mu.Unlock()
	})
	<-sub.Done()
	mu.Lock()
	defer mu.Unlock()
	return slice, sub.Err()
}

// Cancel cancels the subscription. Done is closed and Err returns
// ErrCanceled. Cancel after the source ended has no effect.
func (s *Subscription) Cancel() {
	s.cancel(ErrCanceled)
}

// Done is closed when the source ended or the subscription was cancelled.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Err returns the end error. It is nil while the subscription runs and
// after a clean completion.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Subscription) cancel(err error) {
	s.mu.Lock()
	if s.canceled || s.ended {
		s.mu.Unlock()
		return
	}
	s.canceled = true
	tb := s.tb
	s.mu.Unlock()

	if tb != nil {
		tb.Cancel()
	}
	s.finish(err)
}

func (s *Subscription) finish(err error) {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	s.err = err
	s.mu.Unlock()

	s.stop()
	close(s.done)
}
