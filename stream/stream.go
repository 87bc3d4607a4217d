package stream

import "errors"

// ErrCanceled is the end error of a subscription that was cancelled by its
// consumer.
var ErrCanceled = errors.New("stream: canceled")

// Signal identifies a message kind of the push protocol.
type Signal int

const (
	// Handshake starts a subscription and carries the Talkback.
	Handshake Signal = iota
	// Data carries one value.
	Data
	// End terminates a subscription.
	End
)

func (s Signal) String() string {
	switch s {
	case Handshake:
		return "handshake"
	case Data:
		return "data"
	case End:
		return "end"
	default:
		return "unknown"
	}
}

// Talkback is the consumer-to-producer control channel.
type Talkback interface {
	// Request acknowledges delivered data.
	Request()
	// Cancel ends the subscription. No data is delivered afterwards.
	Cancel()
}

// Sink consumes the signals of a single subscription.
type Sink[T any] interface {
	Start(tb Talkback)
	Next(v T)
	End(err error)
}

// Source starts delivering to sink when called.
type Source[T any] func(sink Sink[T])

// Operator transforms one source into another of the same type.
type Operator[T any] func(Source[T]) Source[T]

// Pipe applies ops to src from left to right.
func Pipe[T any](src Source[T], ops ...Operator[T]) Source[T] {
	for _, op := range ops {
		src = op(src)
	}
	return src
}

// TalkbackFuncs implements Talkback with optional callbacks.
type TalkbackFuncs struct {
	OnRequest func()
	OnCancel  func()
}

// Request calls OnRequest if set.
func (t TalkbackFuncs) Request() {
	if t.OnRequest != nil {
		t.OnRequest()
	}
}

// Cancel calls OnCancel if set.
func (t TalkbackFuncs) Cancel() {
	if t.OnCancel != nil {
		t.OnCancel()
	}
}

// SinkFuncs implements Sink with optional callbacks.
type SinkFuncs[T any] struct {
	OnStart func(tb Talkback)
	OnNext  func(v T)
	OnEnd   func(err error)
}

// Start calls OnStart if set.
func (s SinkFuncs[T]) Start(tb Talkback) {
	if s.OnStart != nil {
		s.OnStart(tb)
	}
}

// Next calls OnNext if set.
func (s SinkFuncs[T]) Next(v T) {
	if s.OnNext != nil {
		s.OnNext(v)
	}
}

// End calls OnEnd if set.
func (s SinkFuncs[T]) End(err error) {
	if s.OnEnd != nil {
		s.OnEnd(err)
	}
}

// relay forwards handshake and end to sink and lets the caller decide
// what happens to data. The upstream talkback is kept for acknowledging
// dropped values.
type relay[In, Out any] struct {
	sink Sink[Out]
	tb   Talkback
	next func(r *relay[In, Out], v In)
}

func (r *relay[In, Out]) Start(tb Talkback) {
	r.tb = tb
	r.sink.Start(tb)
}

func (r *relay[In, Out]) Next(v In) {
	r.next(r, v)
}

func (r *relay[In, Out]) End(err error) {
	r.sink.End(err)
}

func (r *relay[In, Out]) ack() {
	if r.tb != nil {
		r.tb.Request()
	}
}
