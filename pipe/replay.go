package pipe

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/fxsml/devbridge/stream"
)

// Pick selects how values of one type are retained for replay.
type Pick string

const (
	// PickAll retains every value of the type in arrival order.
	PickAll Pick = "all"
	// PickLatest retains only the most recent value of the type.
	PickLatest Pick = "latest"
)

// Policy binds a Pick to a value type as returned by ReplayConfig.Key.
type Policy struct {
	Type string
	Pick Pick
}

// ReplayConfig configures a Replay.
type ReplayConfig[T any] struct {
	// Policies lists the retained types. Values of other types are
	// delivered live but never replayed.
	Policies []Policy
	// Key returns the type of a value. Required.
	Key func(T) string
	// Identity optionally names the producer of a value. A PickAll value
	// with a non-empty identity replaces earlier stored values of the same
	// type and identity.
	Identity func(T) string
	// Logger is used for logging (default: slog.Default()).
	Logger Logger
}

// Replay multicasts an upstream source and replays retained values to
// every new subscriber before live values resume.
//
// Store order: PickAll entries are appended, or replace the entry of the
// same identity when ReplayConfig.Identity names one. A PickLatest entry replaces
// all earlier entries of its type and moves to the end of the store, so
// init(A), updateState(B), init(C), updateState(D) with init:all and
// updateState:latest replays A, C, D.
//
// Store updates with their fan-out, and subscription with its replay,
// happen under one lock: subscribers observe upstream arrival order and a
// new subscriber receives the whole replay before any later live value.
// Sinks may cancel from inside a delivery but must not subscribe to the
// same Replay or call its inspection methods from there.
//
// Cancelling the last subscriber does not cancel upstream; use Close.
type Replay[T any] struct {
	picks    map[string]Pick
	key      func(T) string
	identity func(T) string
	logger   Logger

	mu      sync.Mutex
	started bool
	done    bool
	err     error
	store   []T
	subs    []*replaySubscriber[T]

	upstream atomic.Pointer[talkbackRef]
}

type talkbackRef struct {
	tb stream.Talkback
}

type replaySubscriber[T any] struct {
	sink     stream.Sink[T]
	canceled atomic.Bool
}

// NewReplay creates a Replay from config. It returns ErrInvalidConfig
// without a Key and ErrUnknownPick if a policy names an unsupported pick.
func NewReplay[T any](config ReplayConfig[T]) (*Replay[T], error) {
	if config.Key == nil {
		return nil, fmt.Errorf("%w: replay requires a Key function", ErrInvalidConfig)
	}
	picks := make(map[string]Pick, len(config.Policies))
	for _, p := range config.Policies {
		switch p.Pick {
		case PickAll, PickLatest:
			picks[p.Type] = p.Pick
		default:
			return nil, fmt.Errorf("%w: %q for type %q", ErrUnknownPick, p.Pick, p.Type)
		}
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Replay[T]{
		picks:    picks,
		key:      config.Key,
		identity: config.Identity,
		logger:   logger,
	}, nil
}

// Replay subscribes to upstream immediately and returns the shared source
// for downstream subscribers. Returns ErrAlreadyStarted if called more
// than once.
func (r *Replay[T]) Replay(upstream stream.Source[T]) (stream.Source[T], error) {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return nil, ErrAlreadyStarted
	}
	r.started = true
	r.mu.Unlock()

	upstream(stream.SinkFuncs[T]{
		OnStart: func(tb stream.Talkback) {
			r.upstream.Store(&talkbackRef{tb: tb})
		},
		OnNext: r.next,
		OnEnd:  r.end,
	})
	return r.subscribe, nil
}

// Operator returns Replay as a stream.Operator. It panics if the replay
// was already started.
func (r *Replay[T]) Operator() stream.Operator[T] {
	return func(src stream.Source[T]) stream.Source[T] {
		shared, err := r.Replay(src)
		if err != nil {
			panic(err)
		}
		return shared
	}
}

// Store returns a copy of the retained values in replay order.
func (r *Replay[T]) Store() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, len(r.store))
	copy(out, r.store)
	return out
}

// Subscribers returns the number of attached, non-cancelled subscribers.
func (r *Replay[T]) Subscribers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.subs {
		if !s.canceled.Load() {
			n++
		}
	}
	return n
}

// Close cancels upstream and ends every subscriber. Subscribers attaching
// afterwards receive the replay followed by end.
func (r *Replay[T]) Close() {
	r.mu.Lock()
	if r.done {
		r.mu.Unlock()
		return
	}
	r.finish(nil)
	r.mu.Unlock()

	if ref := r.upstream.Load(); ref != nil {
		ref.tb.Cancel()
	}
}

func (r *Replay[T]) next(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return
	}

	typ := r.key(v)
	switch r.picks[typ] {
	case PickAll:
		id := r.identityOf(v)
		if id == "" {
			r.store = append(r.store, v)
			break
		}
		r.store = append(r.without(func(e T) bool {
			return r.key(e) == typ && r.identityOf(e) == id
		}), v)
	case PickLatest:
		r.store = append(r.without(func(e T) bool {
			return r.key(e) == typ
		}), v)
	}

	live := r.subs[:0:0]
	for _, s := range r.subs {
		if !s.canceled.Load() {
			live = append(live, s)
		}
	}
	r.subs = live

	for _, s := range live {
		if !s.canceled.Load() {
			s.sink.Next(v)
		}
	}
}

// without returns a copy of the store minus the entries matching drop.
func (r *Replay[T]) without(drop func(T) bool) []T {
	kept := r.store[:0:0]
	for _, e := range r.store {
		if !drop(e) {
			kept = append(kept, e)
		}
	}
	return kept
}

func (r *Replay[T]) identityOf(v T) string {
	if r.identity == nil {
		return ""
	}
	return r.identity(v)
}

func (r *Replay[T]) end(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return
	}
	r.finish(err)
}

// finish must be called with r.mu held.
func (r *Replay[T]) finish(err error) {
	r.done = true
	r.err = err
	subs := r.subs
	r.subs = nil
	for _, s := range subs {
		if !s.canceled.Load() {
			s.sink.End(err)
		}
	}
}

func (r *Replay[T]) request() {
	if ref := r.upstream.Load(); ref != nil {
		ref.tb.Request()
	}
}

func (r *Replay[T]) subscribe(sink stream.Sink[T]) {
	s := &replaySubscriber[T]{sink: sink}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.done {
		r.subs = append(r.subs, s)
	}
	sink.Start(stream.TalkbackFuncs{
		OnRequest: r.request,
		OnCancel:  func() { s.canceled.Store(true) },
	})

	replayed := 0
	for _, v := range r.store {
		if s.canceled.Load() {
			return
		}
		sink.Next(v)
		replayed++
	}
	r.logger.Debug("Replay subscriber attached",
		"component", "replay",
		"replayed", replayed,
		"done", r.done)

	if r.done && !s.canceled.Load() {
		sink.End(r.err)
	}
}
