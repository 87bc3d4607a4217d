package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/fxsml/devbridge/transport"
)

// ErrReconnectExhausted is returned by Reconnector.Run when MaxAttempts
// consecutive connection attempts failed.
var ErrReconnectExhausted = errors.New("relay: reconnect attempts exhausted")

var errPortClosed = errors.New("relay: port closed on connect")

// ReconnectState is the state of a Reconnector.
type ReconnectState int32

const (
	// Idle is the state before Run and after it returned.
	Idle ReconnectState = iota
	// Connected means a port is open.
	Connected
	// DisconnectedPendingRetry means a retry is scheduled.
	DisconnectedPendingRetry
)

func (s ReconnectState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connected:
		return "connected"
	case DisconnectedPendingRetry:
		return "disconnected-pending-retry"
	default:
		return "unknown"
	}
}

// ReconnectConfig configures a Reconnector.
type ReconnectConfig struct {
	// Name is the port name (default: "reconnect-port").
	Name string
	// Backoff produces the wait before each retry
	// (default: ConstantBackoff(time.Second, 0)).
	Backoff BackoffFunc
	// MaxAttempts bounds consecutive failed connection attempts.
	// Zero or less retries forever.
	MaxAttempts int
	// Clock provides timers (default: RealClock()).
	Clock Clock
	// OnConnect is called on the run goroutine after every successful
	// connection, before the state changes to Connected.
	OnConnect func(ctx context.Context, port transport.Port)
	// Logger is used for logging (default: slog.Default()).
	Logger Logger
}

func (c ReconnectConfig) defaults() ReconnectConfig {
	if c.Name == "" {
		c.Name = "reconnect-port"
	}
	if c.Backoff == nil {
		c.Backoff = ConstantBackoff(time.Second, 0)
	}
	if c.Clock == nil {
		c.Clock = RealClock()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Reconnector keeps a named port to the extension open. When the port
// disconnects, or a connection attempt fails, it waits for the backoff and
// tries again. One goroutine drives the loop, so at most one retry is
// pending at any time and a successful connection never races an older
// retry.
type Reconnector struct {
	rt     transport.Runtime
	config ReconnectConfig

	state    atomic.Int32
	connects atomic.Int64
	running  atomic.Bool
}

// NewReconnector creates a Reconnector for rt.
func NewReconnector(rt transport.Runtime, config ReconnectConfig) *Reconnector {
	return &Reconnector{rt: rt, config: config.defaults()}
}

// State returns the current state.
func (r *Reconnector) State() ReconnectState {
	return ReconnectState(r.state.Load())
}

// Connects returns the number of successful connections so far.
func (r *Reconnector) Connects() int {
	return int(r.connects.Load())
}

// Run connects and keeps reconnecting until ctx is done. It returns
// ctx.Err(), or ErrReconnectExhausted when MaxAttempts is set and reached.
// Failures are logged as warnings and never end the loop otherwise.
func (r *Reconnector) Run(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return fmt.Errorf("relay: reconnector already running")
	}
	defer r.running.Store(false)
	defer r.state.Store(int32(Idle))

	failures := 0
	for {
		port, err := r.rt.Connect(ctx, r.config.Name)
		if err == nil && isDone(port.Done()) {
			err = errPortClosed
		}
		if ctx.Err() != nil {
			if err == nil {
				port.Close()
			}
			return ctx.Err()
		}

		if err != nil {
			failures++
			r.config.Logger.Warn("Could not connect to extension",
				"component", "reconnect",
				"port", r.config.Name,
				"attempt", failures,
				"error", err)
			if r.config.MaxAttempts > 0 && failures >= r.config.MaxAttempts {
				return fmt.Errorf("%w: %d attempts", ErrReconnectExhausted, failures)
			}
		} else {
			failures = 0
			if r.config.OnConnect != nil {
				r.config.OnConnect(ctx, port)
			}
			r.connects.Add(1)
			r.state.Store(int32(Connected))
			r.config.Logger.Info("Connected to extension",
				"component", "reconnect",
				"port", r.config.Name)

			select {
			case <-ctx.Done():
				port.Close()
				return ctx.Err()
			case <-port.Done():
			}
			r.config.Logger.Warn("Disconnected from extension",
				"component", "reconnect",
				"port", r.config.Name)
		}

		r.state.Store(int32(DisconnectedPendingRetry))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.config.Clock.After(r.config.Backoff(max(failures, 1))):
		}
	}
}

func isDone(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
