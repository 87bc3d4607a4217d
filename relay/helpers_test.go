package relay

import (
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/fxsml/devbridge/message"
)

var discard = slog.New(slog.DiscardHandler)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func encode(t *testing.T, e message.Envelope) []byte {
	t.Helper()
	data, err := message.DefaultCodec.Encode(e)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

type recordLogger struct {
	mu   sync.Mutex
	msgs []string
}

func (l *recordLogger) log(level, msg string) {
	l.mu.Lock()
	l.msgs = append(l.msgs, fmt.Sprintf("%s %s", level, msg))
	l.mu.Unlock()
}

func (l *recordLogger) Debug(msg string, _ ...any) { l.log("DEBUG", msg) }
func (l *recordLogger) Info(msg string, _ ...any)  { l.log("INFO", msg) }
func (l *recordLogger) Warn(msg string, _ ...any)  { l.log("WARN", msg) }
func (l *recordLogger) Error(msg string, _ ...any) { l.log("ERROR", msg) }

func (l *recordLogger) messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.msgs...)
}

// fakeClock fires timers only when advanced.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	waiters []fakeWaiter
	waits   []time.Duration
}

type fakeWaiter struct {
	at time.Time
	ch chan time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan time.Time, 1)
	c.waiters = append(c.waiters, fakeWaiter{at: c.now.Add(d), ch: ch})
	c.waits = append(c.waits, d)
	return ch
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	pending := c.waiters[:0]
	for _, w := range c.waiters {
		if w.at.After(c.now) {
			pending = append(pending, w)
			continue
		}
		w.ch <- c.now
	}
	c.waiters = pending
}

func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

func (c *fakeClock) requested() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.waits...)
}

func (c *fakeClock) waitForTimer(t *testing.T) {
	t.Helper()
	waitFor(t, "pending timer", func() bool { return c.pending() > 0 })
}
