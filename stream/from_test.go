package stream

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"
)

func TestFromSlice(t *testing.T) {
	cases := []struct {
		name   string
		input  []int
		expect []int
	}{
		{"empty slice", []int{}, nil},
		{"single element", []int{42}, []int{42}},
		{"multiple elements", []int{1, 2, 3}, []int{1, 2, 3}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := ToSlice(FromSlice(c.input))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, c.expect) {
				t.Errorf("expected %v, got %v", c.expect, got)
			}
		})
	}
}

func TestFromSlice_StopsOnCancel(t *testing.T) {
	var got []int
	var tb Talkback
	FromValues(1, 2, 3)(SinkFuncs[int]{
		OnStart: func(t Talkback) { tb = t },
		OnNext: func(v int) {
			got = append(got, v)
			tb.Cancel()
		},
		OnEnd: func(error) { t.Error("unexpected end after cancel") },
	})
	if !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("expected [1], got %v", got)
	}
}

func TestFromChan(t *testing.T) {
	ch := make(chan int)
	go func() {
		for i := range 3 {
			ch <- i
		}
		close(ch)
	}()

	got, err := ToSlice(FromChan(context.Background(), ch))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []int{0, 1, 2}) {
		t.Errorf("expected [0 1 2], got %v", got)
	}
}

func TestFromChan_ContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan int)
	cancel()

	_, err := ToSlice(FromChan(ctx, ch))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

type listeners struct {
	mu  sync.Mutex
	fns map[int]func(string)
	id  int
}

func (l *listeners) add(fn func(string)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]func(string))
	}
	id := l.id
	l.id++
	l.fns[id] = fn
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.fns, id)
	}
}

func (l *listeners) emit(v string) {
	l.mu.Lock()
	fns := make([]func(string), 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.Unlock()
	for _, fn := range fns {
		fn(v)
	}
}

func (l *listeners) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.fns)
}

func TestFromListener(t *testing.T) {
	var l listeners
	src := FromListener(func(emit func(string)) func() {
		return l.add(emit)
	})

	var mu sync.Mutex
	var got []string
	sub := ForEach(context.Background(), src, func(v string) {
		mu.Lock()
		got = append(got, v)
		mu.Unlock()
	})

	if l.count() != 1 {
		t.Fatalf("expected listener to be registered, got %d", l.count())
	}

	l.emit("a")
	l.emit("b")
	sub.Cancel()
	l.emit("c")

	if l.count() != 0 {
		t.Errorf("expected listener to be removed on cancel, got %d", l.count())
	}
	mu.Lock()
	defer mu.Unlock()
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("expected [a b], got %v", got)
	}

	select {
	case <-sub.Done():
	case <-time.After(100 * time.Millisecond):
		t.Fatal("subscription not done after cancel")
	}
	if !errors.Is(sub.Err(), ErrCanceled) {
		t.Errorf("expected ErrCanceled, got %v", sub.Err())
	}
}

func TestFromListener_CancelDuringHandshake(t *testing.T) {
	registered := false
	src := FromListener(func(emit func(int)) func() {
		registered = true
		return func() {}
	})

	src(SinkFuncs[int]{OnStart: func(tb Talkback) { tb.Cancel() }})
	if registered {
		t.Error("listener must not be registered after cancel during handshake")
	}
}
