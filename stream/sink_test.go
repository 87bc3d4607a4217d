package stream

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSubscribe_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	canceled := make(chan struct{})

	src := func(sink Sink[int]) {
		sink.Start(TalkbackFuncs{OnCancel: func() { close(canceled) }})
	}
	sub := Subscribe(ctx, Source[int](src), SinkFuncs[int]{})
	cancel()

	select {
	case <-canceled:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("context cancel did not reach the source")
	}
	<-sub.Done()
	if !errors.Is(sub.Err(), context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", sub.Err())
	}
}

func TestSubscribe_AcknowledgesEveryValue(t *testing.T) {
	requests := 0
	src := func(sink Sink[int]) {
		sink.Start(TalkbackFuncs{OnRequest: func() { requests++ }})
		sink.Next(1)
		sink.Next(2)
		sink.End(nil)
	}

	sub := ForEach(context.Background(), Source[int](src), func(int) {})
	<-sub.Done()

	// one after the handshake, one per value
	if requests != 3 {
		t.Errorf("expected 3 requests, got %d", requests)
	}
	if sub.Err() != nil {
		t.Errorf("expected nil error, got %v", sub.Err())
	}
}

func TestSubscribe_EndError(t *testing.T) {
	boom := errors.New("boom")
	src := func(sink Sink[int]) {
		sink.Start(TalkbackFuncs{})
		sink.End(boom)
	}

	var gotEnd error
	sub := Subscribe(context.Background(), Source[int](src), SinkFuncs[int]{
		OnEnd: func(err error) { gotEnd = err },
	})
	<-sub.Done()
	if !errors.Is(gotEnd, boom) || !errors.Is(sub.Err(), boom) {
		t.Errorf("expected boom, got %v / %v", gotEnd, sub.Err())
	}
}

func TestSubscribe_CancelFromTalkback(t *testing.T) {
	var l listeners
	src := FromListener(func(emit func(string)) func() { return l.add(emit) })

	var tb Talkback
	got := 0
	sub := Subscribe(context.Background(), src, SinkFuncs[string]{
		OnStart: func(t Talkback) { tb = t },
		OnNext: func(string) {
			got++
			tb.Cancel()
		},
	})

	l.emit("a")
	l.emit("b")

	if got != 1 {
		t.Errorf("expected 1 value before cancel, got %d", got)
	}
	select {
	case <-sub.Done():
	default:
		t.Fatal("cancel through talkback must finish the subscription")
	}
}

func TestSignal_String(t *testing.T) {
	for sig, want := range map[Signal]string{Handshake: "handshake", Data: "data", End: "end", Signal(9): "unknown"} {
		if sig.String() != want {
			t.Errorf("expected %q, got %q", want, sig.String())
		}
	}
}
