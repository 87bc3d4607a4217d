package relay

import (
	"context"
	"errors"
	"testing"

	"github.com/fxsml/devbridge/message"
	"github.com/fxsml/devbridge/stream"
	"github.com/fxsml/devbridge/transport"
	"github.com/fxsml/devbridge/transport/memory"
	"github.com/google/go-cmp/cmp"
)

func TestFromWindowMessages_OriginFiltering(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	window := memory.NewWindow("https://app.example")
	foreign := window.Frame("https://ads.example")

	var got []message.Envelope
	stream.ForEach(ctx, FromWindowMessages(window, SourceConfig{}), func(e message.Envelope) {
		got = append(got, e)
	})

	same := message.NewUpdateState(map[string]any{"n": "same"})
	other := message.NewUpdateState(map[string]any{"n": "other"})
	if err := window.Post(ctx, encode(t, same), transport.AnyOrigin); err != nil {
		t.Fatal(err)
	}
	if err := foreign.Post(ctx, encode(t, other), transport.AnyOrigin); err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]message.Envelope{same}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestFromWindowMessages_DropsMalformed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	window := memory.NewWindow("o")
	var decodeErrs []error
	var got []message.Envelope
	stream.ForEach(ctx, FromWindowMessages(window, SourceConfig{
		DecodeErrorHandler: func(_ []byte, err error) { decodeErrs = append(decodeErrs, err) },
	}), func(e message.Envelope) { got = append(got, e) })

	for _, data := range []string{`not json`, `42`, `{"payload":true}`} {
		_ = window.Post(ctx, []byte(data), transport.AnyOrigin)
	}

	if len(got) != 0 {
		t.Errorf("got %d envelopes, want 0", len(got))
	}
	if len(decodeErrs) != 3 {
		t.Fatalf("got %d decode errors, want 3", len(decodeErrs))
	}
	for _, err := range decodeErrs {
		if !errors.Is(err, message.ErrMalformed) {
			t.Errorf("got %v, want ErrMalformed", err)
		}
	}
}

func TestFromWindowMessages_CancelRemovesListener(t *testing.T) {
	window := memory.NewWindow("o")
	ctx, cancel := context.WithCancel(context.Background())

	sub := stream.ForEach(ctx, FromWindowMessages(window, SourceConfig{}), func(message.Envelope) {})
	if window.Listeners() != 1 {
		t.Fatalf("listeners = %d, want 1", window.Listeners())
	}
	cancel()
	<-sub.Done()
	if window.Listeners() != 0 {
		t.Errorf("listeners = %d after cancel, want 0", window.Listeners())
	}
}

func TestFromRuntimeMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n := memory.NewNetwork()
	ext := n.Host("ext")
	tab := n.Endpoint("tab")

	var got []message.Envelope
	sub := stream.ForEach(ctx, FromRuntimeMessages(tab, SourceConfig{}), func(e message.Envelope) {
		got = append(got, e)
	})

	want := message.NewExtensionShowing(true)
	_ = ext.Send(ctx, "tab", []byte(`garbage`))
	_ = ext.Send(ctx, "tab", encode(t, want))

	if diff := cmp.Diff([]message.Envelope{want}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	sub.Cancel()
	if tab.Listeners() != 0 {
		t.Errorf("listeners = %d after cancel, want 0", tab.Listeners())
	}
}
