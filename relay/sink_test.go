package relay

import (
	"context"
	"testing"

	"github.com/fxsml/devbridge/message"
	"github.com/fxsml/devbridge/stream"
	"github.com/fxsml/devbridge/transport"
	"github.com/fxsml/devbridge/transport/memory"
	"github.com/google/go-cmp/cmp"
)

func TestRepostWindowMessage(t *testing.T) {
	ctx := context.Background()
	window := memory.NewWindow("https://app.example")
	frame := window.Frame("https://ads.example")

	var got []transport.Event
	frame.Listen(func(e transport.Event) { got = append(got, e) })

	envs := []message.Envelope{message.NewExtensionShowing(true), message.NewExtensionShowing(false)}
	sub := RepostWindowMessage(ctx, window, stream.FromSlice(envs), SinkConfig{})
	<-sub.Done()

	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
	for i, e := range got {
		if e.Origin != "https://app.example" {
			t.Errorf("origin = %q", e.Origin)
		}
		decoded, err := message.DefaultCodec.Decode(e.Data)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(envs[i], decoded); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestRepostRuntimeMessage(t *testing.T) {
	ctx := context.Background()
	n := memory.NewNetwork()
	ext := n.Host("ext")
	tab := n.Endpoint("tab")

	var got []string
	ext.Listen(func(data []byte) { got = append(got, string(data)) })

	env := message.NewUpdateState(map[string]any{"doc": "x"})
	sub := RepostRuntimeMessage(ctx, tab, "ext", stream.FromValues(env), SinkConfig{})
	<-sub.Done()

	if len(got) != 1 || got[0] != string(encode(t, env)) {
		t.Errorf("got %v", got)
	}
}

func TestRepostRuntimeMessage_DeliveryFailureIsWarning(t *testing.T) {
	ctx := context.Background()
	n := memory.NewNetwork()
	tab := n.Endpoint("tab")
	logger := &recordLogger{}

	envs := []message.Envelope{message.NewUpdateState(nil), message.NewUpdateState(nil)}
	sub := RepostRuntimeMessage(ctx, tab, "missing", stream.FromSlice(envs), SinkConfig{Logger: logger})
	<-sub.Done()

	if err := sub.Err(); err != nil {
		t.Fatalf("subscription ended with %v", err)
	}
	want := []string{"WARN Could not deliver runtime message", "WARN Could not deliver runtime message"}
	if diff := cmp.Diff(want, logger.messages()); diff != "" {
		t.Errorf("log mismatch (-want +got):\n%s", diff)
	}
}
