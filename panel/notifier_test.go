package panel_test

import (
	"context"
	"sync"
	"testing"

	"github.com/fxsml/devbridge/message"
	"github.com/fxsml/devbridge/panel"
	"github.com/fxsml/devbridge/transport/memory"
	"github.com/google/go-cmp/cmp"
)

type inbox struct {
	mu   sync.Mutex
	envs []message.Envelope
}

func listen(e *memory.Endpoint) *inbox {
	in := &inbox{}
	e.Listen(func(data []byte) {
		env, err := message.DefaultCodec.Decode(data)
		if err != nil {
			return
		}
		in.mu.Lock()
		in.envs = append(in.envs, env)
		in.mu.Unlock()
	})
	return in
}

func (in *inbox) all() []message.Envelope {
	in.mu.Lock()
	defer in.mu.Unlock()
	return append([]message.Envelope(nil), in.envs...)
}

func TestNotifier(t *testing.T) {
	ctx := context.Background()
	n := memory.NewNetwork()
	ext := n.Host("ext")
	tab1 := listen(n.Endpoint("tab-1"))
	tab2 := listen(n.Endpoint("tab-2"))

	notifier := &panel.Notifier{Runtime: ext, Tabs: n, Logger: discard}
	notifier.Shown(ctx)
	if err := n.Activate("tab-1"); err != nil {
		t.Fatal(err)
	}
	notifier.Hidden(ctx)
	notifier.Broadcast(ctx, message.NewUpdateState(nil))

	want1 := []message.Envelope{message.NewExtensionShowing(false), message.NewUpdateState(nil)}
	if diff := cmp.Diff(want1, tab1.all()); diff != "" {
		t.Errorf("tab-1 mismatch (-want +got):\n%s", diff)
	}
	want2 := []message.Envelope{message.NewExtensionShowing(true), message.NewUpdateState(nil)}
	if diff := cmp.Diff(want2, tab2.all()); diff != "" {
		t.Errorf("tab-2 mismatch (-want +got):\n%s", diff)
	}
}

func TestNotifier_FailuresAreWarnings(t *testing.T) {
	ctx := context.Background()
	n := memory.NewNetwork()
	ext := n.Host("ext")
	logger := &recordLogger{}
	notifier := &panel.Notifier{Runtime: ext, Tabs: n, Logger: logger}

	notifier.Shown(ctx)

	n.Endpoint("tab-1")
	ext.Close()
	notifier.Hidden(ctx)

	want := []string{
		"WARN Could not notify tabs",
		"WARN Could not notify tab",
	}
	if diff := cmp.Diff(want, logger.messages()); diff != "" {
		t.Errorf("log mismatch (-want +got):\n%s", diff)
	}
}
