package websocket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fxsml/devbridge/transport"
)

func newHub(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub(HubConfig{})
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/"
}

func dial(t *testing.T, url, id string) *Client {
	t.Helper()
	c, err := Dial(context.Background(), Config{URL: url, ID: id})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func receive(t *testing.T, ch <-chan []byte) string {
	t.Helper()
	select {
	case data := <-ch:
		return string(data)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for data")
		return ""
	}
}

func TestHub_MessagesBothWays(t *testing.T) {
	ctx := context.Background()
	hub, url := newHub(t)
	client := dial(t, url, "tab-1")

	hubGot := make(chan []byte, 1)
	hub.Listen(func(data []byte) { hubGot <- data })
	clientGot := make(chan []byte, 1)
	client.Listen(func(data []byte) { clientGot <- data })

	waitFor(t, "tab attached", func() bool {
		tabs, _ := hub.Tabs(ctx)
		return len(tabs) == 1
	})

	if err := client.Send(ctx, DefaultHubID, []byte("to hub")); err != nil {
		t.Fatal(err)
	}
	if got := receive(t, hubGot); got != "to hub" {
		t.Errorf("hub got %q", got)
	}

	if err := hub.Send(ctx, "tab-1", []byte("to tab")); err != nil {
		t.Fatal(err)
	}
	if got := receive(t, clientGot); got != "to tab" {
		t.Errorf("client got %q", got)
	}
}

func TestHub_UnknownPeers(t *testing.T) {
	ctx := context.Background()
	hub, url := newHub(t)
	client := dial(t, url, "tab-1")

	if err := hub.Send(ctx, "tab-9", nil); !errors.Is(err, transport.ErrUnknownPeer) {
		t.Errorf("hub send: got %v, want ErrUnknownPeer", err)
	}
	if err := client.Send(ctx, "someone-else", nil); !errors.Is(err, transport.ErrUnknownPeer) {
		t.Errorf("client send: got %v, want ErrUnknownPeer", err)
	}
}

func TestHub_Tabs(t *testing.T) {
	ctx := context.Background()
	hub, url := newHub(t)

	if _, err := hub.ActiveTab(ctx); !errors.Is(err, transport.ErrNoActiveTab) {
		t.Fatalf("got %v, want ErrNoActiveTab", err)
	}

	a := dial(t, url, "a")
	waitFor(t, "a attached", func() bool { id, _ := hub.ActiveTab(ctx); return id == "a" })
	dial(t, url, "b")
	waitFor(t, "b attached", func() bool { id, _ := hub.ActiveTab(ctx); return id == "b" })

	if err := hub.Activate("a"); err != nil {
		t.Fatal(err)
	}
	if id, _ := hub.ActiveTab(ctx); id != "a" {
		t.Errorf("active = %q, want a", id)
	}

	a.Close()
	waitFor(t, "a detached", func() bool {
		tabs, _ := hub.Tabs(ctx)
		return len(tabs) == 1 && tabs[0] == "b"
	})
	if id, _ := hub.ActiveTab(ctx); id != "b" {
		t.Errorf("active after detach = %q, want b", id)
	}
}

func TestClient_PortDisconnectsWhenHubCloses(t *testing.T) {
	ctx := context.Background()
	hub, url := newHub(t)
	client := dial(t, url, "tab-1")

	p, err := client.Connect(ctx, "reconnect-port")
	if err != nil {
		t.Fatal(err)
	}
	if p.Name() != "reconnect-port" {
		t.Errorf("name = %q", p.Name())
	}
	waitFor(t, "port registered", func() bool { return hub.Connections() == 1 })

	hub.Close()
	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("port not disconnected")
	}

	if _, err := client.Connect(ctx, "reconnect-port"); err == nil {
		t.Fatal("connect to closed hub should fail")
	}
}

func TestClient_RedialsAfterHubRestart(t *testing.T) {
	ctx := context.Background()
	var current atomic.Pointer[Hub]
	current.Store(NewHub(HubConfig{}))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		current.Load().ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/"

	client := dial(t, url, "tab-1")
	current.Load().Close()

	// A fresh hub on the same address models an extension reload.
	hub2 := NewHub(HubConfig{})
	t.Cleanup(func() { hub2.Close() })
	current.Store(hub2)

	got := make(chan []byte, 1)
	hub2.Listen(func(data []byte) { got <- data })

	waitFor(t, "message socket lost", func() bool {
		client.mu.Lock()
		defer client.mu.Unlock()
		select {
		case <-client.conn.done:
			return true
		default:
			return false
		}
	})

	if _, err := client.Connect(ctx, "reconnect-port"); err != nil {
		t.Fatal(err)
	}
	if err := client.Send(ctx, DefaultHubID, []byte("again")); err != nil {
		t.Fatal(err)
	}
	if s := receive(t, got); s != "again" {
		t.Errorf("got %q", s)
	}
}

func TestDial_RequiresConfig(t *testing.T) {
	if _, err := Dial(context.Background(), Config{}); err == nil {
		t.Fatal("expected error")
	}
}
