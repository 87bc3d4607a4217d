package message_test

import (
	"testing"

	"github.com/fxsml/devbridge/message"
)

func TestNew_Tagging(t *testing.T) {
	t.Parallel()

	envelopes := []message.Envelope{
		message.NewInit(message.Init{}),
		message.NewUpdateState(nil),
		message.NewExtensionShowing(true),
	}
	wantTypes := []message.Type{message.TypeInit, message.TypeUpdateState, message.TypeExtensionShowing}

	for i, e := range envelopes {
		if e.Source != message.ExtensionSource {
			t.Errorf("%s: source = %q", e.Type, e.Source)
		}
		if e.Type != wantTypes[i] {
			t.Errorf("type = %q, want %q", e.Type, wantTypes[i])
		}
		if !message.FromExtension(e) {
			t.Errorf("%s: FromExtension = false", e.Type)
		}
	}
}

func TestMatchers(t *testing.T) {
	t.Parallel()

	initEnv := message.NewInit(message.Init{})
	foreign := message.Envelope{Source: "someone-else", Type: message.TypeInit}

	if message.FromExtension(foreign) {
		t.Error("foreign envelope matched FromExtension")
	}

	match := message.OfType(message.TypeInit, message.TypeUpdateState)
	tests := []struct {
		env  message.Envelope
		want bool
	}{
		{initEnv, true},
		{message.NewUpdateState(nil), true},
		{message.NewExtensionShowing(false), false},
		{foreign, true},
	}
	for _, tt := range tests {
		if got := match(tt.env); got != tt.want {
			t.Errorf("OfType(%s) = %v, want %v", tt.env.Type, got, tt.want)
		}
	}

	if message.OfType()(initEnv) {
		t.Error("empty OfType matched")
	}
	if got := message.Key(initEnv); got != "init" {
		t.Errorf("Key = %q", got)
	}
}

func TestSession(t *testing.T) {
	t.Parallel()

	tests := []struct {
		env  message.Envelope
		want string
	}{
		{message.NewInit(message.Init{Session: "s1"}), "s1"},
		{message.NewInit(message.Init{}), ""},
		{message.NewUpdateState(nil), ""},
		{message.NewExtensionShowing(true), ""},
	}
	for _, tt := range tests {
		if got := message.Session(tt.env); got != tt.want {
			t.Errorf("Session(%s) = %q, want %q", tt.env.Type, got, tt.want)
		}
	}
}
