package main

import (
	"testing"
	"time"
)

func TestReconnectConfig_Backoff(t *testing.T) {
	tests := []struct {
		name    string
		cfg     reconnectConfig
		want    []time.Duration
		wantErr bool
	}{
		{
			name: "constant",
			cfg:  reconnectConfig{Backoff: "constant", Delay: time.Second},
			want: []time.Duration{time.Second, time.Second, time.Second},
		},
		{
			name: "exponential",
			cfg:  reconnectConfig{Backoff: "exponential", Delay: time.Second, MaxDelay: 3 * time.Second},
			want: []time.Duration{time.Second, 2 * time.Second, 3 * time.Second},
		},
		{
			name:    "unknown",
			cfg:     reconnectConfig{Backoff: "fibonacci"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backoff, err := tt.cfg.backoff()
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			for i, want := range tt.want {
				if got := backoff(i + 1); got != want {
					t.Errorf("attempt %d: got %v, want %v", i+1, got, want)
				}
			}
		})
	}
}

func TestRun_Errors(t *testing.T) {
	tests := map[string][]string{
		"unknown flag":    {"--nope"},
		"bad log level":   {"--log-level", "loud"},
		"unknown backoff": {"--backoff", "fibonacci"},
		"missing config":  {"--config", "/nonexistent/devbridge.yaml"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			if err := run(args); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()
	if _, err := cfg.Reconnect.backoff(); err != nil {
		t.Fatal(err)
	}
	if _, err := cfg.NewCodec(); err != nil {
		t.Fatal(err)
	}
}

func TestNewFlagSet_Reconnect(t *testing.T) {
	cfg := defaultConfig()
	var configPath string
	fs := newFlagSet(&cfg, &configPath)

	err := fs.Parse([]string{
		"--backoff", "exponential",
		"--reconnect-delay", "2s",
		"--reconnect-max-delay", "5s",
		"--max-attempts", "4",
	})
	if err != nil {
		t.Fatal(err)
	}
	want := reconnectConfig{Backoff: "exponential", Delay: 2 * time.Second, MaxDelay: 5 * time.Second, MaxAttempts: 4}
	if cfg.Reconnect != want {
		t.Errorf("reconnect = %+v, want %+v", cfg.Reconnect, want)
	}

	backoff, err := cfg.Reconnect.backoff()
	if err != nil {
		t.Fatal(err)
	}
	if got := backoff(10); got != 5*time.Second {
		t.Errorf("backoff(10) = %v, want 5s", got)
	}
}
