// devbridge-hub is the extension side of the devtools bridge.
//
// It accepts content relays on a WebSocket endpoint (or a NATS subject),
// mirrors the inspected editor with a panel and exposes the panel over
// HTTP:
//
//	GET  /view  current editor view as JSON
//	POST /show  tell the active tab that the panel is visible
//	POST /hide  tell the active tab that the panel is hidden
//	GET  /tabs  connected tabs
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"time"

	"github.com/fxsml/devbridge/internal/cli"
	"github.com/fxsml/devbridge/panel"
	"github.com/fxsml/devbridge/transport"
	natsrt "github.com/fxsml/devbridge/transport/nats"
	"github.com/fxsml/devbridge/transport/websocket"
	"github.com/spf13/pflag"
)

type hubConfig struct {
	cli.Common `yaml:",inline"`

	Addr        string   `yaml:"addr"`
	ID          string   `yaml:"id"`
	Transport   string   `yaml:"transport"`
	NATSURL     string   `yaml:"nats_url" env:"NATS_URL"`
	NATSPrefix  string   `yaml:"nats_prefix" env:"NATS_PREFIX"`
	Tabs        []string `yaml:"tabs"`
	HistorySize int      `yaml:"history_size"`
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

const usage = `devbridge-hub mirrors an inspected editor for the devtools panel.

Usage:
  devbridge-hub [flags]

With --transport nats the tabs are taken from the "tabs" list of the
configuration file or DEVBRIDGE_HUB_TABS (comma separated).

Flags:
`

func run(args []string) error {
	cfg := hubConfig{
		Common:     cli.DefaultCommon(),
		Addr:       ":7420",
		ID:         websocket.DefaultHubID,
		Transport:  "websocket",
		NATSURL:    "nats://127.0.0.1:4222",
		NATSPrefix: "devbridge",
	}
	var configPath string

	fs := pflag.NewFlagSet("devbridge-hub", pflag.ContinueOnError)
	fs.StringVar(&configPath, "config", "", "YAML configuration file")
	cfg.AddFlags(fs)
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	fs.StringVar(&cfg.ID, "id", cfg.ID, "runtime ID of the extension")
	fs.StringVar(&cfg.Transport, "transport", cfg.Transport, "runtime transport: websocket, nats")
	fs.StringVar(&cfg.NATSURL, "nats-url", cfg.NATSURL, "NATS server URL")
	fs.StringVar(&cfg.NATSPrefix, "nats-prefix", cfg.NATSPrefix, "NATS subject prefix")
	fs.IntVar(&cfg.HistorySize, "history-size", cfg.HistorySize, "states kept per view")

	help, err := cli.Parse(fs, args, usage)
	if err != nil || help {
		return err
	}
	if err := cli.Load(fs, configPath, "hub", &cfg); err != nil {
		return err
	}

	logger, err := cfg.Logger(os.Stderr)
	if err != nil {
		return err
	}
	codec, err := cfg.NewCodec()
	if err != nil {
		return err
	}

	ctx, cancel := cli.SignalContext()
	defer cancel()

	mux := http.NewServeMux()
	var (
		rt   transport.Runtime
		tabs transport.Tabs
	)
	switch cfg.Transport {
	case "websocket":
		hub := websocket.NewHub(websocket.HubConfig{ID: cfg.ID, Logger: logger})
		defer hub.Close()
		mux.Handle("/ws", hub)
		rt, tabs = hub, hub
	case "nats":
		r, err := natsrt.Open(natsrt.Config{
			URL:         cfg.NATSURL,
			ID:          cfg.ID,
			Prefix:      cfg.NATSPrefix,
			ContentType: codec.ContentType(),
			Logger:      logger,
		})
		if err != nil {
			return err
		}
		defer r.Close()
		rt, tabs = r, staticTabs(cfg.Tabs)
	default:
		return fmt.Errorf("unknown transport %q", cfg.Transport)
	}

	p := panel.New(panel.Config{
		Codec:       codec,
		HistorySize: cfg.HistorySize,
		OnChange: func(v *panel.View) {
			logger.Info("Editor view updated",
				"component", "hub",
				"nodes", len(v.Schema.Nodes),
				"plugins", len(v.Plugins),
				"history", len(v.History))
		},
		Logger: logger,
	})
	notifier := &panel.Notifier{Runtime: rt, Tabs: tabs, Codec: codec, Logger: logger}
	routes(mux, p, notifier, tabs)

	srv := &http.Server{Addr: cfg.Addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 2)
	go func() { errc <- p.Run(ctx, rt) }()
	go func() {
		logger.Info("Listening", "component", "hub", "addr", cfg.Addr, "transport", cfg.Transport)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errc:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Hub stopped", "component", "hub", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

func routes(mux *http.ServeMux, p *panel.Panel, n *panel.Notifier, tabs transport.Tabs) {
	mux.HandleFunc("GET /view", func(w http.ResponseWriter, r *http.Request) {
		v, ok := p.View()
		if !ok {
			http.Error(w, "no editor initialized", http.StatusNotFound)
			return
		}
		writeJSON(w, v)
	})
	mux.HandleFunc("POST /show", func(w http.ResponseWriter, r *http.Request) {
		n.Shown(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /hide", func(w http.ResponseWriter, r *http.Request) {
		n.Hidden(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /tabs", func(w http.ResponseWriter, r *http.Request) {
		ids, err := tabs.Tabs(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, ids)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Could not write response", "component", "hub", "error", err)
	}
}

// staticTabs is a fixed tab list; the last entry is active.
type staticTabs []string

func (t staticTabs) ActiveTab(context.Context) (string, error) {
	if len(t) == 0 {
		return "", transport.ErrNoActiveTab
	}
	return t[len(t)-1], nil
}

func (t staticTabs) Tabs(context.Context) ([]string, error) {
	return slices.Clone([]string(t)), nil
}
