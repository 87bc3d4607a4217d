// devbridge-demo plays the page side of the devtools bridge.
//
// It publishes a hook, injects a small editor and posts a new editor
// state every interval. By default the hook posts on a Redis window
// channel for devbridge-relay to pick up. With --in-process the relay,
// the panel and the visibility notifier run in this process on memory
// transports, and the panel is shown after --show-after.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fxsml/devbridge/hook"
	"github.com/fxsml/devbridge/internal/cli"
	"github.com/fxsml/devbridge/message"
	"github.com/fxsml/devbridge/panel"
	"github.com/fxsml/devbridge/relay"
	"github.com/fxsml/devbridge/transport"
	"github.com/fxsml/devbridge/transport/memory"
	"github.com/fxsml/devbridge/transport/redisbus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
)

type demoConfig struct {
	cli.Common `yaml:",inline"`

	Origin       string        `yaml:"origin"`
	RedisAddr    string        `yaml:"redis_addr"`
	RedisChannel string        `yaml:"redis_channel"`
	InProcess    bool          `yaml:"in_process"`
	Interval     time.Duration `yaml:"interval"`
	ShowAfter    time.Duration `yaml:"show_after"`
	Updates      int           `yaml:"updates"`
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

const usage = `devbridge-demo injects a demo editor into a devtools bridge.

Usage:
  devbridge-demo [flags]

Flags:
`

func run(args []string) error {
	cfg := demoConfig{
		Common:       cli.DefaultCommon(),
		Origin:       "http://localhost",
		RedisAddr:    "127.0.0.1:6379",
		RedisChannel: "devbridge:window",
		Interval:     time.Second,
		ShowAfter:    2 * time.Second,
	}
	var configPath string

	fs := pflag.NewFlagSet("devbridge-demo", pflag.ContinueOnError)
	fs.StringVar(&configPath, "config", "", "YAML configuration file")
	cfg.AddFlags(fs)
	fs.StringVar(&cfg.Origin, "origin", cfg.Origin, "origin of the page")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis address of the window bus")
	fs.StringVar(&cfg.RedisChannel, "redis-channel", cfg.RedisChannel, "Redis channel of the window bus")
	fs.BoolVar(&cfg.InProcess, "in-process", cfg.InProcess, "run relay and panel in this process")
	fs.DurationVar(&cfg.Interval, "interval", cfg.Interval, "wait between state updates")
	fs.DurationVar(&cfg.ShowAfter, "show-after", cfg.ShowAfter, "show the in-process panel after this delay")
	fs.IntVar(&cfg.Updates, "updates", cfg.Updates, "number of state updates (0: until interrupted)")

	help, err := cli.Parse(fs, args, usage)
	if err != nil || help {
		return err
	}
	if err := cli.Load(fs, configPath, "demo", &cfg); err != nil {
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

	var bus transport.Bus
	if cfg.InProcess {
		window := memory.NewWindow(cfg.Origin)
		defer window.Close()
		if err := startInProcess(ctx, window, cfg, codec, logger); err != nil {
			return err
		}
		bus = window
	} else {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		b, err := redisbus.New(ctx, client, redisbus.Config{
			Channel: cfg.RedisChannel,
			Origin:  cfg.Origin,
			Logger:  logger,
		})
		if err != nil {
			return err
		}
		defer b.Close()
		bus = b
	}

	h := hook.New(bus, hook.Config{Codec: codec, Logger: logger})
	defer h.Close()
	if err := hook.Publish(h); err != nil {
		return err
	}
	return edit(ctx, h, cfg)
}

// edit injects the demo editor and types one character per interval.
func edit(ctx context.Context, h *hook.Hook, cfg demoConfig) error {
	session, err := h.Inject(ctx, demoView(""))
	if err != nil {
		return err
	}
	defer session.Disconnect()

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	text := ""
	for i := 0; cfg.Updates == 0 || i < cfg.Updates; i++ {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		text += string(rune('a' + i%26))
		if err := session.UpdateState(ctx, demoState(text)); err != nil {
			return err
		}
	}
	return nil
}

// startInProcess runs the content relay, the panel and a notifier that
// shows the panel after cfg.ShowAfter.
func startInProcess(ctx context.Context, window *memory.Window, cfg demoConfig, codec *message.Codec, logger *slog.Logger) error {
	network := memory.NewNetwork()
	ext := network.Host("extension")
	tab := network.Endpoint("tab-1")

	content, err := relay.NewContent(relay.ContentConfig{
		Window:      window,
		Runtime:     tab,
		ExtensionID: ext.ID(),
		Codec:       codec,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	if err := content.Start(ctx); err != nil {
		return err
	}

	p := panel.New(panel.Config{
		Codec: codec,
		OnChange: func(v *panel.View) {
			logger.Info("Panel view updated",
				"component", "demo",
				"state", v.State,
				"history", len(v.History))
		},
		Logger: logger,
	})
	go func() {
		if err := p.Run(ctx, ext); err != nil && ctx.Err() == nil {
			logger.Error("Panel stopped", "component", "demo", "error", err)
		}
	}()

	notifier := &panel.Notifier{Runtime: ext, Tabs: network, Codec: codec, Logger: logger}
	time.AfterFunc(cfg.ShowAfter, func() {
		if ctx.Err() == nil {
			notifier.Shown(ctx)
		}
	})
	return nil
}

var demoSchema = message.Schema{
	Nodes: []message.SpecEntry{
		{Name: "doc", Spec: map[string]any{"content": "paragraph+"}},
		{Name: "paragraph", Spec: map[string]any{"content": "text*", "group": "block"}},
		{Name: "text", Spec: map[string]any{"group": "inline"}},
	},
	Marks: []message.SpecEntry{
		{Name: "em", Spec: map[string]any{}},
		{Name: "strong", Spec: map[string]any{}},
	},
	TopNode: "doc",
}

func demoView(text string) *hook.StaticView {
	v := &hook.StaticView{
		Schema: demoSchema.SchemaSpec(),
		State:  demoState(text),
		ViewAttrs: map[string]any{
			"editable": true,
			"focused":  true,
			"mounted":  true,
		},
	}
	v.PluginStates = []hook.Plugin{
		{Key: "history$", State: map[string]any{"done": []any{}, "undone": []any{}, "prevTime": 0}},
		{Key: "view$", State: map[string]any{"view": v}},
	}
	return v
}

func demoState(text string) map[string]any {
	paragraph := map[string]any{"type": "paragraph"}
	if text != "" {
		paragraph["content"] = []any{map[string]any{"type": "text", "text": text}}
	}
	return map[string]any{
		"doc":       map[string]any{"type": "doc", "content": []any{paragraph}},
		"selection": map[string]any{"type": "text", "anchor": len(text) + 1, "head": len(text) + 1},
	}
}
