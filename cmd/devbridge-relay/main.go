// devbridge-relay is the content side of the devtools bridge.
//
// It listens for editor envelopes posted by the page hook on a Redis
// window channel and relays them to the extension over WebSocket or NATS
// once the panel is showing. Panel visibility is posted back to the page.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fxsml/devbridge/internal/cli"
	"github.com/fxsml/devbridge/message"
	"github.com/fxsml/devbridge/relay"
	"github.com/fxsml/devbridge/transport"
	natsrt "github.com/fxsml/devbridge/transport/nats"
	"github.com/fxsml/devbridge/transport/redisbus"
	"github.com/fxsml/devbridge/transport/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
)

type relayConfig struct {
	cli.Common `yaml:",inline"`

	ID          string `yaml:"id"`
	ExtensionID string `yaml:"extension_id"`
	Origin      string `yaml:"origin"`

	RedisAddr    string `yaml:"redis_addr"`
	RedisChannel string `yaml:"redis_channel"`

	Transport  string `yaml:"transport"`
	HubURL     string `yaml:"hub_url"`
	NATSURL    string `yaml:"nats_url" env:"NATS_URL"`
	NATSPrefix string `yaml:"nats_prefix" env:"NATS_PREFIX"`

	Reconnect reconnectConfig `yaml:"reconnect"`
}

type reconnectConfig struct {
	Disable     bool          `yaml:"disable"`
	Backoff     string        `yaml:"backoff"`
	Delay       time.Duration `yaml:"delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
	Jitter      float64       `yaml:"jitter"`
	MaxAttempts int           `yaml:"max_attempts"`
}

func (c reconnectConfig) backoff() (relay.BackoffFunc, error) {
	switch c.Backoff {
	case "constant":
		return relay.ConstantBackoff(c.Delay, c.Jitter), nil
	case "exponential":
		return relay.ExponentialBackoff(c.Delay, 2, c.MaxDelay, c.Jitter), nil
	default:
		return nil, fmt.Errorf("unknown backoff %q", c.Backoff)
	}
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

const usage = `devbridge-relay relays editor envelopes between a page and the extension.

Usage:
  devbridge-relay [flags]

Flags:
`

func defaultConfig() relayConfig {
	return relayConfig{
		Common:       cli.DefaultCommon(),
		ExtensionID:  websocket.DefaultHubID,
		Origin:       "http://localhost",
		RedisAddr:    "127.0.0.1:6379",
		RedisChannel: "devbridge:window",
		Transport:    "websocket",
		HubURL:       "ws://127.0.0.1:7420/ws",
		NATSURL:      "nats://127.0.0.1:4222",
		NATSPrefix:   "devbridge",
		Reconnect: reconnectConfig{
			Backoff:  "constant",
			Delay:    time.Second,
			MaxDelay: 30 * time.Second,
		},
	}
}

// newFlagSet binds the command line flags to cfg and configPath.
func newFlagSet(cfg *relayConfig, configPath *string) *pflag.FlagSet {
	fs := pflag.NewFlagSet("devbridge-relay", pflag.ContinueOnError)
	fs.StringVar(configPath, "config", "", "YAML configuration file")
	cfg.AddFlags(fs)
	fs.StringVar(&cfg.ID, "id", cfg.ID, "runtime ID of this tab (default: random)")
	fs.StringVar(&cfg.ExtensionID, "extension-id", cfg.ExtensionID, "runtime ID of the extension")
	fs.StringVar(&cfg.Origin, "origin", cfg.Origin, "origin of the page")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis address of the window bus")
	fs.StringVar(&cfg.RedisChannel, "redis-channel", cfg.RedisChannel, "Redis channel of the window bus")
	fs.StringVar(&cfg.Transport, "transport", cfg.Transport, "runtime transport: websocket, nats")
	fs.StringVar(&cfg.HubURL, "hub-url", cfg.HubURL, "WebSocket URL of the extension hub")
	fs.StringVar(&cfg.NATSURL, "nats-url", cfg.NATSURL, "NATS server URL")
	fs.StringVar(&cfg.NATSPrefix, "nats-prefix", cfg.NATSPrefix, "NATS subject prefix")
	fs.BoolVar(&cfg.Reconnect.Disable, "no-reconnect", cfg.Reconnect.Disable, "do not keep a reconnect port open")
	fs.StringVar(&cfg.Reconnect.Backoff, "backoff", cfg.Reconnect.Backoff, "reconnect backoff: constant, exponential")
	fs.DurationVar(&cfg.Reconnect.Delay, "reconnect-delay", cfg.Reconnect.Delay, "(initial) wait between reconnect attempts")
	fs.DurationVar(&cfg.Reconnect.MaxDelay, "reconnect-max-delay", cfg.Reconnect.MaxDelay, "cap of the exponential reconnect wait (0: no cap)")
	fs.IntVar(&cfg.Reconnect.MaxAttempts, "max-attempts", cfg.Reconnect.MaxAttempts, "consecutive failed attempts before giving up (0: unlimited)")
	return fs
}

func run(args []string) error {
	cfg := defaultConfig()
	var configPath string
	fs := newFlagSet(&cfg, &configPath)

	help, err := cli.Parse(fs, args, usage)
	if err != nil || help {
		return err
	}
	if err := cli.Load(fs, configPath, "relay", &cfg); err != nil {
		return err
	}
	if cfg.ID == "" {
		cfg.ID = "tab-" + message.NewSessionID()
	}

	logger, err := cfg.Logger(os.Stderr)
	if err != nil {
		return err
	}
	codec, err := cfg.NewCodec()
	if err != nil {
		return err
	}
	backoff, err := cfg.Reconnect.backoff()
	if err != nil {
		return err
	}

	ctx, cancel := cli.SignalContext()
	defer cancel()

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer client.Close()
	bus, err := redisbus.New(ctx, client, redisbus.Config{
		Channel: cfg.RedisChannel,
		Origin:  cfg.Origin,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	defer bus.Close()

	var rt transport.Runtime
	switch cfg.Transport {
	case "websocket":
		c, err := websocket.Dial(ctx, websocket.Config{
			URL:    cfg.HubURL,
			ID:     cfg.ID,
			HubID:  cfg.ExtensionID,
			Logger: logger,
		})
		if err != nil {
			return err
		}
		defer c.Close()
		rt = c
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
		rt = r
	default:
		return fmt.Errorf("unknown transport %q", cfg.Transport)
	}

	content, err := relay.NewContent(relay.ContentConfig{
		Window:      bus,
		Runtime:     rt,
		ExtensionID: cfg.ExtensionID,
		Codec:       codec,
		Reconnect: relay.ReconnectConfig{
			Backoff:     backoff,
			MaxAttempts: cfg.Reconnect.MaxAttempts,
		},
		DisableReconnect: cfg.Reconnect.Disable,
		DecodeErrorHandler: func(data []byte, err error) {
			logger.Debug("Dropped undecodable message",
				"component", "relay",
				"size", len(data),
				"error", err)
		},
		Logger: logger,
	})
	if err != nil {
		return err
	}
	if err := content.Start(ctx); err != nil {
		return err
	}
	logger.Info("Relay started",
		"component", "relay",
		"id", rt.ID(),
		"extension", cfg.ExtensionID,
		"transport", cfg.Transport)

	<-content.Done()
	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
