// Package cli holds the flag, logging and codec setup shared by the
// devbridge binaries.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fxsml/devbridge/config"
	"github.com/fxsml/devbridge/message"
	"github.com/fxsml/devbridge/message/jsonschema"
	"github.com/spf13/pflag"
)

// Common is the configuration every binary accepts.
type Common struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	Codec     string `yaml:"codec"`
	Compress  bool   `yaml:"compress"`
	Validate  bool   `yaml:"validate"`
}

// DefaultCommon returns the defaults of Common.
func DefaultCommon() Common {
	return Common{LogLevel: "info", LogFormat: "text", Codec: "json"}
}

// AddFlags registers the Common flags on fs.
func (c *Common) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "log format: text, json")
	fs.StringVar(&c.Codec, "codec", c.Codec, "envelope encoding: json, cbor, msgpack")
	fs.BoolVar(&c.Compress, "compress", c.Compress, "zstd-compress encoded envelopes")
	fs.BoolVar(&c.Validate, "validate", c.Validate, "validate payloads against JSON schemas on decode")
}

// Logger returns the logger configured by c.
func (c Common) Logger(w io.Writer) (*slog.Logger, error) {
	return NewLogger(w, c.LogLevel, c.LogFormat)
}

// NewCodec returns the codec configured by c.
func (c Common) NewCodec() (*message.Codec, error) {
	m, err := message.NewMarshaler(c.Codec, c.Compress)
	if err != nil {
		return nil, err
	}
	cfg := message.CodecConfig{Marshaler: m}
	if c.Validate {
		cfg.Validator = jsonschema.NewDefaultRegistry()
	}
	return message.NewCodec(cfg), nil
}

// NewLogger creates a slog logger writing to w.
func NewLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("cli: log level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("cli: unknown log format %q", format)
	}
}

// Load applies the YAML file at path and the environment overlay for stage
// to dst. Flags set explicitly on fs are applied again afterwards, so the
// order of precedence is flags, environment, file, defaults.
func Load(fs *pflag.FlagSet, path, stage string, dst any) error {
	explicit := map[string]string{}
	fs.Visit(func(f *pflag.Flag) {
		explicit[f.Name] = f.Value.String()
	})
	if err := (config.Loader{}).LoadAll(path, stage, dst); err != nil {
		return err
	}
	for name, value := range explicit {
		if err := fs.Set(name, value); err != nil {
			return fmt.Errorf("cli: --%s: %w", name, err)
		}
	}
	return nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Parse parses args into fs. It reports whether help was requested.
func Parse(fs *pflag.FlagSet, args []string, usage string) (bool, error) {
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return true, nil
		}
		return false, err
	}
	if rest := fs.Args(); len(rest) > 0 {
		return false, fmt.Errorf("unexpected argument: %s", rest[0])
	}
	return false, nil
}
