package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fxsml/devbridge/message"
	"github.com/spf13/pflag"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		level, format string
		wantErr       bool
		contains      string
	}{
		{level: "info", format: "text", contains: "level=INFO"},
		{level: "info", format: "json", contains: `"level":"INFO"`},
		{level: "warn", format: "text"},
		{level: "loud", format: "text", wantErr: true},
		{level: "info", format: "xml", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.level+"/"+tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := NewLogger(&buf, tt.level, tt.format)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			logger.Info("hello")
			if !strings.Contains(buf.String(), tt.contains) {
				t.Errorf("output %q does not contain %q", buf.String(), tt.contains)
			}
		})
	}
}

func TestCommon_NewCodec(t *testing.T) {
	c := DefaultCommon()
	c.Codec = "cbor"
	c.Compress = true
	c.Validate = true
	codec, err := c.NewCodec()
	if err != nil {
		t.Fatal(err)
	}
	if got := codec.ContentType(); got != "application/cbor+zstd" {
		t.Errorf("ContentType() = %q", got)
	}

	data, err := codec.Encode(message.NewUpdateState(nil))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := codec.Decode(data); err == nil {
		t.Error("validating codec accepted updateState without state object")
	}

	c.Codec = "xml"
	if _, err := c.NewCodec(); err == nil {
		t.Error("unknown codec accepted")
	}
}

type testConfig struct {
	Common `yaml:",inline"`
	Addr   string `yaml:"addr"`
	Name   string `yaml:"name"`
}

func TestLoad_Precedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	if err := os.WriteFile(path, []byte("addr: file\nname: file\ncodec: msgpack\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DEVBRIDGE_TEST_NAME", "env")
	t.Setenv("DEVBRIDGE_TEST_ADDR", "env")

	cfg := testConfig{Common: DefaultCommon()}
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg.AddFlags(fs)
	fs.StringVar(&cfg.Addr, "addr", "default", "")
	fs.StringVar(&cfg.Name, "name", "default", "")
	if _, err := Parse(fs, []string{"--addr", "flag"}, ""); err != nil {
		t.Fatal(err)
	}

	if err := Load(fs, path, "test", &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Addr != "flag" || cfg.Name != "env" || cfg.Codec != "msgpack" || cfg.LogLevel != "info" {
		t.Errorf("got %+v", cfg)
	}
}

func TestParse(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.SetOutput(&bytes.Buffer{})
	if help, err := Parse(fs, []string{"--help"}, "usage\n"); err != nil || !help {
		t.Errorf("help = %v, err = %v", help, err)
	}

	fs = pflag.NewFlagSet("test", pflag.ContinueOnError)
	if _, err := Parse(fs, []string{"extra"}, ""); err == nil {
		t.Error("extra argument accepted")
	}
}
