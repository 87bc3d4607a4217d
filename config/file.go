package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile decodes the YAML file at path into dst. Unknown keys are an
// error. An empty path leaves dst unchanged.
func LoadFile(path string, dst any) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := Decode(data, dst); err != nil {
		return fmt.Errorf("config: %s: %w", path, err)
	}
	return nil
}

// Decode decodes YAML data into dst, rejecting unknown keys. Empty input
// leaves dst unchanged.
func Decode(data []byte, dst any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// LoadAll applies the file at path and then the environment overlay for
// stage, so environment variables win.
func (l Loader) LoadAll(path, stage string, dst any) error {
	if err := LoadFile(path, dst); err != nil {
		return err
	}
	return l.Load(stage, dst)
}
