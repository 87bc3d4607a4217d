// Package config loads binary configuration from YAML files and
// environment variables.
//
// Environment variable names follow the pattern:
//
//	{Prefix}_{STAGE}_{FIELD}
//
// Named nested structs add a path segment, embedded structs are
// flattened. Go field names become UPPER_SNAKE_CASE unless an env tag
// names the segment:
//
//	ExtensionID  → EXTENSION_ID
//	Reconnect    → RECONNECT_...
//	URL `env:"ADDR"` → ADDR
//
// Supported field types: string, bool, int*, uint*, float*,
// time.Duration and []string (comma separated). Other fields are skipped.
//
// Example with stage "relay":
//
//	DEVBRIDGE_RELAY_EXTENSION_ID=devbridge-extension
//	DEVBRIDGE_RELAY_RECONNECT_DELAY=2s
//	DEVBRIDGE_RELAY_CODEC=cbor
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// DefaultPrefix is the environment variable prefix used by Load.
const DefaultPrefix = "DEVBRIDGE"

var (
	durationType = reflect.TypeOf(time.Duration(0))
	stringsType  = reflect.TypeOf([]string(nil))
)

// Loader reads environment variables into configuration structs.
type Loader struct {
	// Prefix of environment variable names (default: DefaultPrefix).
	Prefix string

	// lookup overrides os.LookupEnv for testing.
	lookup func(string) (string, bool)
}

// Load overlays environment variables on the struct pointed to by dst.
// Fields without a set variable keep their value.
func (l Loader) Load(stage string, dst any) error {
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("config: dst must be a pointer to a struct, got %T", dst)
	}
	return walk(l.stagePrefix(stage), v.Elem(), func(key string, fv reflect.Value) error {
		raw, ok := l.lookupEnv(key)
		if !ok {
			return nil
		}
		return setField(fv, raw, key)
	})
}

// Keys returns the environment variable names Load checks for dst, which
// may be a struct or a pointer to one.
func (l Loader) Keys(stage string, dst any) []string {
	t := reflect.TypeOf(dst)
	if t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	var keys []string
	_ = walk(l.stagePrefix(stage), reflect.New(t).Elem(), func(key string, _ reflect.Value) error {
		keys = append(keys, key)
		return nil
	})
	return keys
}

// Load overlays environment variables on dst using DefaultPrefix.
func Load(stage string, dst any) error {
	return Loader{}.Load(stage, dst)
}

// Keys returns the environment variable names for dst using DefaultPrefix.
func Keys(stage string, dst any) []string {
	return Loader{}.Keys(stage, dst)
}

func (l Loader) stagePrefix(stage string) string {
	prefix := l.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return prefix + "_" + normalizeStage(stage)
}

func (l Loader) lookupEnv(key string) (string, bool) {
	if l.lookup != nil {
		return l.lookup(key)
	}
	return os.LookupEnv(key)
}

// walk calls fn for every supported leaf field of v with its key.
func walk(prefix string, v reflect.Value, fn func(key string, fv reflect.Value) error) error {
	t := v.Type()
	for i := range t.NumField() {
		field := t.Field(i)
		fv := v.Field(i)

		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			if err := walk(prefix, fv, fn); err != nil {
				return err
			}
			continue
		}
		if !field.IsExported() {
			continue
		}
		name, ok := segment(field)
		if !ok {
			continue
		}
		key := prefix + "_" + name

		switch {
		case field.Type == durationType, field.Type == stringsType, isScalar(field.Type.Kind()):
			if err := fn(key, fv); err != nil {
				return err
			}
		case field.Type.Kind() == reflect.Struct:
			if err := walk(key, fv, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

func segment(field reflect.StructField) (string, bool) {
	switch tag := field.Tag.Get("env"); tag {
	case "-":
		return "", false
	case "":
		return toUpperSnake(field.Name), true
	default:
		return tag, true
	}
}

func isScalar(k reflect.Kind) bool {
	switch k {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func setField(v reflect.Value, raw, key string) error {
	var err error
	switch {
	case v.Type() == durationType:
		var d time.Duration
		if d, err = time.ParseDuration(raw); err == nil {
			v.SetInt(int64(d))
		}
	case v.Type() == stringsType:
		var items []string
		for item := range strings.SplitSeq(raw, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		v.Set(reflect.ValueOf(items))
	default:
		switch v.Kind() {
		case reflect.String:
			v.SetString(raw)
		case reflect.Bool:
			var b bool
			if b, err = strconv.ParseBool(raw); err == nil {
				v.SetBool(b)
			}
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			var n int64
			if n, err = strconv.ParseInt(raw, 10, v.Type().Bits()); err == nil {
				v.SetInt(n)
			}
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			var n uint64
			if n, err = strconv.ParseUint(raw, 10, v.Type().Bits()); err == nil {
				v.SetUint(n)
			}
		case reflect.Float32, reflect.Float64:
			var f float64
			if f, err = strconv.ParseFloat(raw, v.Type().Bits()); err == nil {
				v.SetFloat(f)
			}
		}
	}
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	return nil
}

// normalizeStage uppercases letters, maps hyphens, spaces and
// underscores to underscores and drops everything else.
func normalizeStage(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(unicode.ToUpper(r))
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == ' ' || r == '_':
			b.WriteRune('_')
		}
	}
	return b.String()
}

// toUpperSnake converts a CamelCase field name to UPPER_SNAKE_CASE.
//
//	ExtensionID → EXTENSION_ID
//	URLPath     → URL_PATH
func toUpperSnake(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteRune('_')
			}
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}
