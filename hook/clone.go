package hook

import (
	"reflect"
	"strings"
)

// DefaultMaxDepth is the nesting limit applied to plugin state.
const DefaultMaxDepth = 10

// cloneExcluding copies v into maps, slices and scalars suitable for
// JSON encoding. Object members identical to one of exclude are dropped.
// Objects and lists nested maxDepth levels deep are emptied, which also
// breaks reference cycles. Functions and channels are dropped.
func cloneExcluding(v any, exclude []any, maxDepth int) any {
	c := cloner{exclude: exclude, maxDepth: maxDepth}
	out, _ := c.clone(reflect.ValueOf(v), 0)
	return out
}

type cloner struct {
	exclude  []any
	maxDepth int
}

func (c cloner) clone(v reflect.Value, depth int) (any, bool) {
	v = unwrap(v)
	if !v.IsValid() {
		return nil, true
	}
	switch v.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return nil, false
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		out := map[string]any{}
		if depth >= c.maxDepth {
			return out, true
		}
		iter := v.MapRange()
		for iter.Next() {
			c.member(out, iter.Key().String(), iter.Value(), depth)
		}
		return out, true
	case reflect.Struct:
		out := map[string]any{}
		if depth >= c.maxDepth {
			return out, true
		}
		t := v.Type()
		for i := range t.NumField() {
			name, ok := fieldName(t.Field(i))
			if !ok {
				continue
			}
			c.member(out, name, v.Field(i), depth)
		}
		return out, true
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8 {
			return v.Bytes(), true
		}
		out := []any{}
		if depth >= c.maxDepth {
			return out, true
		}
		for i := range v.Len() {
			e := unwrapInterface(v.Index(i))
			if c.excluded(e) {
				continue
			}
			if val, ok := c.clone(e, depth+1); ok {
				out = append(out, val)
			}
		}
		return out, true
	default:
		return v.Interface(), true
	}
}

func (c cloner) member(out map[string]any, name string, v reflect.Value, depth int) {
	v = unwrapInterface(v)
	if c.excluded(v) {
		return
	}
	if val, ok := c.clone(v, depth+1); ok {
		out[name] = val
	}
}

func (c cloner) excluded(v reflect.Value) bool {
	if !v.IsValid() || !v.CanInterface() {
		return false
	}
	for _, ex := range c.exclude {
		ev := reflect.ValueOf(ex)
		if !ev.IsValid() || ev.Type() != v.Type() {
			continue
		}
		switch v.Kind() {
		case reflect.Pointer, reflect.Map, reflect.Slice:
			if !v.IsNil() && v.Pointer() == ev.Pointer() {
				return true
			}
		default:
			if v.Comparable() && v.Equal(ev) {
				return true
			}
		}
	}
	return false
}

func unwrapInterface(v reflect.Value) reflect.Value {
	for v.IsValid() && v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func unwrap(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

// fieldName returns the JSON member name of an exported struct field.
func fieldName(f reflect.StructField) (string, bool) {
	if !f.IsExported() {
		return "", false
	}
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", false
	}
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return name, true
	}
	return f.Name, true
}
