package message_test

import (
	"errors"
	"testing"

	"github.com/fxsml/devbridge/message"
	"github.com/google/go-cmp/cmp"
)

func TestSchema_RoundTrip(t *testing.T) {
	schema := message.Schema{
		Nodes: []message.SpecEntry{
			{Name: "doc", Spec: map[string]any{"content": "block+"}},
			{Name: "paragraph", Spec: map[string]any{"group": "block"}},
			{Name: "text"},
		},
		Marks:   []message.SpecEntry{{Name: "em", Spec: map[string]any{}}},
		TopNode: "doc",
	}

	for _, name := range []string{"json", "cbor", "msgpack"} {
		t.Run(name, func(t *testing.T) {
			m, err := message.NewMarshaler(name, false)
			if err != nil {
				t.Fatal(err)
			}
			codec := message.NewCodec(message.CodecConfig{Marshaler: m})
			data, err := codec.Encode(message.NewInit(message.Init{SchemaSpec: schema.SchemaSpec()}))
			if err != nil {
				t.Fatal(err)
			}
			env, err := codec.Decode(data)
			if err != nil {
				t.Fatal(err)
			}
			got, err := message.ParseSchemaSpec(env.Payload.(message.Init).SchemaSpec)
			if err != nil {
				t.Fatal(err)
			}

			want := schema
			want.Nodes[2].Spec = map[string]any{}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseSchemaSpec_Invalid(t *testing.T) {
	list := func(content ...any) map[string]any { return map[string]any{"content": content} }
	empty := list()

	tests := []struct {
		name string
		spec map[string]any
	}{
		{"nil", nil},
		{"missing nodes", map[string]any{"marks": empty}},
		{"nodes not object", map[string]any{"nodes": []any{}, "marks": empty}},
		{"content not list", map[string]any{"nodes": map[string]any{"content": "x"}, "marks": empty}},
		{"odd length", map[string]any{"nodes": list("doc"), "marks": empty}},
		{"name not string", map[string]any{"nodes": list(1.0, map[string]any{}), "marks": empty}},
		{"spec not object", map[string]any{"nodes": empty, "marks": list("em", "x")}},
		{"topNode not string", map[string]any{"nodes": empty, "marks": empty, "topNode": 3.0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := message.ParseSchemaSpec(tt.spec); !errors.Is(err, message.ErrInvalidSchemaSpec) {
				t.Errorf("got %v, want ErrInvalidSchemaSpec", err)
			}
		})
	}
}
