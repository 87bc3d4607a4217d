package hook

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

type pluginState struct {
	Active  bool   `json:"active"`
	Count   int    `json:"count,omitempty"`
	Hidden  string `json:"-"`
	Plain   string
	View    *StaticView
	OnEvent func()
	private int
}

func TestCloneExcluding(t *testing.T) {
	view := &StaticView{}
	other := &StaticView{}

	tests := []struct {
		name     string
		in       any
		maxDepth int
		want     any
	}{
		{
			name:     "scalar",
			in:       "x",
			maxDepth: 10,
			want:     "x",
		},
		{
			name:     "nil",
			in:       nil,
			maxDepth: 10,
			want:     nil,
		},
		{
			name:     "excludes view",
			in:       map[string]any{"view": view, "other": map[string]any{"n": 1}},
			maxDepth: 10,
			want:     map[string]any{"other": map[string]any{"n": 1}},
		},
		{
			name: "struct fields",
			in: pluginState{
				Active: true, Hidden: "h", Plain: "p", View: view,
				OnEvent: func() {}, private: 1,
			},
			maxDepth: 10,
			want:     map[string]any{"active": true, "count": 0, "Plain": "p"},
		},
		{
			name:     "other views are copied",
			in:       []any{view, other},
			maxDepth: 10,
			want: []any{map[string]any{
				"Schema": map[string]any{}, "State": map[string]any{},
				"PluginStates": []any{}, "ViewAttrs": map[string]any{},
			}},
		},
		{
			name:     "depth cap empties deep objects",
			in:       map[string]any{"a": map[string]any{"b": map[string]any{"c": 1}}},
			maxDepth: 2,
			want:     map[string]any{"a": map[string]any{"b": map[string]any{}}},
		},
		{
			name:     "depth cap on lists",
			in:       []any{[]any{1, 2}},
			maxDepth: 1,
			want:     []any{[]any{}},
		},
		{
			name:     "drops functions and channels",
			in:       map[string]any{"fn": func() {}, "ch": make(chan int), "ok": 1.5},
			maxDepth: 10,
			want:     map[string]any{"ok": 1.5},
		},
		{
			name:     "pointers are followed",
			in:       &pluginState{Plain: "p"},
			maxDepth: 10,
			want:     map[string]any{"active": false, "count": 0, "Plain": "p", "View": nil},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cloneExcluding(tt.in, []any{view}, tt.maxDepth)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCloneExcluding_Cycle(t *testing.T) {
	m := map[string]any{}
	m["self"] = m

	got := cloneExcluding(m, nil, 3)
	want := map[string]any{"self": map[string]any{"self": map[string]any{"self": map[string]any{}}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestPickAttrs(t *testing.T) {
	got := pickAttrs(map[string]any{"editable": true, "focused": false, "dom": "x"})
	want := map[string]any{"editable": true, "focused": false}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if pickAttrs(nil) != nil {
		t.Error("pickAttrs(nil) != nil")
	}
}
