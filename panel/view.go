package panel

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/fxsml/devbridge/message"
)

// View is the editor view rebuilt from an init envelope.
type View struct {
	Schema  message.Schema
	State   map[string]any
	Plugins []PluginState
	Attrs   map[string]any
	// History holds the states received since init, oldest first. The
	// last entry is State.
	History []map[string]any
}

// PluginState is the serialized state of one editor plugin.
type PluginState struct {
	Key   string `json:"key"`
	State any    `json:"state"`
}

func rebuildView(p message.Init) (*View, error) {
	schema, err := message.ParseSchemaSpec(p.SchemaSpec)
	if err != nil {
		return nil, err
	}
	if p.State == nil {
		return nil, fmt.Errorf("%w: missing", ErrInvalidState)
	}
	var plugins []PluginState
	if p.PluginsAsJSON != "" {
		if err := json.Unmarshal([]byte(p.PluginsAsJSON), &plugins); err != nil {
			return nil, fmt.Errorf("panel: plugins: %w", err)
		}
	}
	return &View{
		Schema:  schema,
		State:   p.State,
		Plugins: plugins,
		Attrs:   p.ViewAttrs,
		History: []map[string]any{p.State},
	}, nil
}

// withState returns a copy of v with state pushed, keeping at most
// limit history entries.
func (v *View) withState(state map[string]any, limit int) *View {
	next := *v
	next.State = state
	history := append(slices.Clip(v.History), state)
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	next.History = history
	return &next
}
