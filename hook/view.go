package hook

// ViewAttrKeys are the view attributes forwarded in init envelopes.
var ViewAttrKeys = []string{
	"composing",
	"composingTimeout",
	"compositionEndedAt",
	"cursorWrapper",
	"domChangeCount",
	"dragging",
	"editable",
	"focused",
	"lastClick",
	"lastKeyCode",
	"lastKeyCodeTime",
	"lastSelectedViewDesc",
	"lastSelectionOrigin",
	"lastSelectionTime",
	"mounted",
	"mouseDown",
	"shiftKey",
}

// View is an editor view registered with a Hook.
type View interface {
	// SchemaSpec returns the serialized schema spec, see message.Schema.
	SchemaSpec() map[string]any
	// StateJSON returns the serialized editor state.
	StateJSON() map[string]any
	// Plugins returns the plugins of the current state.
	Plugins() []Plugin
	// Attrs returns the view attributes.
	Attrs() map[string]any
}

// Plugin is one editor plugin with its current state.
type Plugin struct {
	Key   string
	State any
}

// StaticView is a View backed by fixed values.
type StaticView struct {
	Schema       map[string]any
	State        map[string]any
	PluginStates []Plugin
	ViewAttrs    map[string]any
}

var _ View = (*StaticView)(nil)

func (v *StaticView) SchemaSpec() map[string]any { return v.Schema }
func (v *StaticView) StateJSON() map[string]any  { return v.State }
func (v *StaticView) Plugins() []Plugin          { return v.PluginStates }
func (v *StaticView) Attrs() map[string]any      { return v.ViewAttrs }

func pickAttrs(attrs map[string]any) map[string]any {
	if attrs == nil {
		return nil
	}
	out := make(map[string]any, len(ViewAttrKeys))
	for _, k := range ViewAttrKeys {
		if v, ok := attrs[k]; ok {
			out[k] = v
		}
	}
	return out
}
