package message

// ExtensionSource tags every envelope produced by this system. Messages
// on a shared bus without it belong to someone else.
const ExtensionSource = "prosemirror-devtools-bridge"

// Type discriminates envelopes.
type Type string

const (
	// TypeInit carries a full editor snapshot.
	TypeInit Type = "init"
	// TypeUpdateState carries a new editor state.
	TypeUpdateState Type = "updateState"
	// TypeExtensionShowing carries panel visibility.
	TypeExtensionShowing Type = "extension-showing"
)

// Envelope is the only message shape crossing a boundary.
type Envelope struct {
	Source  string
	Type    Type
	Payload Payload
}

// Payload is implemented by the payload variants of an Envelope.
type Payload interface {
	payloadType() Type
}

// Init is the payload of TypeInit.
type Init struct {
	SchemaSpec    map[string]any `json:"schemaSpec"`
	State         map[string]any `json:"state"`
	PluginsAsJSON string         `json:"pluginsAsJSON"`
	ViewAttrs     map[string]any `json:"viewAttrs"`
	// Session identifies the injected editor. Empty when unknown.
	Session string `json:"session,omitempty"`
}

// UpdateState is the payload of TypeUpdateState.
type UpdateState struct {
	State map[string]any `json:"state"`
}

// ExtensionShowing is the payload of TypeExtensionShowing.
type ExtensionShowing bool

// Raw holds the payload of an envelope type this package does not model.
type Raw struct {
	Kind  Type
	Value any
}

func (Init) payloadType() Type             { return TypeInit }
func (UpdateState) payloadType() Type      { return TypeUpdateState }
func (ExtensionShowing) payloadType() Type { return TypeExtensionShowing }
func (r Raw) payloadType() Type            { return r.Kind }

// New creates an envelope tagged with ExtensionSource. The type is taken
// from the payload.
func New(p Payload) Envelope {
	return Envelope{
		Source:  ExtensionSource,
		Type:    p.payloadType(),
		Payload: p,
	}
}

// NewInit creates an init envelope.
func NewInit(p Init) Envelope {
	return New(p)
}

// NewUpdateState creates an updateState envelope.
func NewUpdateState(state map[string]any) Envelope {
	return New(UpdateState{State: state})
}

// NewExtensionShowing creates an extension-showing envelope.
func NewExtensionShowing(showing bool) Envelope {
	return New(ExtensionShowing(showing))
}
