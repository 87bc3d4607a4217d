package message

import "slices"

// FromExtension reports whether e carries the extension source tag.
func FromExtension(e Envelope) bool {
	return e.Source == ExtensionSource
}

// OfType returns a predicate matching envelopes of the given types.
func OfType(types ...Type) func(Envelope) bool {
	allowed := slices.Clone(types)
	return func(e Envelope) bool {
		return slices.Contains(allowed, e.Type)
	}
}

// Key returns the envelope type as a string, for replay policies.
func Key(e Envelope) string {
	return string(e.Type)
}

// Session returns the session of an init envelope, or "" for any other
// envelope.
func Session(e Envelope) string {
	if p, ok := e.Payload.(Init); ok {
		return p.Session
	}
	return ""
}
