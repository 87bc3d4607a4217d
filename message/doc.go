// Package message defines the envelope exchanged between the page hook,
// the content relay and the devtools panel, and the codecs that carry it
// across process boundaries.
//
// An [Envelope] is a tagged union: its [Type] selects the concrete
// [Payload] variant ([Init], [UpdateState], [ExtensionShowing], or [Raw]
// for types this package does not know).
//
// # Wire format
//
// With the default JSON marshaler an envelope encodes as:
//
//	{"source": "prosemirror-devtools-bridge", "type": "init", "payload": {...}}
//
// [Codec] validates the shape once at the transport boundary. Input that
// is not an object with a string type fails with [ErrMalformed]; routing
// stages then operate on typed values only.
//
// # Marshalers
//
// JSON ([NewJSONMarshaler]), CBOR ([NewCBORMarshaler]) and MessagePack
// ([NewMsgpackMarshaler]) are available. [NewCompressedMarshaler] wraps any
// of them with zstd for large editor snapshots.
//
// # Matchers
//
// [FromExtension] and [OfType] are the predicates used by the relay
// filters; [Key] returns the type used by replay policies.
package message
