package message

import "fmt"

// Content types reported by the marshalers of this package. The zstd
// wrapper appends "+zstd".
const (
	ContentTypeJSON    = "application/json"
	ContentTypeCBOR    = "application/cbor"
	ContentTypeMsgpack = "application/msgpack"
)

// Marshaler handles serialization and deserialization of message data.
type Marshaler interface {
	// Marshal encodes a value to bytes.
	Marshal(v any) ([]byte, error)

	// Unmarshal decodes bytes into a value.
	Unmarshal(data []byte, v any) error

	// DataContentType returns the content type of the encoded data, such
	// as ContentTypeJSON.
	DataContentType() string
}

// NewMarshaler returns the marshaler registered under name: "json",
// "cbor" or "msgpack". An empty name selects JSON. If compress is true the
// marshaler is wrapped with zstd compression.
func NewMarshaler(name string, compress bool) (Marshaler, error) {
	var m Marshaler
	switch name {
	case "", "json":
		m = NewJSONMarshaler()
	case "cbor":
		m = NewCBORMarshaler()
	case "msgpack":
		m = NewMsgpackMarshaler()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMarshaler, name)
	}
	if compress {
		m = NewCompressedMarshaler(m)
	}
	return m, nil
}
