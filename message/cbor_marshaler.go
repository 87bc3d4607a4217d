package message

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// CBORMarshaler implements Marshaler using CBOR (RFC 8949). Struct fields
// use their json tags, so payloads keep the JSON field names.
type CBORMarshaler struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// NewCBORMarshaler creates a CBOR marshaler with deterministic encoding.
// Maps decode as map[string]any so decoded documents mirror JSON.
func NewCBORMarshaler() *CBORMarshaler {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	dec, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic(err)
	}
	return &CBORMarshaler{enc: enc, dec: dec}
}

// Marshal encodes a value to CBOR bytes.
func (m *CBORMarshaler) Marshal(v any) ([]byte, error) {
	return m.enc.Marshal(v)
}

// Unmarshal decodes CBOR bytes into a value.
func (m *CBORMarshaler) Unmarshal(data []byte, v any) error {
	return m.dec.Unmarshal(data, v)
}

// DataContentType returns ContentTypeCBOR.
func (m *CBORMarshaler) DataContentType() string {
	return ContentTypeCBOR
}
