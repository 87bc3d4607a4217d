package message

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"
)

// MsgpackMarshaler implements Marshaler using MessagePack. Struct fields
// use their json tags.
type MsgpackMarshaler struct{}

// NewMsgpackMarshaler creates a new MessagePack marshaler.
func NewMsgpackMarshaler() *MsgpackMarshaler {
	return &MsgpackMarshaler{}
}

// Marshal encodes a value to MessagePack bytes.
func (m *MsgpackMarshaler) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes MessagePack bytes into a value.
func (m *MsgpackMarshaler) Unmarshal(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}

// DataContentType returns ContentTypeMsgpack.
func (m *MsgpackMarshaler) DataContentType() string {
	return ContentTypeMsgpack
}
