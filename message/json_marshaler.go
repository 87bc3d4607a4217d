package message

import (
	"bytes"
	"encoding/json"
)

// JSONMarshaler encodes envelopes as JSON. HTML characters are written
// unescaped since editor state and view attributes routinely carry markup.
type JSONMarshaler struct{}

// NewJSONMarshaler creates a JSON marshaler.
func NewJSONMarshaler() *JSONMarshaler {
	return &JSONMarshaler{}
}

// Marshal encodes v without a trailing newline.
func (m *JSONMarshaler) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Unmarshal decodes JSON data into v.
func (m *JSONMarshaler) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// DataContentType returns ContentTypeJSON.
func (m *JSONMarshaler) DataContentType() string {
	return ContentTypeJSON
}
