package message

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// CompressedMarshaler wraps a Marshaler with zstd compression.
// Init snapshots carry whole documents and schemas; compressing them
// keeps transport frames small.
type CompressedMarshaler struct {
	inner Marshaler
	enc   *zstd.Encoder
	dec   *zstd.Decoder
}

// NewCompressedMarshaler creates a marshaler that compresses the output of inner.
func NewCompressedMarshaler(inner Marshaler) *CompressedMarshaler {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		panic(err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		panic(err)
	}
	return &CompressedMarshaler{inner: inner, enc: enc, dec: dec}
}

// Marshal encodes with inner, then compresses.
func (m *CompressedMarshaler) Marshal(v any) ([]byte, error) {
	data, err := m.inner.Marshal(v)
	if err != nil {
		return nil, err
	}
	return m.enc.EncodeAll(data, nil), nil
}

// Unmarshal decompresses, then decodes with inner.
func (m *CompressedMarshaler) Unmarshal(data []byte, v any) error {
	raw, err := m.dec.DecodeAll(data, nil)
	if err != nil {
		return fmt.Errorf("zstd: %w", err)
	}
	return m.inner.Unmarshal(raw, v)
}

// DataContentType returns the inner content type with a "+zstd" suffix.
func (m *CompressedMarshaler) DataContentType() string {
	return m.inner.DataContentType() + "+zstd"
}
