package message

import (
	"encoding/json"
	"fmt"
)

// PayloadValidator validates the JSON form of a payload for an envelope type.
type PayloadValidator interface {
	Validate(envelopeType string, payload []byte) error
}

// CodecConfig configures a Codec.
type CodecConfig struct {
	// Marshaler encodes the wire form (default: JSON).
	Marshaler Marshaler
	// Validator checks payloads on decode. Optional.
	Validator PayloadValidator
}

// Codec converts envelopes to and from their wire form.
type Codec struct {
	m Marshaler
	v PayloadValidator
}

// DefaultCodec encodes JSON without payload validation.
var DefaultCodec = NewCodec(CodecConfig{})

// NewCodec creates a Codec.
func NewCodec(config CodecConfig) *Codec {
	m := config.Marshaler
	if m == nil {
		m = NewJSONMarshaler()
	}
	return &Codec{m: m, v: config.Validator}
}

type wireEnvelope struct {
	Source  string `json:"source"`
	Type    Type   `json:"type"`
	Payload any    `json:"payload"`
}

// ContentType returns the content type of encoded envelopes.
func (c *Codec) ContentType() string {
	return c.m.DataContentType()
}

// Encode returns the wire form of e.
func (c *Codec) Encode(e Envelope) ([]byte, error) {
	w := wireEnvelope{Source: e.Source, Type: e.Type}
	switch p := e.Payload.(type) {
	case nil:
	case ExtensionShowing:
		w.Payload = bool(p)
	case Raw:
		w.Payload = p.Value
	default:
		w.Payload = p
	}
	data, err := c.m.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("message: encode %s: %w", e.Type, err)
	}
	return data, nil
}

// Decode parses data into an envelope. Data that is not an object with a
// non-empty string type fails with ErrMalformed. A payload rejected by the
// validator fails with ErrInvalidPayload. The source tag is not checked.
func (c *Codec) Decode(data []byte) (Envelope, error) {
	var doc any
	if err := c.m.Unmarshal(data, &doc); err != nil {
		return Envelope{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return Envelope{}, fmt.Errorf("%w: not an object", ErrMalformed)
	}
	typ, ok := obj["type"].(string)
	if !ok || typ == "" {
		return Envelope{}, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	source, _ := obj["source"].(string)
	raw := obj["payload"]

	if c.v != nil {
		js, err := json.Marshal(raw)
		if err != nil {
			return Envelope{}, fmt.Errorf("%w: %s: %w", ErrInvalidPayload, typ, err)
		}
		if err := c.v.Validate(typ, js); err != nil {
			return Envelope{}, fmt.Errorf("%w: %s: %w", ErrInvalidPayload, typ, err)
		}
	}

	p, err := c.decodePayload(Type(typ), raw)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Source: source, Type: Type(typ), Payload: p}, nil
}

func (c *Codec) decodePayload(t Type, raw any) (Payload, error) {
	switch t {
	case TypeInit:
		var p Init
		if err := c.remarshal(t, raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	case TypeUpdateState:
		var p UpdateState
		if err := c.remarshal(t, raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	case TypeExtensionShowing:
		b, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: %s payload must be a boolean", ErrMalformed, t)
		}
		return ExtensionShowing(b), nil
	default:
		return Raw{Kind: t, Value: raw}, nil
	}
}

func (c *Codec) remarshal(t Type, raw any, dst any) error {
	data, err := c.m.Marshal(raw)
	if err == nil {
		err = c.m.Unmarshal(data, dst)
	}
	if err != nil {
		return fmt.Errorf("%w: %s payload: %w", ErrMalformed, t, err)
	}
	return nil
}
