package message

import "errors"

var (
	// ErrMalformed is returned when data does not decode into an envelope.
	ErrMalformed = errors.New("message: malformed envelope")
	// ErrInvalidPayload is returned when a payload fails validation.
	ErrInvalidPayload = errors.New("message: invalid payload")
	// ErrUnknownMarshaler is returned by NewMarshaler for unknown names.
	ErrUnknownMarshaler = errors.New("message: unknown marshaler")
)

// ErrInvalidSchemaSpec is returned when a schema spec is not in the
// ordered {"content": [name, spec, ...]} form.
var ErrInvalidSchemaSpec = errors.New("message: invalid schema spec")
