package message

import "github.com/google/uuid"

// IDGenerator generates unique identifiers.
type IDGenerator func() string

// DefaultIDGenerator is used for hook session IDs and transport event IDs.
var DefaultIDGenerator IDGenerator = uuid.NewString

// NewSessionID returns a new random session identifier.
func NewSessionID() string {
	return DefaultIDGenerator()
}
