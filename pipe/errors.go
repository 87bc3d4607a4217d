package pipe

import "errors"

var (
	// ErrAlreadyStarted is returned when Replay is called on a replay
	// operator that is already attached to an upstream source.
	ErrAlreadyStarted = errors.New("pipe: already started")
	// ErrInvalidConfig is returned for a replay configuration missing a
	// required field.
	ErrInvalidConfig = errors.New("pipe: invalid config")
	// ErrUnknownPick is returned for a policy with an unsupported pick.
	ErrUnknownPick = errors.New("pipe: unknown pick policy")
)
