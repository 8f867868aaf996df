package signal

import "errors"

var (
	// ErrInvalidPayload is returned when a consumed payload is missing a
	// required semantic field or carries one with an unusable value
	ErrInvalidPayload = errors.New("invalid signal payload")

	// ErrSignalNotFound is returned when a signal cannot be found in the database
	ErrSignalNotFound = errors.New("signal not found")

	// ErrInvalidSignalID is returned when a signal id is not a valid UUID
	ErrInvalidSignalID = errors.New("invalid signal id")
)
