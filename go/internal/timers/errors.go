package timers

import "errors"

var (
	// ErrTimerNotFound is returned when a timer does not exist, belongs to
	// someone else, or has already been stopped.
	ErrTimerNotFound = errors.New("timer not found or already stopped")

	// ErrInvalidDescription is returned for descriptions over MaxDescriptionLength.
	ErrInvalidDescription = errors.New("invalid timer description")
)
