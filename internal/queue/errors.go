package queue

import "errors"

var (
	// ErrNotFound is returned when an operation names an unknown item.
	ErrNotFound = errors.New("queue item not found")
	// ErrInvalidState is returned when an item's status does not allow the
	// requested transition.
	ErrInvalidState = errors.New("invalid queue item state")
)
