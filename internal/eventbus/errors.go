package eventbus

import "errors"

var (
	// ErrEmptyEvent is returned when an empty event is passed
	ErrEmptyEvent = errors.New("event is empty")
	// ErrNilHandler is returned when a subscription handler is not provided
	ErrNilHandler = errors.New("event handler is required")
)
