package configs

import "errors"

var (
	// ErrMissingNATSURL is returned when a NATS server url is not provided
	ErrMissingNATSURL = errors.New("nats url is required")
	// ErrMissingCorrelationHeader is returned when the correlation header name is empty
	ErrMissingCorrelationHeader = errors.New("correlation header name is required")
)
