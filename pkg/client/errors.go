package client

import "errors"

var (
	// ErrRequestNonSuccess is returned when a call to the correlator API returns a non-success status
	ErrRequestNonSuccess = errors.New("got a non-success response from correlator")

	// ErrMissingURL is returned when a client is constructed without an API URL
	ErrMissingURL = errors.New("missing correlator api url")

	// ErrNilEchoRequest is returned when a nil echo body is passed to a request
	ErrNilEchoRequest = errors.New("nil echo request")

	// ErrNilPublishRequest is returned when a nil publish body is passed to a request
	ErrNilPublishRequest = errors.New("nil publish request")
)
