package rag

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingHost is returned by New when no service host is configured.
	ErrMissingHost = errors.New("missing host")

	// ErrMissingKey is returned by New when no API key is configured.
	ErrMissingKey = errors.New("missing api key")
)

// RequestError is returned when the service answers with a non-2xx status.
type RequestError struct {
	Status int
	Body   string
}

func (e *RequestError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("service returned status %d", e.Status)
	}
	return fmt.Sprintf("service returned status %d: %s", e.Status, e.Body)
}

// BadCompletionError is returned when a completion payload is structurally
// invalid, for example not JSON or missing choices entirely.
type BadCompletionError struct {
	Reason string
}

func (e *BadCompletionError) Error() string {
	return fmt.Sprintf("bad completion payload: %s", e.Reason)
}

// StreamError is returned when a stream dies after content has already
// been delivered. Partial holds everything forwarded before the failure
// so callers can keep it instead of discarding the message.
type StreamError struct {
	Partial string
	Err     error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream interrupted after %d bytes: %v", len(e.Partial), e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}
