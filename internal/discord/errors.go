package discord

import "fmt"

// APIError is a structured error payload returned by the API for a
// non-retryable status. It is never produced for throttling responses;
// those are absorbed by the client's retry loop.
type APIError struct {
	URL     string
	Message string
	Code    int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("while executing request %s: %s (code %d)", e.URL, e.Message, e.Code)
}

// DecodeError wraps a JSON decoding failure for a response body that did
// not match the expected schema.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode response from %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
