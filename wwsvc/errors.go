package wwsvc

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated is returned when a signed request is attempted on an
	// unregistered client. No network I/O happens in that case.
	ErrNotAuthenticated = errors.New("wwsvc: client is not authenticated")

	// ErrMissingCredentials is returned by NewRegistered without credentials.
	ErrMissingCredentials = errors.New("wwsvc: missing credentials")

	// ErrInvalidHeader is returned when a header name or value cannot be sent.
	ErrInvalidHeader = errors.New("wwsvc: invalid header name or value")

	// ErrRegistrationFailed wraps every REGISTER failure.
	ErrRegistrationFailed = errors.New("wwsvc: registration failed")
)

// TransportError reports a failed HTTP exchange.
type TransportError struct {
	Op  string // REGISTER, DEREGISTER or EXECJSON
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("wwsvc: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError reports a response body that did not match the expected shape.
// Body holds the raw response so callers can fall back to inspecting it.
type DecodeError struct {
	StatusCode int
	Body       []byte
	Err        error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("wwsvc: decode response (status %d): %v", e.StatusCode, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// URLError reports a malformed base URL.
type URLError struct {
	URL string
	Err error
}

func (e *URLError) Error() string {
	return fmt.Sprintf("wwsvc: invalid URL %q: %v", e.URL, e.Err)
}

func (e *URLError) Unwrap() error { return e.Err }
