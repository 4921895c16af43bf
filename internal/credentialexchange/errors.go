package credentialexchange

import (
	"errors"
	"fmt"
)

var (
	ErrTransport       = errors.New("transport error")
	ErrParse           = errors.New("unable to parse response")
	ErrMissingField    = errors.New("missing field in response")
	ErrUnknownEncoding = errors.New("unknown encoding")
)

// TransportError is returned when the request could not be completed
// or the endpoint answered with a non 2xx status.
type TransportError struct {
	StatusCode int
	Status     string
	// Body holds the start of the raw response body on a non 2xx status
	Body string
	Err  error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", ErrTransport, e.Err)
	}
	if e.Body != "" {
		return fmt.Sprintf("%s: unexpected status %s (%s)", ErrTransport, e.Status, e.Body)
	}
	return fmt.Sprintf("%s: unexpected status %s", ErrTransport, e.Status)
}

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

func (e *TransportError) Unwrap() error { return e.Err }

// ParseError is returned when the response body is not a well formed document
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", ErrParse, e.Err)
}

func (e *ParseError) Is(target error) bool { return target == ErrParse }

func (e *ParseError) Unwrap() error { return e.Err }

// MissingFieldError names the element that could not be located in an otherwise well formed response
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingField, e.Field)
}

func (e *MissingFieldError) Is(target error) bool { return target == ErrMissingField }
