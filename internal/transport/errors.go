package transport

import (
	"errors"
	"fmt"
)

// Kind classifies a terminal transport failure.
type Kind int

const (
	// KindNetwork: the request never produced a response within the retry budget.
	KindNetwork Kind = iota + 1
	// KindServerError: every attempt answered with a retryable 5xx status.
	KindServerError
	// KindForbidden: 403 after rotation was exhausted or could not be performed.
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindServerError:
		return "server_error"
	case KindForbidden:
		return "forbidden"
	}
	return "unknown"
}

// ErrRotationFailed is returned by a Rotator that could not obtain a new circuit.
var ErrRotationFailed = errors.New("circuit rotation failed")

// TransportError is the terminal error of Transport.Execute. Response holds
// the last response received, if any.
type TransportError struct {
	Kind     Kind
	Method   string
	URL      string
	Attempts int
	Response *Response
	Err      error
}

func (e *TransportError) Error() string {
	msg := fmt.Sprintf("%s %s: %s after %d attempt(s)", e.Method, e.URL, e.Kind, e.Attempts)
	if e.Response != nil {
		msg += fmt.Sprintf(" (last status %d)", e.Response.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsForbidden reports whether err is a terminal 403.
func IsForbidden(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Kind == KindForbidden
}
