package backend

import (
	"errors"
	"fmt"
)

// ErrRequestFailed matches every error returned by Client.Do.
var ErrRequestFailed = errors.New("backend request failed")

// Error is the single failure type of the client. The embedded status code of the
// payload, the HTTP status and transport failures all surface through it.
type Error struct {
	Endpoint   string
	HTTPStatus int // 0 when no response was received
	StatusCode int // statusCode embedded in the payload, 0 when absent
	Message    string
	Err        error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Is(target error) bool {
	return target == ErrRequestFailed
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transport reports whether the call never produced an HTTP response.
func (e *Error) Transport() bool {
	return e.HTTPStatus == 0
}

// Status returns the embedded status code when present and the HTTP status otherwise.
func (e *Error) Status() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}
	return e.HTTPStatus
}

func (e *Error) outcome() string {
	switch {
	case e.Transport():
		return "transport_error"
	case e.StatusCode != 0:
		return "rejected"
	default:
		return fmt.Sprintf("http_%d", e.HTTPStatus)
	}
}

// AsError extracts the *Error from err, if any.
func AsError(err error) (*Error, bool) {
	var be *Error
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}
