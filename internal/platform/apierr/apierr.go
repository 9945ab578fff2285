package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeMissingParameter = "missing_parameter"
	CodeInvalidParameter = "invalid_parameter"
	CodeServerError      = "server_error"
)

// Error is a failure that already knows how it should be reported to an HTTP
// client: a status, a machine code, and a human-readable message in Err.
type Error struct {
	Status int
	Code   string
	Param  string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func MissingParameter(name string) *Error {
	return &Error{
		Status: http.StatusBadRequest,
		Code:   CodeMissingParameter,
		Param:  name,
		Err:    fmt.Errorf("You must specify a '%s' parameter.", name),
	}
}

func InvalidParameter(name, value string) *Error {
	return &Error{
		Status: http.StatusBadRequest,
		Code:   CodeInvalidParameter,
		Param:  name,
		Err:    fmt.Errorf("Illegal %s '%s'", name, value),
	}
}

func ServerError(message string) *Error {
	return &Error{
		Status: http.StatusInternalServerError,
		Code:   CodeServerError,
		Err:    errors.New(message),
	}
}

// As extracts an *Error from err. Anything else is reported as a generic
// server error carrying fallback as its message.
func As(err error, fallback string) *Error {
	var ae *Error
	if errors.As(err, &ae) && ae != nil {
		return ae
	}
	return ServerError(fallback)
}
