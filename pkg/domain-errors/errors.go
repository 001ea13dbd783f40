// Package domainerrors carries the error taxonomy shared by services and transports.
//
// Services return *Error values with a Code; transports map codes to status codes
// (see pkg/platform/httputil). Stores never return these directly, they return
// pkg/platform/sentinel errors which services translate.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	// CodeValidation: missing or invalid required field; rejected before persistence.
	CodeValidation Code = "validation_error"
	// CodeBadRequest: malformed transport input (body, path, query).
	CodeBadRequest Code = "bad_request"
	// CodeNotFound: absent, or present but outside the caller's tenant/cell.
	CodeNotFound Code = "not_found"
	// CodeConflict: optimistic version check failed; retry after re-fetch.
	CodeConflict Code = "conflict"
	// CodeInvalidState: the requested transition is not allowed from the current status.
	CodeInvalidState Code = "invalid_state"
	// CodeInvalidFormat: malformed case number.
	CodeInvalidFormat Code = "invalid_format"
	// CodeAllocationFailure: case number could not be allocated; retryable.
	CodeAllocationFailure Code = "allocation_failure"
	// CodeUnavailable: transient persistence failure; retryable.
	CodeUnavailable Code = "unavailable"
	// CodeUnauthorized: missing or invalid identity context.
	CodeUnauthorized Code = "unauthorized"
	// CodeInvariantViolation: a model constructor rejected its input.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeInternal: anything else. Descriptions are never exposed to callers.
	CodeInternal Code = "internal_error"
)

// Error is a coded domain error with an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same code and message, so tests can use
// errors.Is(err, New(code, msg)).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// New creates a domain error.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf returns the code of the outermost domain error in the chain,
// or CodeInternal when there is none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is shorthand for HasCode.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}
