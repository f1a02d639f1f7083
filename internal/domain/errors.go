package domain

import (
	"errors"
	"fmt"
)

// Error codes shared by the services and the HTTP layer. The handler
// package maps each one to a status code.
const (
	EINVALID      = "invalid"
	EUNAUTHORIZED = "unauthorized"
	EFORBIDDEN    = "forbidden"
	ENOTFOUND     = "not_found"
	ECONFLICT     = "conflict" // duplicate email, load already claimed
	ETOOLARGE     = "too_large"
	ERATELIMIT    = "rate_limit"
	EINTERNAL     = "internal"
)

// internalMessage replaces the message of EINTERNAL errors before they are
// shown to a user.
const internalMessage = "An internal error occurred. Please try again later."

// Error is a failure of a service operation. Message is safe to show to the
// user unless Code is EINTERNAL.
type Error struct {
	Code    string
	Op      string // e.g. "LoadService.Claim"
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func newError(code, op, message string) *Error {
	return &Error{Code: code, Op: op, Message: message}
}

// Errorf creates an Error with a formatted message.
func Errorf(code, op, format string, args ...any) *Error {
	return newError(code, op, fmt.Sprintf(format, args...))
}

// Wrap attaches a code and a user-facing message to err.
func Wrap(err error, code, op, message string) *Error {
	e := newError(code, op, message)
	e.Err = err
	return e
}

func NotFound(op, resource, id string) *Error {
	return Errorf(ENOTFOUND, op, "%s with ID %q not found", resource, id)
}

func Invalid(op, message string) *Error      { return newError(EINVALID, op, message) }
func Unauthorized(op, message string) *Error { return newError(EUNAUTHORIZED, op, message) }
func Forbidden(op, message string) *Error    { return newError(EFORBIDDEN, op, message) }
func Conflict(op, message string) *Error     { return newError(ECONFLICT, op, message) }

// Internal wraps an unexpected failure. message is logged, never shown.
func Internal(err error, op, message string) *Error {
	return Wrap(err, EINTERNAL, op, message)
}

func asError(err error) (*Error, bool) {
	var e *Error
	if err == nil || !errors.As(err, &e) {
		return nil, false
	}
	return e, true
}

// ErrorCode returns the code carried by err. Errors that are not an *Error
// count as EINTERNAL; nil has no code.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	if e, ok := asError(err); ok {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage returns the message to show the user for err.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	if e, ok := asError(err); ok && e.Code != EINTERNAL {
		return e.Message
	}
	return internalMessage
}

// ErrorOp returns the operation that produced err, if known.
func ErrorOp(err error) string {
	if e, ok := asError(err); ok {
		return e.Op
	}
	return ""
}

// IsCode reports whether err carries code.
func IsCode(err error, code string) bool {
	return err != nil && ErrorCode(err) == code
}

// ValidationError holds per-field messages keyed by form field name.
type ValidationError struct {
	Op     string
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: validation failed on %d field(s)", e.Op, len(e.Fields))
}

// Field returns the message recorded for name, or "".
func (e *ValidationError) Field(name string) string {
	return e.Fields[name]
}

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(op, field, message string) *ValidationError {
	return &ValidationError{Op: op, Fields: map[string]string{field: message}}
}
