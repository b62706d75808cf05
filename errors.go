/*
Package tablemap – error types.

Every failure raised by the mapping engine, the throttler and the transports
is an *Error carrying one of the codes below.
*/
package tablemap

import (
	"errors"
	"fmt"
)

// ErrorCode is a well-known error category string.
type ErrorCode string

const (
	ErrInvalidTable      ErrorCode = "InvalidTableError"
	ErrInvalidFieldType  ErrorCode = "InvalidFieldTypeError"
	ErrInvalidFieldValue ErrorCode = "InvalidFieldValueError"
	ErrInvalidRecord     ErrorCode = "InvalidRecordError"
	ErrMissingCredential ErrorCode = "MissingCredentialError"
	ErrTransport         ErrorCode = "TransportError"
	ErrArgument          ErrorCode = "ArgumentError"
	ErrConfig            ErrorCode = "ConfigError"
)

// Error is the general error. It carries an optional Code and a free-form
// Context map for extra debugging data. Transport failures also fill Status
// and StatusText.
type Error struct {
	Message    string
	Code       ErrorCode
	Context    map[string]any
	Cause      error
	Status     int
	StatusText string
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (%d %s)", msg, e.Status, e.StatusText)
	}
	if e.Code != "" {
		return fmt.Sprintf("[%s] %s", e.Code, msg)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError constructs an Error.
func NewError(msg string, opts ...func(*Error)) *Error {
	err := &Error{Message: msg}
	for _, o := range opts {
		o(err)
	}
	return err
}

// WithCode sets the error code.
func WithCode(c ErrorCode) func(*Error) {
	return func(e *Error) { e.Code = c }
}

// WithContext attaches a context map.
func WithContext(ctx map[string]any) func(*Error) {
	return func(e *Error) { e.Context = ctx }
}

// WithCause wraps an underlying error.
func WithCause(cause error) func(*Error) {
	return func(e *Error) { e.Cause = cause }
}

// WithStatus records the HTTP status of a failed transport call.
func WithStatus(status int, text string) func(*Error) {
	return func(e *Error) {
		e.Status = status
		e.StatusText = text
	}
}

// IsCode reports whether err, or any error it wraps, is an *Error with code c.
func IsCode(err error, c ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == c
	}
	return false
}

func tableError(tableID string) *Error {
	return NewError(fmt.Sprintf("Invalid table id %s", tableID),
		WithCode(ErrInvalidTable), WithContext(map[string]any{"tableId": tableID}))
}

func valueError(ref string, format string, args ...any) *Error {
	return NewError(fmt.Sprintf(format, args...),
		WithCode(ErrInvalidFieldValue), WithContext(map[string]any{"field": ref}))
}
