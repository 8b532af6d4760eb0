package pwa

import (
	"errors"
	"fmt"
)

// Error codes used across the toolkit.
const (
	CodeAlignment    = "DATA_ALIGNMENT"
	CodeNumeric      = "DOMAIN_NUMERIC"
	CodeOrdering     = "ORDERING"
	CodeResource     = "RESOURCE"
	CodeInvalidInput = "INVALID_INPUT"
)

// Error is a coded error carrying an optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("pwa: %s: %v", e.Message, e.Cause)
	}
	return "pwa: " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError returns an *Error with a formatted message.
func NewError(code, format string, args ...interface{}) *Error {
	return newError(code, format, args...)
}

func newError(code, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps err with a message. The code of a wrapped *Error is kept,
// anything else is tagged as a resource error.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	code := CodeResource
	var perr *Error
	if errors.As(err, &perr) {
		code = perr.Code
	}
	return &Error{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// GetCode returns the code of the outermost *Error in err's chain,
// or "UNKNOWN".
func GetCode(err error) string {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Code
	}
	return "UNKNOWN"
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code string) bool {
	return GetCode(err) == code
}
