// Package apperrors defines the error taxonomy shared by the register's
// packages and the mapping of errors to operator-facing messages.
//
// Errors carry a stable Code so that callers can branch on the category
// (errors.Is matches by code) without parsing messages:
//
//	if apperrors.IsIO(err) {
//	    // prompt for another path and retry
//	}
package apperrors

import (
	"errors"
	"fmt"
)

// Code represents an error category independent of the caller (console, web).
type Code string

const (
	CodeValidation Code = "validation_failed"
	CodeParse      Code = "parse_failed"
	CodeIO         Code = "io_error"
	CodeClosed     Code = "closed"
	CodeBadRequest Code = "bad_request"
	CodeMediaType  Code = "unsupported_media_type"
	CodeInternal   Code = "internal_error"
)

// Error wraps a failure with a stable code.
// Op and Path are optional and describe the file operation for CodeIO.
type Error struct {
	Code    Code
	Op      string
	Path    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Op != "" {
		if e.Path != "" {
			msg = fmt.Sprintf("%s %s: %s", e.Op, e.Path, msg)
		} else {
			msg = fmt.Sprintf("%s: %s", e.Op, msg)
		}
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap implements error unwrapping for error chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is enables errors.Is() to match errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates an error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap creates an error wrapping err. If err already carries a code, that code
// is preserved.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Code: existing.Code, Message: msg, Err: err}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// IO wraps a file-system failure of op on path.
func IO(op, path string, err error) error {
	return &Error{Code: CodeIO, Op: op, Path: path, Message: "file error", Err: err}
}

// HasCode checks if err carries the given code anywhere in its chain.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsIO reports whether err is a file-system failure.
func IsIO(err error) bool {
	return HasCode(err, CodeIO)
}
