package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies a domain failure so handlers can pick a status code
type Kind string

const (
	KindNotFound         Kind = "NOT_FOUND"
	KindBadRequest       Kind = "BAD_REQUEST"
	KindUnauthorized     Kind = "UNAUTHORIZED"
	KindForbidden        Kind = "FORBIDDEN"
	KindInvalidSignature Kind = "INVALID_SIGNATURE"
	KindProvider         Kind = "PROVIDER_ERROR"
	KindInternal         Kind = "INTERNAL_ERROR"
)

// Error is a domain error with a user-facing message
type Error struct {
	Kind    Kind
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

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return newError(KindNotFound, format, args...)
}

func BadRequest(format string, args ...interface{}) *Error {
	return newError(KindBadRequest, format, args...)
}

func Unauthorized(format string, args ...interface{}) *Error {
	return newError(KindUnauthorized, format, args...)
}

func Forbidden(format string, args ...interface{}) *Error {
	return newError(KindForbidden, format, args...)
}

func InvalidSignature(format string, args ...interface{}) *Error {
	return newError(KindInvalidSignature, format, args...)
}

// Provider wraps a failure reported by, or while talking to, the payment provider
func Provider(err error, format string, args ...interface{}) *Error {
	e := newError(KindProvider, format, args...)
	e.Err = err
	return e
}

// KindOf returns the kind of err, or KindInternal for errors that are not *Error
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// MessageOf returns the user-facing message of err
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "Internal server error"
}
