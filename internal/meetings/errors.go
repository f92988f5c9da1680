package meetings

import (
	"errors"
	"fmt"
)

// Kind classifies every failure that crosses the engine boundary.
type Kind string

const (
	KindNotFound         Kind = "not_found"
	KindInvalidState     Kind = "invalid_state"
	KindCapacityExceeded Kind = "capacity_exceeded"
	KindUnauthorized     Kind = "unauthorized"
	KindValidation       Kind = "validation"
	KindProvider         Kind = "provider"
	KindConflict         Kind = "conflict"
)

// Error is a classified engine failure with a caller-safe message.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Errf builds a classified error.
func Errf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapErr builds a classified error keeping the cause for logs; the cause
// text is never part of the caller-visible message.
func WrapErr(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// KindOf returns the classification of err, or "" for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
