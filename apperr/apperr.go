// Package apperr defines the error taxonomy shared by the service layer and
// the HTTP handlers. ValidationFailed and NotFound are expected, user-facing
// outcomes; Internal wraps unexpected faults whose details stay server-side.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidationFailed
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidationFailed:
		return "VALIDATION_FAILED"
	case KindNotFound:
		return "NOT_FOUND"
	default:
		return "INTERNAL"
	}
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func ValidationFailed(message string) *Error {
	return &Error{Kind: KindValidationFailed, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf reports the kind of err. Errors that are not *Error are treated as
// internal faults.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func IsValidationFailed(err error) bool { return KindOf(err) == KindValidationFailed }

func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }
