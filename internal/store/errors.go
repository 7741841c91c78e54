package store

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a persistence error with an HTTP status code.
type Error struct {
	Code    int    // HTTP status code
	Message string // User-facing message
	Err     error  // Underlying error (optional)
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any store error with the same status code, so a message
// variant of ErrAlreadyExists still satisfies errors.Is(err, ErrAlreadyExists).
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPCode returns the HTTP status code associated with this error.
func (e *Error) HTTPCode() int { return e.Code }

// WithMessage returns a new error with a custom message.
func (e *Error) WithMessage(msg string) *Error {
	return &Error{Code: e.Code, Message: msg, Err: e.Err}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Err: err}
}

// Sentinel errors.
var (
	ErrNotFound = &Error{
		Code:    http.StatusNotFound,
		Message: "resource not found",
	}

	ErrAlreadyExists = &Error{
		Code:    http.StatusConflict,
		Message: "resource already exists",
	}

	// ErrCorrupt marks a stored document that exists but cannot be decoded.
	ErrCorrupt = &Error{
		Code:    http.StatusInternalServerError,
		Message: "stored document is corrupt",
	}
)

// Field-specific uniqueness violations on profiles.
var (
	ErrUsernameTaken = ErrAlreadyExists.WithMessage("username already taken")
	ErrPhoneTaken    = ErrAlreadyExists.WithMessage("phone already in use")
	ErrEmailTaken    = ErrAlreadyExists.WithMessage("email already registered")
)
