// Package apperr defines the error taxonomy shared by the services and the
// HTTP layer.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an application error.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthentication
	KindPermission
	KindNotFound
	KindRule
)

// Error is an application error with a client-safe message.
type Error struct {
	Kind    Kind
	Message string
	// Fields holds per-field messages for validation failures.
	Fields map[string]string
}

func (e *Error) Error() string {
	return e.Message
}

// Is reports whether target is an *Error of the same kind and message, so
// that the sentinel rule errors below match with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == e.Message
}

// Registration rule violations.
var (
	ErrSelfRegistration  = &Error{Kind: KindRule, Message: "you cannot register for your own event"}
	ErrAlreadyRegistered = &Error{Kind: KindRule, Message: "you are already registered for this event"}
	ErrNotRegistered     = &Error{Kind: KindRule, Message: "you are not registered for this event"}
	ErrEventFull         = &Error{Kind: KindRule, Message: "this event has reached maximum capacity"}
)

// ErrInvalidPage is returned for a page number that is not a positive
// integer or lies past the last page.
var ErrInvalidPage = &Error{Kind: KindNotFound, Message: "invalid page"}

// Validation returns a validation error without field details.
func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// FieldError returns a validation error for a single field.
func FieldError(field, msg string) *Error {
	return &Error{
		Kind:    KindValidation,
		Message: "invalid input",
		Fields:  map[string]string{field: msg},
	}
}

// Fields returns a validation error for several fields. It returns nil when
// fields is empty so callers can collect problems and return the result directly.
func Fields(fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return &Error{Kind: KindValidation, Message: "invalid input", Fields: fields}
}

func Authentication(msg string) *Error {
	return &Error{Kind: KindAuthentication, Message: msg}
}

func Permission(msg string) *Error {
	return &Error{Kind: KindPermission, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Status maps err to an HTTP status code.
func Status(err error) int {
	switch KindOf(err) {
	case KindValidation, KindRule:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindPermission:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
