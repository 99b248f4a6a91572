package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a failure for the HTTP boundary.
type ErrorKind string

const (
	ErrorKindValidation ErrorKind = "validation"
	ErrorKindNotFound   ErrorKind = "not_found"
	ErrorKindConflict   ErrorKind = "conflict"
	ErrorKindInternal   ErrorKind = "internal"
)

// Error is the classified error raised by repositories and forwarded
// unchanged by the service layer.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Status is the HTTP status code the error maps to.
func (e *Error) Status() int {
	switch e.Kind {
	case ErrorKindValidation, ErrorKindNotFound, ErrorKindConflict:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// NewValidationError creates an error for missing or malformed caller input.
func NewValidationError(message string) *Error {
	return &Error{Kind: ErrorKindValidation, Message: message}
}

// NewNotFoundError creates an error for an unknown user id.
func NewNotFoundError(id string) *Error {
	return &Error{
		Kind:    ErrorKindNotFound,
		Message: fmt.Sprintf("Can't find user with the id '%s'", id),
	}
}

// NewConflictError creates an error for a name that is already taken.
func NewConflictError(name string) *Error {
	return &Error{
		Kind:    ErrorKindConflict,
		Message: fmt.Sprintf("User with the name '%s' already exists", name),
	}
}

// NewInternalError wraps an unexpected failure.
func NewInternalError(message string, cause error) *Error {
	return &Error{Kind: ErrorKindInternal, Message: message, Cause: cause}
}

func IsNotFound(err error) bool   { return hasKind(err, ErrorKindNotFound) }
func IsConflict(err error) bool   { return hasKind(err, ErrorKindConflict) }
func IsValidation(err error) bool { return hasKind(err, ErrorKindValidation) }
func IsInternal(err error) bool   { return hasKind(err, ErrorKindInternal) }

func hasKind(err error, kind ErrorKind) bool {
	var de *Error
	return errors.As(err, &de) && de.Kind == kind
}
