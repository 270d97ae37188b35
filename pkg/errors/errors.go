package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors sharing the same code, so clones compare equal to their template.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid username or password")
	ErrAuth               = New("AUTH_ERROR", http.StatusUnauthorized, "session missing or expired")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrCreditLimit        = New("CREDIT_LIMIT_EXCEEDED", http.StatusUnprocessableEntity, "maximum credit limit reached")
	ErrCourseUnavailable  = New("COURSE_NOT_AVAILABLE", http.StatusUnprocessableEntity, "course is not available for selection")
	ErrAlreadyEnrolled    = New("ALREADY_ENROLLED", http.StatusConflict, "course already selected")
	ErrNotEnrolled        = New("NOT_ENROLLED", http.StatusUnprocessableEntity, "course is not selected")
	ErrNetwork            = New("NETWORK_ERROR", http.StatusBadGateway, "registrar unavailable")
	ErrPartialBatch       = New("PARTIAL_BATCH_FAILURE", http.StatusMultiStatus, "some rows failed to import")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// IsValidation reports whether err is one of the checks made before any network call.
func IsValidation(err error) bool {
	for _, target := range []*Error{ErrValidation, ErrCreditLimit, ErrCourseUnavailable, ErrAlreadyEnrolled, ErrNotEnrolled} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
