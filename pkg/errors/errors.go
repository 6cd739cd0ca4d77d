// Package errors provides standardized error definitions for the movie catalog.
//
// Every error that reaches an HTTP client is an *Error carrying a stable code,
// a human readable message and the HTTP status it maps to. Five kinds exist:
// validation, auth, conflict, not found and internal.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a structured application error.
type Error struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	HTTPStatus int         `json:"-"`
	Details    interface{} `json:"details,omitempty"`
	Err        error       `json:"-"` // Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetails returns a copy of the error carrying details.
func (e *Error) WithDetails(details interface{}) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

// WithError returns a copy of the error wrapping err.
// Predefined errors are shared, so they are never mutated in place.
func (e *Error) WithError(err error) *Error {
	cp := *e
	cp.Err = err
	return &cp
}

// WithMessage returns a copy of the error with a different message.
func (e *Error) WithMessage(msg string) *Error {
	cp := *e
	cp.Message = msg
	return &cp
}

// New creates a new Error.
func New(code, message string, httpStatus int) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an existing error with error code and message.
func Wrap(err error, code, message string, httpStatus int) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// Error codes
const (
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeUnauthorized    = "AUTH_ERROR"
	ErrCodeConflict        = "CONFLICT"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeTooManyRequests = "TOO_MANY_REQUESTS"

	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeTokenExpired       = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid       = "TOKEN_INVALID"
	ErrCodeNotOwner           = "NOT_OWNER"

	ErrCodeAlreadyFavorited = "ALREADY_FAVORITED"
	ErrCodeNotFavorited     = "NOT_FAVORITED"
	ErrCodeDuplicateEmail   = "DUPLICATE_EMAIL"
	ErrCodeDuplicateUser    = "DUPLICATE_USERNAME"
	ErrCodeMovieNotFound    = "MOVIE_NOT_FOUND"
	ErrCodeUserNotFound     = "USER_NOT_FOUND"
)

// Predefined errors
var (
	ErrInternal        = New(ErrCodeInternal, "Internal server error", http.StatusInternalServerError)
	ErrValidation      = New(ErrCodeValidation, "Validation failed", http.StatusBadRequest)
	ErrUnauthorized    = New(ErrCodeUnauthorized, "Unauthorized", http.StatusUnauthorized)
	ErrNotFound        = New(ErrCodeNotFound, "Resource not found", http.StatusNotFound)
	ErrConflict        = New(ErrCodeConflict, "Resource conflict", http.StatusBadRequest)
	ErrTooManyRequests = New(ErrCodeTooManyRequests, "Too many requests", http.StatusTooManyRequests)
)

var (
	ErrInvalidCredentials = New(ErrCodeInvalidCredentials, "Invalid username or password", http.StatusUnauthorized)
	ErrTokenExpired       = New(ErrCodeTokenExpired, "Token has expired", http.StatusUnauthorized)
	ErrTokenInvalid       = New(ErrCodeTokenInvalid, "Invalid token", http.StatusUnauthorized)
	ErrNotOwner           = New(ErrCodeNotOwner, "Cannot act on behalf of another user", http.StatusUnauthorized)
)

var (
	// Conflicts are reported as 400 to match the public API contract.
	ErrAlreadyFavorited = New(ErrCodeAlreadyFavorited, "Movie already favorited", http.StatusBadRequest)
	ErrDuplicateEmail   = New(ErrCodeDuplicateEmail, "Email already registered", http.StatusBadRequest)
	ErrDuplicateUser    = New(ErrCodeDuplicateUser, "Username already taken", http.StatusBadRequest)

	ErrNotFavorited  = New(ErrCodeNotFavorited, "Favorite not found", http.StatusNotFound)
	ErrMovieNotFound = New(ErrCodeMovieNotFound, "Movie not found", http.StatusNotFound)
	ErrUserNotFound  = New(ErrCodeUserNotFound, "User not found", http.StatusNotFound)
)

// Validation creates a validation error with a specific message.
func Validation(msg string) *Error {
	return ErrValidation.WithMessage(msg)
}

// Internal wraps an unexpected error as an internal error.
func Internal(err error) *Error {
	return ErrInternal.WithError(err)
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsError checks if an error is a specific application error.
func IsError(err error, target *Error) bool {
	appErr, ok := As(err)
	if !ok {
		return false
	}
	return appErr.Code == target.Code
}

// GetHTTPStatus returns the HTTP status code for an error.
// If the error is not an *Error, returns 500.
func GetHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	appErr, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	return appErr.HTTPStatus
}

// GetCode returns the error code for an error.
// If the error is not an *Error, returns INTERNAL_ERROR.
func GetCode(err error) string {
	if err == nil {
		return ""
	}
	appErr, ok := As(err)
	if !ok {
		return ErrCodeInternal
	}
	return appErr.Code
}
