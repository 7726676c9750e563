package errors

import (
	stderrors "errors"
	"fmt"
)

// APIError is the error type every component returns for expected failures.
// The HTTP layer renders it as JSON; the realtime channel turns it into an
// "error" event.
type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
	Details string    `json:"details,omitempty"`
	Status  int       `json:"-"`
	cause   error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.cause
}

func newError(code ErrorCode, message string) *APIError {
	return &APIError{Code: code, Message: message, Status: code.StatusCode()}
}

// ValidationError reports missing or malformed input.
func ValidationError(field, message string) *APIError {
	e := newError(ErrValidation, message)
	e.Field = field
	return e
}

// Unauthorized reports a missing, invalid or expired credential.
func Unauthorized(message string) *APIError {
	return newError(ErrUnauthorized, message)
}

// Forbidden reports an actor lacking rights over a resource.
func Forbidden(message string) *APIError {
	return newError(ErrForbidden, message)
}

// NotFound creates a NOT_FOUND error
func NotFound(resource string) *APIError {
	return newError(ErrNotFound, fmt.Sprintf("%s not found", resource))
}

// Conflict creates a CONFLICT error
func Conflict(message string) *APIError {
	return newError(ErrConflict, message)
}

// RateLimited creates a RATE_LIMITED error
func RateLimited(message string) *APIError {
	if message == "" {
		message = "rate limit exceeded"
	}
	return newError(ErrRateLimited, message)
}

// Upstream reports a failing external service. Callers normally degrade
// instead of returning it.
func Upstream(service string, cause error) *APIError {
	e := newError(ErrUpstream, fmt.Sprintf("%s is unavailable", service))
	e.cause = cause
	return e
}

// ServiceUnavailable creates a SERVICE_UNAVAILABLE error
func ServiceUnavailable(service string) *APIError {
	return newError(ErrServiceUnavail, fmt.Sprintf("%s is temporarily unavailable", service))
}

// InternalError wraps an unexpected failure. The cause is kept for logging
// and never rendered to clients.
func InternalError(message string, cause error) *APIError {
	e := newError(ErrInternalError, message)
	e.cause = cause
	return e
}

// WithDetails adds additional details to an error
func (e *APIError) WithDetails(details string) *APIError {
	e.Details = details
	return e
}

// As extracts an *APIError from err's chain.
func As(err error) (*APIError, bool) {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// From maps any error onto the taxonomy. Anything that is not already an
// APIError is treated as internal.
func From(err error) *APIError {
	if err == nil {
		return nil
	}
	if apiErr, ok := As(err); ok {
		return apiErr
	}
	return InternalError("internal server error", err)
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	apiErr, ok := As(err)
	return ok && apiErr.Code == code
}
