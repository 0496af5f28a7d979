// Package domain provides canonical types and errors shared across the service.
package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the category of a service error.
type ErrorType string

const (
	// ErrorTypeValidation indicates malformed input, such as an unrecognized
	// metric type handed to the event store.
	ErrorTypeValidation ErrorType = "validation"

	// ErrorTypeTransport indicates a network or auth failure calling the
	// completion service. Never retried by the backoff loop.
	ErrorTypeTransport ErrorType = "transport"

	// ErrorTypeRateLimit indicates the completion service returned a
	// 429-equivalent response.
	ErrorTypeRateLimit ErrorType = "rate_limit"

	// ErrorTypeOverloaded indicates the completion service is overloaded.
	ErrorTypeOverloaded ErrorType = "overloaded"

	// ErrorTypeServer indicates an internal or upstream 5xx failure.
	ErrorTypeServer ErrorType = "server"

	// ErrorTypeNotFound indicates a resource was not found.
	ErrorTypeNotFound ErrorType = "not_found"

	// ErrorTypeAuthentication indicates an authentication failure.
	ErrorTypeAuthentication ErrorType = "authentication"
)

// ErrorCode provides additional specificity beyond the error type.
type ErrorCode string

const (
	ErrorCodeUnknownMetricType ErrorCode = "unknown_metric_type"
	ErrorCodeRateLimitExceeded ErrorCode = "rate_limit_exceeded"
	ErrorCodeInvalidAPIKey     ErrorCode = "invalid_api_key"
	ErrorCodeEmptyCompletion   ErrorCode = "empty_completion"
)

// APIError is the canonical error carried between the completion client,
// the store, and the HTTP layer.
type APIError struct {
	// Type is the category of error
	Type ErrorType `json:"type"`

	// Code is an optional specific error code
	Code ErrorCode `json:"code,omitempty"`

	// Message is the human-readable error message
	Message string `json:"message"`

	// StatusCode is the suggested HTTP status code
	StatusCode int `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// HTTPStatusCode returns the appropriate HTTP status code for this error.
func (e *APIError) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}

	switch e.Type {
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	case ErrorTypeOverloaded:
		return http.StatusServiceUnavailable
	case ErrorTypeTransport:
		return http.StatusBadGateway
	case ErrorTypeServer:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// NewAPIError creates a new API error.
func NewAPIError(errType ErrorType, message string) *APIError {
	return &APIError{
		Type:    errType,
		Message: message,
	}
}

// WithCode adds an error code to the error.
func (e *APIError) WithCode(code ErrorCode) *APIError {
	e.Code = code
	return e
}

// WithStatusCode sets a specific HTTP status code.
func (e *APIError) WithStatusCode(code int) *APIError {
	e.StatusCode = code
	return e
}

// Convenience constructors for common errors

// ErrValidation creates a validation error.
func ErrValidation(message string) *APIError {
	return NewAPIError(ErrorTypeValidation, message)
}

// ErrTransport creates a transport error.
func ErrTransport(message string) *APIError {
	return NewAPIError(ErrorTypeTransport, message)
}

// ErrRateLimit creates a rate limit error.
func ErrRateLimit(message string) *APIError {
	return NewAPIError(ErrorTypeRateLimit, message).
		WithCode(ErrorCodeRateLimitExceeded)
}

// ErrOverloaded creates an overloaded error.
func ErrOverloaded(message string) *APIError {
	return NewAPIError(ErrorTypeOverloaded, message)
}

// ErrServer creates a server error.
func ErrServer(message string) *APIError {
	return NewAPIError(ErrorTypeServer, message)
}

// ErrNotFound creates a not found error.
func ErrNotFound(message string) *APIError {
	return NewAPIError(ErrorTypeNotFound, message)
}

// ErrAuthentication creates an authentication error.
func ErrAuthentication(message string) *APIError {
	return NewAPIError(ErrorTypeAuthentication, message)
}

// IsRetryable reports whether the backoff loop should retry after err.
// Only rate-limit and upstream 5xx failures are retried; transport and
// auth failures propagate immediately.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Type {
	case ErrorTypeRateLimit, ErrorTypeOverloaded, ErrorTypeServer:
		return true
	}
	return false
}
