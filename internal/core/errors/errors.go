// Package errors provides centralized error definitions for the application.
// Errors are organized by domain to avoid duplication and provide consistent naming.
//
// Naming conventions:
//   - Exported errors (Err*): Use for errors that callers need to check with errors.Is
//   - Unexported errors (err*): Use for internal package errors
//   - All sentinel errors should be defined as variables, not inline errors.New calls
//   - Use fmt.Errorf with %w to wrap sentinel errors with context
package errors

import "errors"

// Circuit breaker errors.
var (
	// ErrCircuitBreakerOpen indicates the circuit breaker has tripped and requests are blocked.
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open")
)

// Entity resolution errors.
var (
	// ErrNotFound is a generic not found error.
	ErrNotFound = errors.New("not found")
)

// Client and connection errors.
var (
	// ErrClientDisabled indicates a client or feature is disabled by configuration.
	ErrClientDisabled = errors.New("client disabled")

	// ErrStorageUnavailable indicates the persistence connection could not be established.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Completion errors.
var (
	// ErrCompletionTimeout indicates the completion call exceeded its time budget.
	ErrCompletionTimeout = errors.New("completion timed out")

	// ErrCompletionTransport indicates the completion service was unreachable or returned non-2xx.
	ErrCompletionTransport = errors.New("completion transport failure")

	// ErrEmptyResponse indicates an empty response was received.
	ErrEmptyResponse = errors.New("empty response")
)

// Validation and access errors.
var (
	// ErrInvalidInput indicates invalid input was provided.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates the caller failed authentication.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUnknownAction indicates an admin action discriminator is not recognized.
	ErrUnknownAction = errors.New("unknown action")
)

// Is is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is a convenience wrapper around errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
