package api

// errors.go defines the errors raised by the HTTP layer itself (as opposed to workflow errors
// raised by the engine)

import "fmt"

// APIError represents a structured error from the api package.
type APIError struct {
	// code is the API error code
	code ErrorCode

	// message is a human-readable error message
	message string

	// wrapped is the optional underlying error
	wrapped error
}

func (e *APIError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrapped)
	}
	return e.message
}

func (e *APIError) Code() ErrorCode { return e.code }
func (e *APIError) Unwrap() error   { return e.wrapped }

// ErrorCode is returned to clients in the errorCode field of a DetailedError.
//
// Workflow error codes (not_found, expired, invalid_transition...) are passed through
// unchanged; the codes below are the ones only the HTTP layer produces.
type ErrorCode string

const (
	// ErrCodeMalformedRequest is used when the request cannot be parsed (bad JSON, missing multipart parts)
	ErrCodeMalformedRequest ErrorCode = "malformed_request"

	// ErrCodeUnauthenticated is used when the bearer token is missing or invalid
	ErrCodeUnauthenticated ErrorCode = "unauthenticated"

	// ErrCodeRateLimitExceeded is used when the rate limit is exceeded
	// - this is only used in the middleware
	ErrCodeRateLimitExceeded ErrorCode = "rate_limit_exceeded"

	// ErrCodeRequestTooLarge is used when the request body is too large
	ErrCodeRequestTooLarge ErrorCode = "request_too_large"

	// ErrCodeUnavailable is used when a dependency (the store) is not reachable
	ErrCodeUnavailable ErrorCode = "unavailable"

	// ErrCodeInternalError is used when an internal server error occurs
	ErrCodeInternalError ErrorCode = "internal"
)

// NewMalformedRequestError creates an error for malformed requests.
func NewMalformedRequestError(msg string) error {
	return &APIError{code: ErrCodeMalformedRequest, message: msg}
}

// WrapMalformedRequestError wraps an existing error as a malformed request error.
func WrapMalformedRequestError(err error, msg string) error {
	return &APIError{code: ErrCodeMalformedRequest, message: msg, wrapped: err}
}

// NewUnauthenticatedError creates an error for requests without a usable bearer token.
//
// The returned error will have code ErrCodeUnauthenticated.
func NewUnauthenticatedError(msg string) error {
	return &APIError{code: ErrCodeUnauthenticated, message: msg}
}

// WrapUnauthenticatedError wraps a token verification failure.
func WrapUnauthenticatedError(err error, msg string) error {
	return &APIError{code: ErrCodeUnauthenticated, message: msg, wrapped: err}
}

// NewRateLimitError creates a rate limit exceeded error.
// Use this when the client has exceeded the rate limit.
//
// The returned error will have code ErrCodeRateLimitExceeded.
func NewRateLimitError(msg string) error {
	return &APIError{code: ErrCodeRateLimitExceeded, message: msg}
}

// NewRequestTooLargeError creates a request too large error.
// Use this when the request body exceeds the maximum allowed size.
//
// The returned error will have code ErrCodeRequestTooLarge.
func NewRequestTooLargeError(msg string) error {
	return &APIError{code: ErrCodeRequestTooLarge, message: msg}
}

// WrapUnavailableError wraps a failed dependency check.
func WrapUnavailableError(err error, msg string) error {
	return &APIError{code: ErrCodeUnavailable, message: msg, wrapped: err}
}

// NewInternalError creates an internal error for unexpected failures.
//
// The returned error will have code ErrCodeInternalError.
func NewInternalError(msg string) error {
	return &APIError{code: ErrCodeInternalError, message: msg}
}

// WrapInternalError wraps an existing error as an internal error.
//
// The returned error will have code ErrCodeInternalError.
func WrapInternalError(err error, msg string) error {
	return &APIError{code: ErrCodeInternalError, message: msg, wrapped: err}
}
