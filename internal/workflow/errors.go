package workflow

// errors.go defines the errors returned by workflow operations.
//
// Every error returned by the Engine is a *WorkflowError; the HTTP layer maps its code to a
// response status (see api.MapErrorToResponse).

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a WorkflowError.
type ErrorCode string

const (
	// ErrCodeNotFound is used when the document does not exist or has been deleted
	ErrCodeNotFound ErrorCode = "not_found"

	// ErrCodeUnauthorized is used when the caller is neither the owner nor a recipient
	// (or not the party the operation requires)
	ErrCodeUnauthorized ErrorCode = "unauthorized"

	// ErrCodeExpired is used when the expiry deadline has passed. It is evaluated on every call.
	ErrCodeExpired ErrorCode = "expired"

	// ErrCodeInvalidTransition is used when the action is not legal from the current state
	ErrCodeInvalidTransition ErrorCode = "invalid_transition"

	// ErrCodeDecryption is used when stored key material does not open the stored ciphertext.
	// This indicates data corruption and is not retryable.
	ErrCodeDecryption ErrorCode = "decryption"

	// ErrCodeValidation is used for malformed input: recipients, file, field descriptors
	ErrCodeValidation ErrorCode = "validation"

	// ErrCodeNotSignatureReady is used when a signed copy is submitted before fields were placed
	ErrCodeNotSignatureReady ErrorCode = "not_signature_ready"

	// ErrCodeConflict is used when concurrent writers kept invalidating the read-modify-write
	ErrCodeConflict ErrorCode = "conflict"

	// ErrCodeInternal is used for storage failures and other unexpected errors
	ErrCodeInternal ErrorCode = "internal"
)

// WorkflowError represents a structured error from the workflow package.
type WorkflowError struct {
	// code is the workflow error code
	code ErrorCode

	// message is a human-readable error message
	message string

	// wrapped is the optional underlying error
	wrapped error
}

func (e *WorkflowError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrapped)
	}
	return e.message
}

func (e *WorkflowError) Code() ErrorCode { return e.code }
func (e *WorkflowError) Unwrap() error   { return e.wrapped }

// Message returns the message without the wrapped error, safe to show to clients.
func (e *WorkflowError) Message() string { return e.message }

// CodeOf returns the code of the first WorkflowError in err's chain, or ErrCodeInternal.
func CodeOf(err error) ErrorCode {
	var wfErr *WorkflowError
	if errors.As(err, &wfErr) {
		return wfErr.code
	}
	return ErrCodeInternal
}

// HasCode reports whether err is a WorkflowError with the given code.
func HasCode(err error, code ErrorCode) bool {
	var wfErr *WorkflowError
	return errors.As(err, &wfErr) && wfErr.code == code
}

// NewNotFoundError creates a not found error for document id.
func NewNotFoundError(id string) error {
	return &WorkflowError{code: ErrCodeNotFound, message: fmt.Sprintf("document %s not found", id)}
}

// NewUnauthorizedError creates an unauthorized error.
func NewUnauthorizedError(msg string) error {
	return &WorkflowError{code: ErrCodeUnauthorized, message: msg}
}

// NewExpiredError creates an expired error for document id.
func NewExpiredError(id string) error {
	return &WorkflowError{code: ErrCodeExpired, message: fmt.Sprintf("document %s has expired", id)}
}

// NewInvalidTransitionError creates an error for an action that is not legal from state from.
func NewInvalidTransitionError(from State, action Action) error {
	return &WorkflowError{
		code:    ErrCodeInvalidTransition,
		message: fmt.Sprintf("cannot %s a document in state %s", action, from),
	}
}

// NewDecryptionError creates a decryption error.
func NewDecryptionError(msg string) error {
	return &WorkflowError{code: ErrCodeDecryption, message: msg}
}

// WrapDecryptionError wraps an existing error as a decryption error.
func WrapDecryptionError(err error, msg string) error {
	return &WorkflowError{code: ErrCodeDecryption, message: msg, wrapped: err}
}

// NewValidationError creates a validation error for invalid input.
// Use this for malformed recipient lists, a missing file or malformed field descriptors.
//
// The returned error will have code ErrCodeValidation.
func NewValidationError(msg string) error {
	return &WorkflowError{code: ErrCodeValidation, message: msg}
}

// WrapValidationError wraps an existing error as a validation error.
//
// The returned error will have code ErrCodeValidation.
func WrapValidationError(err error, msg string) error {
	return &WorkflowError{code: ErrCodeValidation, message: msg, wrapped: err}
}

// NewNotSignatureReadyError creates the error returned when a signed copy is submitted before
// the owner placed signature fields.
func NewNotSignatureReadyError(id string) error {
	return &WorkflowError{
		code:    ErrCodeNotSignatureReady,
		message: fmt.Sprintf("document %s is not ready for signing: no signature fields have been placed", id),
	}
}

// NewConflictError creates a conflict error.
func NewConflictError(id string, attempts int) error {
	return &WorkflowError{
		code:    ErrCodeConflict,
		message: fmt.Sprintf("document %s was modified concurrently (%d attempts)", id, attempts),
	}
}

// NewInternalError creates an internal error for unexpected failures.
func NewInternalError(msg string) error {
	return &WorkflowError{code: ErrCodeInternal, message: msg}
}

// WrapInternalError wraps an existing error as an internal error.
// Use this for storage, lock and entropy failures.
//
// The returned error will have code ErrCodeInternal.
func WrapInternalError(err error, msg string) error {
	return &WorkflowError{code: ErrCodeInternal, message: msg, wrapped: err}
}
