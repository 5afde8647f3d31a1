package api

// error_response.go implements the standard error response for the docsign API
// it includes functions to map lower level errors to the error response format returned to the client

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/information-sharing-networks/docsign/internal/crypto"
	"github.com/information-sharing-networks/docsign/internal/logger"
	"github.com/information-sharing-networks/docsign/internal/workflow"
)

// ErrorResponse is the body of every error response.
type ErrorResponse struct {

	// The HTTP method used to make the request e.g. GET, POST, etc
	HTTPMethod string `json:"httpMethod"`

	// The URI that was requested
	RequestURI string `json:"requestUri"`

	// The HTTP status code returned
	StatusCode int `json:"statusCode"`

	// A standard short description corresponding to the HTTP status code
	StatusCodeText string `json:"statusCodeText"`

	// A long description corresponding to the HTTP status code with additional information
	StatusCodeMessage string `json:"statusCodeMessage,omitempty"`

	// The request id (chi RequestID middleware), quote it when reporting a problem
	ProviderCorrelationReference string `json:"providerCorrelationReference,omitempty"`

	// The DateTime corresponding to the error occurring
	ErrorDateTime string `json:"errorDateTime"`

	// An array of errors providing more detail about the root cause
	Errors []DetailedError `json:"errors"`
}

// DetailedError describes one cause of an error response.
type DetailedError struct {
	ErrorCode        string `json:"errorCode"`
	ErrorCodeText    string `json:"errorCodeText"`
	ErrorCodeMessage string `json:"errorCodeMessage"`
}

// workflowStatus maps workflow error codes to HTTP statuses and the sanitized code text
var workflowStatus = map[workflow.ErrorCode]struct {
	status int
	text   string
}{
	workflow.ErrCodeNotFound:          {http.StatusNotFound, "Document not found"},
	workflow.ErrCodeUnauthorized:      {http.StatusForbidden, "Not authorized for this document"},
	workflow.ErrCodeExpired:           {http.StatusGone, "Document expired"},
	workflow.ErrCodeInvalidTransition: {http.StatusConflict, "Invalid transition"},
	workflow.ErrCodeDecryption:        {http.StatusInternalServerError, "Document cannot be decrypted"},
	workflow.ErrCodeValidation:        {http.StatusBadRequest, "Validation failed"},
	workflow.ErrCodeNotSignatureReady: {http.StatusConflict, "Document not ready for signing"},
	workflow.ErrCodeConflict:          {http.StatusConflict, "Concurrent modification"},
	workflow.ErrCodeInternal:          {http.StatusInternalServerError, "Internal Error"},
}

// MapErrorToResponse maps api.APIError, workflow.WorkflowError, crypto.CryptoError, or generic errors to an error response.
//
// The error code text is sanitized for the response, but the full error message is logged server-side.
// The mapping also establishes the appropriate HTTP status code based on the error type.
//
// Call this function to set up the error response before sending it to the client (using RespondWithErrorResponse).
func MapErrorToResponse(err error, r *http.Request) *ErrorResponse {
	requestID := middleware.GetReqID(r.Context())

	// Try to extract the most specific error type first (api.Error)
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return errorResponseFromAPI(apiErr, r, requestID)
	}

	var wfErr *workflow.WorkflowError
	if errors.As(err, &wfErr) {
		return errorResponseFromWorkflow(wfErr, r, requestID)
	}

	var cryptoErr *crypto.CryptoError
	if errors.As(err, &cryptoErr) {
		return errorResponseFromCrypto(cryptoErr, r, requestID)
	}

	// fallback - this is not expected - if it does, return an internal error response and log the unmapped error
	reqLogger := logger.ContextRequestLogger(r.Context())
	reqLogger.Error("BUG: Unmapped error type in MapErrorToResponse",
		slog.String("error_type", fmt.Sprintf("%T", err)),
		slog.String("error", err.Error()),
		slog.String("request_id", requestID),
	)
	return newErrorResponse(r, requestID, http.StatusInternalServerError, string(ErrCodeInternalError), "Internal Error", "An internal error occurred")
}

// errorResponseFromAPI maps api.Error to API error responses
func errorResponseFromAPI(err *APIError, r *http.Request, requestID string) *ErrorResponse {
	var statusCode int
	var errorCodeText string
	message := err.message

	switch err.Code() {
	case ErrCodeMalformedRequest:
		statusCode = http.StatusBadRequest
		errorCodeText = "Malformed request"
		message = err.Error()
	case ErrCodeUnauthenticated:
		statusCode = http.StatusUnauthorized
		errorCodeText = "Authentication required"
	case ErrCodeRateLimitExceeded:
		statusCode = http.StatusTooManyRequests
		errorCodeText = "Rate limit exceeded"
	case ErrCodeRequestTooLarge:
		statusCode = http.StatusRequestEntityTooLarge
		errorCodeText = "Request too large"
	case ErrCodeUnavailable:
		statusCode = http.StatusServiceUnavailable
		errorCodeText = "Service unavailable"
	default:
		statusCode = http.StatusInternalServerError
		errorCodeText = "Internal Error"
		message = "An internal error occurred"
	}

	return newErrorResponse(r, requestID, statusCode, string(err.Code()), errorCodeText, message)
}

// errorResponseFromWorkflow maps workflow.Error to API error responses.
// Internal and decryption errors never reach the client in detail.
func errorResponseFromWorkflow(err *workflow.WorkflowError, r *http.Request, requestID string) *ErrorResponse {
	mapping, ok := workflowStatus[err.Code()]
	if !ok {
		mapping = workflowStatus[workflow.ErrCodeInternal]
	}

	message := err.Message()
	if mapping.status >= http.StatusInternalServerError {
		message = "An internal error occurred"
	} else if err.Code() == workflow.ErrCodeValidation {
		message = err.Error()
	}

	return newErrorResponse(r, requestID, mapping.status, string(err.Code()), mapping.text, message)
}

// errorResponseFromCrypto maps crypto.Error to API error responses
func errorResponseFromCrypto(err *crypto.CryptoError, r *http.Request, requestID string) *ErrorResponse {
	switch err.Code() {
	case crypto.ErrCodeValidation:
		return newErrorResponse(r, requestID, http.StatusBadRequest, string(workflow.ErrCodeValidation), "Validation failed", err.Error())
	case crypto.ErrCodeDecryption:
		return newErrorResponse(r, requestID, http.StatusInternalServerError, string(workflow.ErrCodeDecryption), "Document cannot be decrypted", "An internal error occurred")
	default:
		return newErrorResponse(r, requestID, http.StatusInternalServerError, string(ErrCodeInternalError), "Internal Error", "An internal error occurred")
	}
}

func newErrorResponse(r *http.Request, requestID string, statusCode int, code, codeText, message string) *ErrorResponse {
	return &ErrorResponse{
		HTTPMethod:                   r.Method,
		RequestURI:                   r.RequestURI,
		StatusCode:                   statusCode,
		StatusCodeText:               http.StatusText(statusCode),
		StatusCodeMessage:            codeText,
		ProviderCorrelationReference: requestID,
		ErrorDateTime:                time.Now().UTC().Format(time.RFC3339),
		Errors: []DetailedError{
			{
				ErrorCode:        code,
				ErrorCodeText:    codeText,
				ErrorCodeMessage: message,
			},
		},
	}
}
