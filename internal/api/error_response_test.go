package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/information-sharing-networks/docsign/internal/crypto"
	"github.com/information-sharing-networks/docsign/internal/workflow"
)

func TestMapErrorToResponseStatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", workflow.NewNotFoundError("d1"), http.StatusNotFound, "not_found"},
		{"unauthorized", workflow.NewUnauthorizedError("not a recipient"), http.StatusForbidden, "unauthorized"},
		{"expired", workflow.NewExpiredError("d1"), http.StatusGone, "expired"},
		{"invalid transition", workflow.NewInvalidTransitionError(workflow.StateSigned, workflow.ActionAccept), http.StatusConflict, "invalid_transition"},
		{"not signature ready", workflow.NewNotSignatureReadyError("d1"), http.StatusConflict, "not_signature_ready"},
		{"conflict", workflow.NewConflictError("d1", 4), http.StatusConflict, "conflict"},
		{"validation", workflow.NewValidationError("bad recipient"), http.StatusBadRequest, "validation"},
		{"decryption", workflow.NewDecryptionError("tag mismatch"), http.StatusInternalServerError, "decryption"},
		{"workflow internal", workflow.NewInternalError("db down"), http.StatusInternalServerError, "internal"},
		{"wrapped workflow", fmt.Errorf("handler: %w", workflow.NewNotFoundError("d1")), http.StatusNotFound, "not_found"},
		{"malformed", NewMalformedRequestError("bad json"), http.StatusBadRequest, "malformed_request"},
		{"unauthenticated", NewUnauthenticatedError("missing token"), http.StatusUnauthorized, "unauthenticated"},
		{"rate limit", NewRateLimitError("slow down"), http.StatusTooManyRequests, "rate_limit_exceeded"},
		{"too large", NewRequestTooLargeError("too big"), http.StatusRequestEntityTooLarge, "request_too_large"},
		{"unavailable", WrapUnavailableError(errors.New("ping"), "store unavailable"), http.StatusServiceUnavailable, "unavailable"},
		{"crypto decryption", crypto.NewDecryptionError("bad key"), http.StatusInternalServerError, "decryption"},
		{"crypto validation", crypto.NewValidationError("bad input"), http.StatusBadRequest, "validation"},
		{"unmapped", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/v1/documents/d1/accept", nil)
			resp := MapErrorToResponse(tt.err, r)

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if len(resp.Errors) != 1 {
				t.Fatalf("expected one detailed error, got %d", len(resp.Errors))
			}
			if resp.Errors[0].ErrorCode != tt.wantCode {
				t.Errorf("errorCode = %q, want %q", resp.Errors[0].ErrorCode, tt.wantCode)
			}
			if resp.HTTPMethod != http.MethodPost {
				t.Errorf("httpMethod = %q", resp.HTTPMethod)
			}
			if resp.StatusCodeText != http.StatusText(tt.wantStatus) {
				t.Errorf("statusCodeText = %q", resp.StatusCodeText)
			}
		})
	}
}

func TestMapErrorToResponseHidesInternalDetail(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/v1/documents/d1", nil)
	err := workflow.WrapInternalError(errors.New("pq: password authentication failed for user admin"), "failed to load document")

	resp := MapErrorToResponse(err, r)
	if strings.Contains(resp.Errors[0].ErrorCodeMessage, "password") {
		t.Errorf("internal detail leaked to client: %q", resp.Errors[0].ErrorCodeMessage)
	}
}

func TestRespondWithErrorResponse(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/v1/documents/missing", nil)
	w := httptest.NewRecorder()

	RespondWithErrorResponse(w, r, workflow.NewNotFoundError("missing"))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var body ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if body.RequestURI != "/v1/documents/missing" {
		t.Errorf("requestUri = %q", body.RequestURI)
	}
	if body.ErrorDateTime == "" {
		t.Error("errorDateTime not set")
	}
}

func TestRespondWithContent(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithContent(w, `contract "v2".pdf`, "abc", []byte("%PDF-1.7"))

	if w.Header().Get("Content-Type") != "application/octet-stream" {
		t.Errorf("Content-Type = %q", w.Header().Get("Content-Type"))
	}
	if got := w.Header().Get("Content-Disposition"); got != `attachment; filename="contract \"v2\".pdf"` {
		t.Errorf("Content-Disposition = %q", got)
	}
	if w.Header().Get("X-Checksum-Sha256") != "abc" {
		t.Error("checksum header missing")
	}
	if w.Body.String() != "%PDF-1.7" {
		t.Errorf("body = %q", w.Body.String())
	}
}
