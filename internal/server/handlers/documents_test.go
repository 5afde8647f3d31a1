package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/information-sharing-networks/docsign/internal/api"
	"github.com/information-sharing-networks/docsign/internal/crypto"
	"github.com/information-sharing-networks/docsign/internal/identity"
	"github.com/information-sharing-networks/docsign/internal/store/memory"
	"github.com/information-sharing-networks/docsign/internal/workflow"
)

var (
	testOwner = identity.Identity{ID: "owner-1", Email: "owner@example.com"}
	testAlice = identity.Identity{ID: "user-a", Email: "alice@example.com"}
	testEve   = identity.Identity{ID: "user-e", Email: "eve@example.com"}
)

// asUser stands in for the Authenticate middleware.
func asUser(r *http.Request, id identity.Identity) *http.Request {
	return r.WithContext(identity.NewContext(r.Context(), id))
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	engine, err := workflow.NewEngine(workflow.Options{Store: memory.New()})
	require.NoError(t, err)

	h := NewDocumentsHandler(engine)
	r := chi.NewRouter()
	r.Post("/v1/documents", h.HandleUpload)
	r.Get("/v1/documents", h.HandleListOwned)
	r.Get("/v1/documents/pending", h.HandleListPending)
	r.Get("/v1/documents/{id}", h.HandleGet)
	r.Get("/v1/documents/{id}/content", h.HandleGetContent)
	r.Post("/v1/documents/{id}/accept", h.HandleAccept)
	r.Post("/v1/documents/{id}/reject", h.HandleReject)
	r.Post("/v1/documents/{id}/delay", h.HandleDelay)
	r.Put("/v1/documents/{id}/fields", h.HandlePlaceFields)
	r.Post("/v1/documents/{id}/signed-copy", h.HandleSignedCopy)
	r.Delete("/v1/documents/{id}", h.HandleDelete)
	return r
}

func uploadRequest(t *testing.T, fileName string, content []byte, recipients string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if fileName != "" {
		part, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.WriteField("recipients", recipients))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func do(t *testing.T, h http.Handler, req *http.Request, as identity.Identity) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, asUser(req, as))
	return rec
}

func upload(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := do(t, h, uploadRequest(t, "contract.pdf", []byte("%PDF-1.7 hello"),
		`[{"name":"Alice","email":"Alice@Example.com"}]`), testOwner)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp api.UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ID)
	return resp.ID
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) api.ErrorResponse {
	t.Helper()
	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	require.NotEmpty(t, resp.Errors)
	return resp
}

func TestUploadAndRead(t *testing.T) {
	h := newTestRouter(t)
	id := upload(t, h)

	t.Run("owner reads view", func(t *testing.T) {
		rec := do(t, h, httptest.NewRequest(http.MethodGet, "/v1/documents/"+id, nil), testOwner)
		require.Equal(t, http.StatusOK, rec.Code)

		var view workflow.DecryptedView
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
		assert.Equal(t, "contract.pdf", view.FileName)
		assert.Equal(t, []byte("%PDF-1.7 hello"), view.Content)
		assert.Equal(t, workflow.Status(workflow.StatePendingSignature), view.Status)
		assert.NotContains(t, rec.Body.String(), "encryptionKey")
	})

	t.Run("recipient downloads content", func(t *testing.T) {
		rec := do(t, h, httptest.NewRequest(http.MethodGet, "/v1/documents/"+id+"/content", nil), testAlice)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "%PDF-1.7 hello", rec.Body.String())
		assert.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), `"contract.pdf"`)
		assert.NotEmpty(t, rec.Header().Get("X-Checksum-Sha256"))
	})

	t.Run("stranger is forbidden", func(t *testing.T) {
		rec := do(t, h, httptest.NewRequest(http.MethodGet, "/v1/documents/"+id, nil), testEve)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "unauthorized", decodeError(t, rec).Errors[0].ErrorCode)
	})

	t.Run("unknown id", func(t *testing.T) {
		rec := do(t, h, httptest.NewRequest(http.MethodGet, "/v1/documents/missing", nil), testOwner)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestUploadRejectsBadInput(t *testing.T) {
	h := newTestRouter(t)

	tests := []struct {
		name       string
		req        func() *http.Request
		wantStatus int
	}{
		{
			name: "not multipart",
			req: func() *http.Request {
				return httptest.NewRequest(http.MethodPost, "/v1/documents", strings.NewReader("{}"))
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing file",
			req:        func() *http.Request { return uploadRequest(t, "", nil, `[{"email":"a@x.com"}]`) },
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "empty file",
			req:        func() *http.Request { return uploadRequest(t, "a.pdf", nil, `[{"email":"a@x.com"}]`) },
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "recipients not json",
			req:        func() *http.Request { return uploadRequest(t, "a.pdf", []byte("x"), `alice`) },
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "no recipients",
			req:        func() *http.Request { return uploadRequest(t, "a.pdf", []byte("x"), `[]`) },
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.req(), testOwner)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestRequiresIdentity(t *testing.T) {
	h := newTestRouter(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/documents", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSigningFlow(t *testing.T) {
	h := newTestRouter(t)
	id := upload(t, h)

	// pending inbox
	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/v1/documents/pending", nil), testAlice)
	require.Equal(t, http.StatusOK, rec.Code)
	var list api.DocumentListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Documents, 1)
	assert.Equal(t, id, list.Documents[0].ID)

	// signing before fields are placed
	rec = do(t, h, httptest.NewRequest(http.MethodPost, "/v1/documents/"+id+"/accept", nil), testAlice)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = do(t, h, httptest.NewRequest(http.MethodPost, "/v1/documents/"+id+"/signed-copy", strings.NewReader("signed")), testAlice)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "not_signature_ready", decodeError(t, rec).Errors[0].ErrorCode)

	// recipients cannot place fields
	fields := `{"fields":[{"type":"signature","ownerRecipient":"alice@example.com","page":1,"x":10,"y":20}]}`
	rec = do(t, h, httptest.NewRequest(http.MethodPut, "/v1/documents/"+id+"/fields", strings.NewReader(fields)), testAlice)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, httptest.NewRequest(http.MethodPut, "/v1/documents/"+id+"/fields?mode=replace", strings.NewReader(fields)), testOwner)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var summary workflow.DocumentSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.True(t, summary.SignatureReady)
	assert.Len(t, summary.InputFields, 1)

	rec = do(t, h, httptest.NewRequest(http.MethodPost, "/v1/documents/"+id+"/signed-copy", strings.NewReader("signed")), testAlice)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/v1/documents/"+id+"/content", nil), testOwner)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "signed", rec.Body.String())

	// a signed document is terminal
	rec = do(t, h, httptest.NewRequest(http.MethodPost, "/v1/documents/"+id+"/delay", nil), testAlice)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_transition", decodeError(t, rec).Errors[0].ErrorCode)
}

func TestRejectExpiresDocument(t *testing.T) {
	h := newTestRouter(t)
	id := upload(t, h)

	rec := do(t, h, httptest.NewRequest(http.MethodPost, "/v1/documents/"+id+"/reject", nil), testAlice)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/v1/documents/"+id, nil), testAlice)
	assert.Equal(t, http.StatusGone, rec.Code)

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/v1/documents", nil), testOwner)
	require.Equal(t, http.StatusOK, rec.Code)
	var list api.DocumentListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Documents, 1)
	assert.Equal(t, workflow.StatusExpired, list.Documents[0].Status)
}

func TestPlaceFieldsValidation(t *testing.T) {
	h := newTestRouter(t)
	id := upload(t, h)

	tests := []struct {
		name string
		url  string
		body string
	}{
		{"bad mode", "/v1/documents/" + id + "/fields?mode=merge", `{"fields":[{"type":"signature","ownerRecipient":"alice@example.com","page":1,"x":0,"y":0}]}`},
		{"schema violation", "/v1/documents/" + id + "/fields", `{"fields":[{"type":"signature","page":1,"x":0,"y":0}]}`},
		{"not a recipient", "/v1/documents/" + id + "/fields", `{"fields":[{"type":"signature","ownerRecipient":"eve@example.com","page":1,"x":0,"y":0}]}`},
		{"empty body", "/v1/documents/" + id + "/fields", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, httptest.NewRequest(http.MethodPut, tt.url, strings.NewReader(tt.body)), testOwner)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestDelete(t *testing.T) {
	h := newTestRouter(t)
	id := upload(t, h)

	rec := do(t, h, httptest.NewRequest(http.MethodDelete, "/v1/documents/"+id, nil), testAlice)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	for range 2 {
		rec = do(t, h, httptest.NewRequest(http.MethodDelete, "/v1/documents/"+id, nil), testOwner)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/v1/documents/"+id, nil), testOwner)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSignedCopyTooLarge(t *testing.T) {
	engine, err := workflow.NewEngine(workflow.Options{Store: memory.New()})
	require.NoError(t, err)
	h := NewDocumentsHandler(engine)

	r := chi.NewRouter()
	r.Post("/v1/documents/{id}/signed-copy", func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, 4)
		h.HandleSignedCopy(w, r)
	})

	rec := do(t, r, httptest.NewRequest(http.MethodPost, "/v1/documents/x/signed-copy", strings.NewReader("too large")), testAlice)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestSignedCopyChecksum(t *testing.T) {
	h := newTestRouter(t)
	id := upload(t, h)

	rec := do(t, h, httptest.NewRequest(http.MethodPost, "/v1/documents/"+id+"/accept", nil), testAlice)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	fields := `{"fields":[{"type":"signature","ownerRecipient":"alice@example.com","page":1,"x":10,"y":20}]}`
	rec = do(t, h, httptest.NewRequest(http.MethodPut, "/v1/documents/"+id+"/fields", strings.NewReader(fields)), testOwner)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	signed := []byte("signed copy")

	req := httptest.NewRequest(http.MethodPost, "/v1/documents/"+id+"/signed-copy", bytes.NewReader(signed))
	req.Header.Set(checksumHeader, crypto.CalculateSHA256Hex([]byte("something else")))
	rec = do(t, h, req, testAlice)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(api.ErrCodeMalformedRequest), decodeError(t, rec).Errors[0].ErrorCode)

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/v1/documents/"+id+"/content", nil), testOwner)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF-1.7 hello", rec.Body.String(), "a mismatched signed copy must not be stored")

	req = httptest.NewRequest(http.MethodPost, "/v1/documents/"+id+"/signed-copy", bytes.NewReader(signed))
	req.Header.Set(checksumHeader, strings.ToUpper(crypto.CalculateSHA256Hex(signed)))
	rec = do(t, h, req, testAlice)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/v1/documents/"+id+"/content", nil), testOwner)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(signed), rec.Body.String())
}
