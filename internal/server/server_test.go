package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/information-sharing-networks/docsign/internal/api"
	"github.com/information-sharing-networks/docsign/internal/config"
	"github.com/information-sharing-networks/docsign/internal/identity"
	"github.com/information-sharing-networks/docsign/internal/store/memory"
	"github.com/information-sharing-networks/docsign/internal/workflow"
)

var testSecret = []byte(strings.Repeat("s", 32))

func testConfig() *config.ServerEnvironment {
	return &config.ServerEnvironment{
		Environment:         "test",
		MaxRequestBodyBytes: 1 << 20,
		DatabasePingTimeout: time.Second,
		StoreBackend:        "memory",
	}
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return io.ErrUnexpectedEOF }

func newTestServer(t *testing.T, pingers ...workflow.Pinger) *Server {
	t.Helper()
	return newTestServerWithConfig(t, testConfig(), pingers...)
}

func newTestServerWithConfig(t *testing.T, cfg *config.ServerEnvironment, pingers ...workflow.Pinger) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st := memory.New()
	engine, err := workflow.NewEngine(workflow.Options{Store: st, Logger: logger})
	require.NoError(t, err)

	verifier, err := identity.NewVerifier(context.Background(), identity.VerifierConfig{Secret: testSecret}, logger)
	require.NoError(t, err)

	s, err := NewServerWithDependencies(cfg, logger, &Dependencies{
		Engine:   engine,
		Verifier: verifier,
		Pingers:  append([]workflow.Pinger{st}, pingers...),
	})
	require.NoError(t, err)
	return s
}

func bearer(t *testing.T, id identity.Identity) string {
	t.Helper()
	token, err := identity.IssueToken(testSecret, "", "", id, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestNewServerWithDependenciesRequiresEngine(t *testing.T) {
	_, err := NewServerWithDependencies(testConfig(), slog.Default(), &Dependencies{})
	assert.Error(t, err)
}

func TestPublicRoutes(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/health/live", "/health/ready", "/version"} {
		t.Run(path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestReadinessReportsUnavailableStore(t *testing.T) {
	s := newTestServer(t, failingPinger{})

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDocumentsRequireBearerToken(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/documents", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))

	req := httptest.NewRequest(http.MethodGet, "/v1/documents", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUploadThroughRouter(t *testing.T) {
	s := newTestServer(t)
	owner := identity.Identity{ID: "owner-1", Email: "owner@example.com"}
	alice := identity.Identity{ID: "user-a", Email: "alice@example.com"}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "contract.pdf")
	require.NoError(t, err)
	_, _ = part.Write([]byte("%PDF"))
	require.NoError(t, mw.WriteField("recipients", `[{"email":"alice@example.com"}]`))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", bearer(t, owner))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created api.UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	req = httptest.NewRequest(http.MethodPost, "/v1/documents/"+created.ID+"/accept", nil)
	req.Header.Set("Authorization", bearer(t, alice))
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var summary workflow.DocumentSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, workflow.Status(workflow.StateAccepted), summary.Status)
	assert.Nil(t, summary.ExpiryAt)
}

func TestRequestSizeLimit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRequestBodyBytes = 8
	s := newTestServerWithConfig(t, cfg)

	req := httptest.NewRequest(http.MethodPost, "/v1/documents/any/signed-copy", strings.NewReader("more than eight bytes"))
	req.Header.Set("Authorization", bearer(t, identity.Identity{ID: "u", Email: "u@example.com"}))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "8", rec.Header().Get("X-Max-Request-Size"))
}
