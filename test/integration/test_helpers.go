//go:build integration

// functions that are useful in integration tests

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/information-sharing-networks/docsign/internal/api"
	"github.com/information-sharing-networks/docsign/internal/identity"
)

// client is a test user calling the API with a bearer token
type client struct {
	t       *testing.T
	baseURL string
	token   string
}

func newClient(t *testing.T, env *testEnv, id identity.Identity) *client {
	t.Helper()
	token, err := identity.IssueToken([]byte(testTokenSecret), "", "", id, time.Hour)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	return &client{t: t, baseURL: env.baseURL, token: token}
}

// do sends a request and returns the status code and body
func (c *client) do(method, path, contentType string, body io.Reader) (int, []byte) {
	c.t.Helper()

	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		c.t.Fatalf("failed to create request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.t.Fatalf("failed to read response: %v", err)
	}
	return resp.StatusCode, data
}

// upload posts a document and returns its id
func (c *client) upload(fileName string, content []byte, recipients string) string {
	c.t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		c.t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		c.t.Fatalf("failed to write form file: %v", err)
	}
	if err := mw.WriteField("recipients", recipients); err != nil {
		c.t.Fatalf("failed to write recipients: %v", err)
	}
	if err := mw.Close(); err != nil {
		c.t.Fatalf("failed to close multipart writer: %v", err)
	}

	status, data := c.do(http.MethodPost, "/v1/documents", mw.FormDataContentType(), &body)
	if status != http.StatusCreated {
		c.t.Fatalf("upload: expected 201, got %d: %s", status, data)
	}

	var resp api.UploadResponse
	decodeJSON(c.t, data, &resp)
	return resp.ID
}

func decodeJSON(t *testing.T, data []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("failed to decode response %s: %v", data, err)
	}
}

// errorCode returns the first error code of an api.ErrorResponse body
func errorCode(t *testing.T, data []byte) string {
	t.Helper()
	var resp api.ErrorResponse
	decodeJSON(t, data, &resp)
	if len(resp.Errors) == 0 {
		t.Fatalf("error response has no errors: %s", data)
	}
	return resp.Errors[0].ErrorCode
}

// cleanupDatabase truncates the document tables to reset the database state between tests
func cleanupDatabase(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	ctx := context.Background()

	_, err := pool.Exec(ctx, `TRUNCATE TABLE documents CASCADE;`)
	if err != nil {
		t.Fatalf("Failed to cleanup database: %v", err)
	}
}
