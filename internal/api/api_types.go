package api

import (
	"github.com/information-sharing-networks/docsign/internal/workflow"
)

// UploadResponse is returned by POST /v1/documents and POST /v1/documents/{id}/signed-copy.
type UploadResponse struct {
	// ID of the stored document
	ID string `json:"id" example:"3f0c1f52-8d53-4b0e-9a51-0c0f6f1b5b1e"`
}

// DocumentListResponse wraps a list of document summaries.
type DocumentListResponse struct {
	Documents []workflow.DocumentSummary `json:"documents"`
}

// PlaceFieldsRequest is the body of PUT /v1/documents/{id}/fields.
type PlaceFieldsRequest struct {
	Fields []workflow.InputField `json:"fields"`
}

// HealthResponse is returned by the health endpoints.
type HealthResponse struct {
	Status    string `json:"status" example:"UP"`
	Timestamp string `json:"timestamp" example:"2026-01-01T10:00:00Z"`
	Version   string `json:"version,omitempty" example:"v1.0.0"`
}

// VersionResponse is returned by GET /version.
type VersionResponse struct {
	Version   string `json:"version" example:"v1.0.0"`
	BuildDate string `json:"buildDate" example:"2026-01-01T10:00:00Z"`
	GitCommit string `json:"gitCommit" example:"abc1234"`
}

// NewDocumentListResponse never returns a null list.
func NewDocumentListResponse(docs []workflow.DocumentSummary) DocumentListResponse {
	if docs == nil {
		docs = []workflow.DocumentSummary{}
	}
	return DocumentListResponse{Documents: docs}
}
