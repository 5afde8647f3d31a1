// Package server provides the HTTP server for the docsign service.
//
// the server is configured through environment variables
// (see internal/config/config.go for details)
//
// NewServer wires the document store, the per-document lock, the notification sink and the
// bearer token verifier into a workflow.Engine and mounts the handlers from
// internal/server/handlers:
//   - public infrastructure endpoints (health, readiness, version, openapi)
//   - the authenticated /v1/documents API
//
// middleware is in internal/server/middleware
package server
