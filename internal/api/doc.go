// Package api contains the HTTP-facing types shared by the docsign handlers and middleware:
// request and response bodies, the standard error response, the mapping from package errors
// to HTTP statuses, and JSON schemas for request validation.
package api
