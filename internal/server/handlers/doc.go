// Package handlers provides the HTTP handlers for the docsign API: the /v1 document workflow
// endpoints and the common infrastructure endpoints (health, version, openapi).
//
// Handlers translate HTTP to workflow.Engine calls and back. They do not make authorization
// decisions; the engine does. Errors are returned through api.RespondWithErrorResponse.
package handlers
