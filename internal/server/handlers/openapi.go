package handlers

import (
	"net/http"

	"github.com/swaggo/swag"

	"github.com/information-sharing-networks/docsign/internal/api"
)

// HandleOpenAPI serves the OpenAPI document registered by the docs package.
//
//	@Summary	OpenAPI document
//	@Tags		Common
//	@Produce	json
//	@Success	200	{object}	map[string]any
//	@Router		/openapi.json [get]
func HandleOpenAPI(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		api.RespondWithErrorResponse(w, r, api.WrapInternalError(err, "openapi document not registered"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}
