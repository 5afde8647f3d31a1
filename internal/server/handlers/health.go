package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/information-sharing-networks/docsign/internal/api"
	"github.com/information-sharing-networks/docsign/internal/logger"
	"github.com/information-sharing-networks/docsign/internal/version"
	"github.com/information-sharing-networks/docsign/internal/workflow"
)

// HandleLiveness godoc
//
//	@Summary		Health (liveness) Check
//	@Description	Check if the HTTP service is alive and responding.
//	@Tags			Common
//	@Produce		json
//
//	@Success		200	{object}	api.HealthResponse
//
//	@Router			/health/live [get]
func HandleLiveness(w http.ResponseWriter, r *http.Request) {
	api.RespondWithJSONPayload(w, http.StatusOK, api.HealthResponse{
		Status:    "UP",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   version.Get().Version,
	})
}

// HandleReadiness godoc
//
//	@Summary		Readiness Check
//	@Description	Checks if the service is ready to accept traffic (includes document store connectivity)
//	@Tags			Common
//	@Produce		json
//	@Success		200	{object}	api.HealthResponse	"status UP"
//	@Failure		503	{object}	api.ErrorResponse	"document store unavailable"
//	@Router			/health/ready [get]
func HandleReadiness(pingers []workflow.Pinger, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		for _, p := range pingers {
			if err := p.Ping(ctx); err != nil {
				logger.ContextRequestLogger(r.Context()).Warn("readiness check failed",
					slog.String("error", err.Error()))
				api.RespondWithErrorResponse(w, r, api.WrapUnavailableError(err, "document store unavailable"))
				return
			}
		}

		api.RespondWithJSONPayload(w, http.StatusOK, api.HealthResponse{
			Status:    "UP",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}
