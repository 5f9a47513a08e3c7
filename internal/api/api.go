// Package api exposes the audit system over HTTP: scan intake, area queries,
// plot flag overrides and administrative actions.
package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/landgrid/geoaudit/internal/lifecycle"
	"github.com/landgrid/geoaudit/internal/model"
	"github.com/landgrid/geoaudit/internal/pipeline"
	"github.com/landgrid/geoaudit/internal/store"
)

// adminHeader carries the acting administrator's address on API requests.
// Requests without it fall back to the configured admin address.
const adminHeader = "X-Admin-Email"

// Handler wires the pipeline, lifecycle manager and store into HTTP routes.
type Handler struct {
	store     store.Store
	pipeline  *pipeline.Pipeline
	lifecycle *lifecycle.Manager

	allowedOrigins []string
}

// New creates a Handler.
func New(st store.Store, p *pipeline.Pipeline, lm *lifecycle.Manager, allowedOrigins []string) *Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return &Handler{
		store:          st,
		pipeline:       p,
		lifecycle:      lm,
		allowedOrigins: allowedOrigins,
	}
}

// Router builds the full route tree.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", adminHeader},
	}))

	r.Get("/health", h.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/areas/scan", h.handleScan)
		r.Get("/areas", h.handleListAreas)
		r.Get("/areas/{areaID}", h.handleGetArea)
		r.Get("/areas/{areaID}/summary", h.handleGetSummary)
		r.Delete("/areas/{areaID}", h.handleDeleteArea)
		r.Patch("/areas/{areaID}/plots/{plotID}/flags", h.handlePatchFlags)
		r.Patch("/areas/{areaID}/plots/{plotID}/owner", h.handleAssignOwner)
		r.Post("/actions", h.handleExecuteAction)
		r.Get("/stats", h.handleStats)
	})

	return r
}

// writeError maps domain errors onto HTTP statuses and logs server-side
// failures.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrValidation), errors.Is(err, model.ErrRecipientMissing):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrUpstream), errors.Is(err, model.ErrMalformedUpstream):
		status = http.StatusBadGateway
	}

	if status >= http.StatusInternalServerError {
		zap.L().Error("api: request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
