// Package handler exposes collaboration recording for trusted platform
// integrations. Writes authenticate with the service API key, not a user
// session.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"agentsid/internal/collaboration/models"
	"agentsid/internal/collaboration/service"
	"agentsid/pkg/platform/httputil"
)

const apiKeyHeader = "X-API-Key"

type Handler struct {
	collaborations *service.Service
}

func New(collaborations *service.Service) *Handler {
	return &Handler{collaborations: collaborations}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/api/collaborations", h.record)
}

type recordRequest struct {
	HandleA     string `json:"handle_a"`
	HandleB     string `json:"handle_b"`
	Source      string `json:"source"`
	Context     string `json:"context"`
	ExternalRef string `json:"external_ref"`
}

func (h *Handler) record(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	c, err := h.collaborations.Record(r.Context(), r.Header.Get(apiKeyHeader), service.RecordInput{
		HandleA:     req.HandleA,
		HandleB:     req.HandleB,
		Source:      models.Source(req.Source),
		Context:     req.Context,
		ExternalRef: req.ExternalRef,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, c)
}
