// Package handler exposes endorsement creation and listing over HTTP.
package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"agentsid/internal/endorsement/models"
	"agentsid/internal/endorsement/service"
	"agentsid/internal/platform/middleware"
	"agentsid/pkg/platform/httputil"
	"agentsid/pkg/requestcontext"
)

type Handler struct {
	endorsements *service.Service
}

func New(endorsements *service.Service) *Handler {
	return &Handler{endorsements: endorsements}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/api/endorsements", h.list)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession)
		r.Post("/api/endorsements", h.create)
	})
}

type createRequest struct {
	ToHandle string `json:"to_handle"`
	Skill    string `json:"skill"`
	Note     string `json:"note"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	session := requestcontext.SessionFrom(r.Context())
	e, err := h.endorsements.Create(r.Context(), session.ProfileID, req.ToHandle, req.Skill, req.Note)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, e)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	endorsements, err := h.endorsements.ListForHandle(r.Context(),
		q.Get("handle"),
		models.Direction(q.Get("direction")),
		limit,
	)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"endorsements": endorsements})
}
