// Package handler exposes the profile directory over HTTP.
package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	affiliationstore "agentsid/internal/affiliation/store"
	collabservice "agentsid/internal/collaboration/service"
	"agentsid/internal/platform/middleware"
	"agentsid/internal/profile/models"
	"agentsid/internal/profile/service"
	dErrors "agentsid/pkg/domain-errors"
	"agentsid/pkg/platform/httputil"
	"agentsid/pkg/requestcontext"
)

type Handler struct {
	profiles       *service.Service
	affiliations   affiliationstore.Store
	collaborations *collabservice.Service
}

func New(profiles *service.Service, affiliations affiliationstore.Store, collaborations *collabservice.Service) *Handler {
	return &Handler{
		profiles:       profiles,
		affiliations:   affiliations,
		collaborations: collaborations,
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/api/profiles", h.list)
	r.Get("/api/profiles/{handle}", h.get)
	r.Get("/api/profiles/{handle}/affiliations", h.listAffiliations)
	r.Get("/api/profiles/{handle}/collaborations", h.listCollaborations)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession)
		r.Patch("/api/profiles/{handle}", h.update)
		r.Get("/api/me", h.me)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := models.ListFilter{
		EntityType: models.EntityType(q.Get("entity_type")),
		Skill:      q.Get("skill"),
		Tier:       models.Tier(q.Get("tier")),
		Available:  q.Get("available") == "true",
		Search:     q.Get("search"),
		Sort:       q.Get("sort"),
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	result, err := h.profiles.List(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"profiles": result.Profiles,
		"total":    result.Total,
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.profiles.GetByHandle(r.Context(), chi.URLParam(r, "handle"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	session := requestcontext.SessionFrom(r.Context())
	p, err := h.profiles.GetByID(r.Context(), session.ProfileID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

type updateRequest struct {
	DisplayName *string   `json:"display_name"`
	Headline    *string   `json:"headline"`
	Bio         *string   `json:"bio"`
	AvatarURL   *string   `json:"avatar_url"`
	Website     *string   `json:"website"`
	Skills      *[]string `json:"skills"`
	IsAvailable *bool     `json:"is_available"`
	RateSummary *string   `json:"rate_summary"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	session := requestcontext.SessionFrom(r.Context())

	target, err := h.profiles.GetByHandle(r.Context(), chi.URLParam(r, "handle"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if target.ID != session.ProfileID {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "you can only edit your own profile"))
		return
	}

	var req updateRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	updated, err := h.profiles.UpdateOwn(r.Context(), session, service.ProfileUpdate{
		DisplayName: req.DisplayName,
		Headline:    req.Headline,
		Bio:         req.Bio,
		AvatarURL:   req.AvatarURL,
		Website:     req.Website,
		Skills:      req.Skills,
		IsAvailable: req.IsAvailable,
		RateSummary: req.RateSummary,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) listAffiliations(w http.ResponseWriter, r *http.Request) {
	p, err := h.profiles.GetByHandle(r.Context(), chi.URLParam(r, "handle"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	affiliations, err := h.affiliations.ListForProfile(r.Context(), p.ID)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list affiliations"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"affiliations": affiliations})
}

func (h *Handler) listCollaborations(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	collaborations, err := h.collaborations.ListForHandle(r.Context(), chi.URLParam(r, "handle"), limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"collaborations": collaborations})
}
