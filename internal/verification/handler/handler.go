// Package handler exposes the verification flows over HTTP: agent claim
// and verify, the LinkedIn OAuth legs, and the org domain checks.
package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"agentsid/internal/platform/middleware"
	profilestore "agentsid/internal/profile/store"
	"agentsid/internal/session"
	"agentsid/internal/verification/code"
	"agentsid/internal/verification/domains"
	"agentsid/internal/verification/models"
	"agentsid/internal/verification/oauth"
	"agentsid/internal/verification/social"
	dErrors "agentsid/pkg/domain-errors"
	"agentsid/pkg/handle"
	"agentsid/pkg/platform/httputil"
	"agentsid/pkg/platform/sentinel"
	"agentsid/pkg/requestcontext"
)

const (
	stateCookieName = "agentsid_oauth_state"
	stateCookieTTL  = 10 * time.Minute
)

type Handler struct {
	generator     *code.Generator
	profiles      profilestore.Store
	socialVerify  *social.Verifier
	oauthService  *oauth.Service
	oauthClient   *oauth.Client
	emailVerifier *domains.EmailVerifier
	dnsVerifier   *domains.DNSVerifier
	sessionTTL    time.Duration
	appURL        string
	secureCookies bool
}

type Config struct {
	Generator     *code.Generator
	Profiles      profilestore.Store
	SocialVerify  *social.Verifier
	OAuthService  *oauth.Service
	OAuthClient   *oauth.Client
	EmailVerifier *domains.EmailVerifier
	DNSVerifier   *domains.DNSVerifier
	SessionTTL    time.Duration
	AppURL        string
	SecureCookies bool
}

func New(cfg Config) *Handler {
	return &Handler{
		generator:     cfg.Generator,
		profiles:      cfg.Profiles,
		socialVerify:  cfg.SocialVerify,
		oauthService:  cfg.OAuthService,
		oauthClient:   cfg.OAuthClient,
		emailVerifier: cfg.EmailVerifier,
		dnsVerifier:   cfg.DNSVerifier,
		sessionTTL:    cfg.SessionTTL,
		appURL:        cfg.AppURL,
		secureCookies: cfg.SecureCookies,
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/api/agents/claim", h.claim)
	r.Post("/api/agents/verify", h.verifyAgent)

	r.Get("/api/auth/linkedin", h.linkedinStart)
	r.Get("/api/auth/linkedin/callback", h.linkedinCallback)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession)
		r.Post("/api/orgs/send-verification", h.orgSendEmail)
		r.Post("/api/orgs/verify-email", h.orgVerifyEmail)
		r.Post("/api/orgs/verify-domain", h.orgVerifyDomain)
	})
}

type claimRequest struct {
	Handle string `json:"handle"`
}

func (h *Handler) claim(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	normalized := handle.Normalize(req.Handle)
	if !handle.Valid(normalized) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest,
			"handle must be 1-50 characters: lowercase letters, digits, hyphens, underscores"))
		return
	}

	existing, err := h.profiles.GetByHandle(r.Context(), normalized)
	switch {
	case err == nil && existing.IsVerified():
		httputil.WriteError(w, dErrors.New(dErrors.CodeConflict, "this handle is already verified"))
		return
	case err != nil && !errors.Is(err, sentinel.ErrNotFound):
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check handle"))
		return
	}

	issued, err := h.generator.Issue(r.Context(), normalized, models.ChannelSocialPost)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"handle":     normalized,
		"code":       issued.Code,
		"expires_at": issued.ExpiresAt,
		"instructions": "Publish a public post (or comment) containing this code from the account you are claiming, then call /api/agents/verify.",
	})
}

type verifyAgentRequest struct {
	Handle      string `json:"handle"`
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio"`
	Model       string `json:"model"`
	Operator    string `json:"operator"`
	Website     string `json:"website"`
}

func (h *Handler) verifyAgent(w http.ResponseWriter, r *http.Request) {
	var req verifyAgentRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	outcome, err := h.socialVerify.Verify(r.Context(), req.Handle, social.ClaimDetails{
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
		Model:       req.Model,
		Operator:    req.Operator,
		Website:     req.Website,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	body := map[string]any{"result": outcome.Result}
	if outcome.Result.Verified {
		body["profile"] = outcome.Profile
		body["token"] = outcome.Token
		h.setSessionCookie(w, outcome.Token)
	}
	httputil.WriteJSON(w, http.StatusOK, body)
}

func (h *Handler) linkedinStart(w http.ResponseWriter, r *http.Request) {
	state, err := oauth.NewState()
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to start oauth flow"))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/api/auth/linkedin",
		MaxAge:   int(stateCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	redirect := h.oauthClient.AuthorizeURL(state, h.callbackURL())
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"redirect_url": redirect})
}

func (h *Handler) linkedinCallback(w http.ResponseWriter, r *http.Request) {
	var expected string
	if cookie, err := r.Cookie(stateCookieName); err == nil {
		expected = cookie.Value
	}

	// The state cookie is one-shot regardless of outcome.
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/api/auth/linkedin",
		MaxAge:   -1,
		HttpOnly: true,
	})

	outcome, err := h.oauthService.Complete(r.Context(),
		expected,
		r.URL.Query().Get("state"),
		r.URL.Query().Get("code"),
		h.callbackURL(),
	)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.setSessionCookie(w, outcome.Token)
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"profile": outcome.Profile,
		"token":   outcome.Token,
	})
}

type orgEmailRequest struct {
	OrgHandle string `json:"org_handle"`
	Email     string `json:"email"`
}

func (h *Handler) orgSendEmail(w http.ResponseWriter, r *http.Request) {
	var req orgEmailRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	caller := requestcontext.SessionFrom(r.Context())
	if err := h.emailVerifier.SendCode(r.Context(), caller, req.OrgHandle, req.Email); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "sent",
	})
}

type orgCodeRequest struct {
	OrgHandle string `json:"org_handle"`
	Code      string `json:"code"`
}

func (h *Handler) orgVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req orgCodeRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	caller := requestcontext.SessionFrom(r.Context())
	result, err := h.emailVerifier.VerifyCode(r.Context(), caller, req.OrgHandle, req.Code)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

type orgDomainRequest struct {
	OrgHandle string `json:"org_handle"`
}

func (h *Handler) orgVerifyDomain(w http.ResponseWriter, r *http.Request) {
	var req orgDomainRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	caller := requestcontext.SessionFrom(r.Context())
	result, err := h.dnsVerifier.Verify(r.Context(), caller, req.OrgHandle)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) callbackURL() string {
	return h.appURL + "/api/auth/linkedin/callback"
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
