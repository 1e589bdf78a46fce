package testutil

import (
	"net/http"

	id "agentsid/pkg/domain"
	"agentsid/pkg/requestcontext"
)

// WithSession attaches an authenticated session to the request context,
// simulating what the auth middleware does for a valid token.
func WithSession(req *http.Request, profileID id.ProfileID, entityType, handle string) *http.Request {
	ctx := requestcontext.WithSession(req.Context(), requestcontext.Session{
		ProfileID:  profileID,
		EntityType: entityType,
		Handle:     handle,
		Verified:   true,
	})
	return req.WithContext(ctx)
}
