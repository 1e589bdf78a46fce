// Package domains verifies organisation ownership through two channels:
// a numeric code mailed to an address on the org's registered domain, and
// a TXT record published under that domain.
//
// Both channels demand the same authorization before any verification
// logic runs: the caller is an authenticated human holding an active,
// bilaterally confirmed affiliation with the org. A missing affiliation
// is an authorization failure, never reported as "unverified".
package domains

import (
	"context"
	"errors"

	affiliationstore "agentsid/internal/affiliation/store"
	profilemodels "agentsid/internal/profile/models"
	profilestore "agentsid/internal/profile/store"
	dErrors "agentsid/pkg/domain-errors"
	"agentsid/pkg/handle"
	"agentsid/pkg/platform/sentinel"
	"agentsid/pkg/requestcontext"
)

type authorizer struct {
	profiles     profilestore.Store
	affiliations affiliationstore.Store
}

// authorizeOrgAction checks the caller may act for the org and returns the
// org profile.
func (a *authorizer) authorizeOrgAction(ctx context.Context, caller requestcontext.Session, orgHandle string) (*profilemodels.Profile, error) {
	if caller.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "not authenticated")
	}
	if caller.EntityType != string(profilemodels.EntityHuman) {
		return nil, dErrors.New(dErrors.CodeForbidden, "only humans can verify organisations")
	}

	orgHandle = handle.Normalize(orgHandle)
	org, err := a.profiles.GetByHandle(ctx, orgHandle)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "organisation %q not found", orgHandle)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load organisation")
	}
	if org.EntityType != profilemodels.EntityOrg {
		return nil, dErrors.Newf(dErrors.CodeBadRequest, "%q is not an organisation", orgHandle)
	}

	if _, err := a.affiliations.ActiveAffiliation(ctx, org.ID, caller.ProfileID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeForbidden,
				"you need an active, confirmed affiliation with this organisation")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check affiliation")
	}
	return org, nil
}
