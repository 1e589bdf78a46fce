package social

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"agentsid/internal/platform/metrics"
	profilemodels "agentsid/internal/profile/models"
	profilestore "agentsid/internal/profile/store"
	"agentsid/internal/session"
	"agentsid/internal/verification/code"
	"agentsid/internal/verification/models"
	id "agentsid/pkg/domain"
	dErrors "agentsid/pkg/domain-errors"
	"agentsid/pkg/platform/audit"
	"agentsid/pkg/platform/sentinel"
	"agentsid/pkg/requestcontext"
)

const (
	postScanLimit      = 100
	commentConcurrency = 5
)

// errCodeFound aborts the comment scan once any goroutine matches.
var errCodeFound = errors.New("code found")

// ClaimDetails are the optional profile fields supplied alongside a
// verification attempt.
type ClaimDetails struct {
	DisplayName string
	Bio         string
	Model       string
	Operator    string
	Website     string
}

// Outcome bundles the verifier result with the session issued on success.
type Outcome struct {
	Result  models.Result
	Profile *profilemodels.Profile
	Token   string
}

// Verifier proves agent handle ownership by finding the issued claim code
// in the agent's recent posts or their comment threads. External faults
// fail closed: the caller sees "not verified", never "verified".
type Verifier struct {
	codes    code.Store
	platform ContentAPI
	profiles profilestore.Store
	sessions *session.Issuer
	audit    audit.Publisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

type Option func(*Verifier)

func WithLogger(logger *slog.Logger) Option {
	return func(v *Verifier) {
		v.logger = logger
	}
}

func WithVerifierMetrics(m *metrics.Metrics) Option {
	return func(v *Verifier) {
		v.metrics = m
	}
}

func WithAudit(p audit.Publisher) Option {
	return func(v *Verifier) {
		v.audit = p
	}
}

func NewVerifier(
	codes code.Store,
	platform ContentAPI,
	profiles profilestore.Store,
	sessions *session.Issuer,
	opts ...Option,
) (*Verifier, error) {
	if codes == nil {
		return nil, fmt.Errorf("code store is required")
	}
	if platform == nil {
		return nil, fmt.Errorf("content platform client is required")
	}
	if profiles == nil {
		return nil, fmt.Errorf("profile store is required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session issuer is required")
	}
	v := &Verifier{codes: codes, platform: platform, profiles: profiles, sessions: sessions}
	for _, opt := range opts {
		opt(v)
	}
	if v.logger == nil {
		v.logger = slog.Default()
	}
	return v, nil
}

// Verify scans the handle's recent posts for its live claim code. On a
// match the code is consumed, the profile is upserted as a verified agent,
// and a session token is issued.
func (v *Verifier) Verify(ctx context.Context, handle string, details ClaimDetails) (*Outcome, error) {
	handle = strings.ToLower(strings.TrimSpace(handle))
	if handle == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "handle is required")
	}

	now := requestcontext.Now(ctx)
	live, err := v.codes.FindLive(ctx, handle, models.ChannelSocialPost, now)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return v.unverified(ctx, handle, "no active claim code for this handle",
				"request a new code and post it, then try again"), nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up claim code")
	}

	found, err := v.scan(ctx, handle, live.Code)
	if err != nil {
		// Fail closed: a platform fault is reported as unverified, with the
		// cause kept to the logs.
		v.logger.WarnContext(ctx, "content platform scan failed",
			"handle", handle, "error", err)
		return v.unverified(ctx, handle, "could not verify the post right now",
			"make sure your post is public and try again in a minute"), nil
	}
	if !found {
		return v.unverified(ctx, handle,
			fmt.Sprintf("code %s not found in your recent posts", live.Code),
			"publish a post or comment containing the code, then verify again"), nil
	}

	if err := v.codes.MarkClaimed(ctx, live.Code); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return v.unverified(ctx, handle, "this code has already been used",
				"request a new code"), nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to claim code")
	}

	profile, err := v.upsertVerified(ctx, handle, details)
	if err != nil {
		return nil, err
	}

	token, err := v.sessions.Issue(profile, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue session")
	}

	if v.metrics != nil {
		v.metrics.ObserveVerification("social_post", "verified")
		v.metrics.ObserveSessionIssued("social_post")
	}
	if v.audit != nil {
		v.audit.Emit(ctx, audit.Event{
			Category:  audit.CategorySecurity,
			Action:    "agent_verified",
			ProfileID: profile.ID.String(),
			Handle:    handle,
			Outcome:   "verified",
			Detail:    map[string]string{"method": string(profilemodels.MethodSocialPost)},
		})
	}
	v.logger.InfoContext(ctx, "agent verified via social post",
		"handle", handle,
		"profile_id", profile.ID,
		"request_id", requestcontext.RequestID(ctx),
	)

	return &Outcome{
		Result: models.Result{
			Verified: true,
			Method:   string(profilemodels.MethodSocialPost),
			Message:  "handle verified",
		},
		Profile: profile,
		Token:   token,
	}, nil
}

// scan looks for the code in post bodies first, then fans out over the
// comment threads of unmatched posts. First match wins and stops the scan.
func (v *Verifier) scan(ctx context.Context, handle, codeValue string) (bool, error) {
	posts, err := v.platform.RecentPosts(ctx, handle, postScanLimit)
	if err != nil {
		return false, err
	}

	for _, post := range posts {
		if strings.Contains(post.Title, codeValue) || strings.Contains(post.Content, codeValue) {
			return true, nil
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(commentConcurrency)
	for _, post := range posts {
		g.Go(func() error {
			comments, err := v.platform.Comments(gctx, post.ID)
			if err != nil {
				return err
			}
			for _, comment := range comments {
				if strings.Contains(comment.Content, codeValue) {
					return errCodeFound
				}
			}
			return nil
		})
	}

	err = g.Wait()
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, errCodeFound):
		return true, nil
	default:
		return false, err
	}
}

func (v *Verifier) upsertVerified(ctx context.Context, handle string, details ClaimDetails) (*profilemodels.Profile, error) {
	now := requestcontext.Now(ctx)

	profile, err := v.profiles.GetByHandle(ctx, handle)
	switch {
	case err == nil:
	case errors.Is(err, sentinel.ErrNotFound):
		profile = &profilemodels.Profile{
			ID:         id.NewProfileID(),
			EntityType: profilemodels.EntityAgent,
			Handle:     handle,
			Tier:       profilemodels.TierNew,
			Skills:     []string{},
			CreatedAt:  now,
		}
		if err := v.profiles.Create(ctx, profile); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create profile")
		}
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile")
	}

	if details.DisplayName != "" {
		profile.DisplayName = details.DisplayName
	}
	if profile.DisplayName == "" {
		profile.DisplayName = handle
	}
	if details.Bio != "" {
		profile.Bio = details.Bio
	}
	if details.Model != "" {
		profile.Model = details.Model
	}
	if details.Operator != "" {
		profile.Operator = details.Operator
	}
	if details.Website != "" {
		profile.Website = details.Website
	}

	profile.VerificationStatus = profilemodels.StatusVerified
	profile.VerificationMethod = profilemodels.Stronger(profile.VerificationMethod, profilemodels.MethodSocialPost)
	if profile.VerifiedAt == nil {
		profile.VerifiedAt = &now
	}
	profile.UpdatedAt = now
	profile.LastActive = now

	if err := v.profiles.Update(ctx, profile); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update profile")
	}
	return profile, nil
}

func (v *Verifier) unverified(ctx context.Context, handle, message, hint string) *Outcome {
	if v.metrics != nil {
		v.metrics.ObserveVerification("social_post", "unverified")
	}
	if v.audit != nil {
		v.audit.Emit(ctx, audit.Event{
			Category: audit.CategorySecurity,
			Action:   "agent_verification_failed",
			Handle:   handle,
			Outcome:  "unverified",
		})
	}
	return &Outcome{
		Result: models.Result{Verified: false, Message: message, Hint: hint},
	}
}
