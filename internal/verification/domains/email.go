package domains

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"

	affiliationstore "agentsid/internal/affiliation/store"
	"agentsid/internal/platform/email"
	"agentsid/internal/platform/metrics"
	profilemodels "agentsid/internal/profile/models"
	profilestore "agentsid/internal/profile/store"
	"agentsid/internal/verification/code"
	"agentsid/internal/verification/models"
	dErrors "agentsid/pkg/domain-errors"
	"agentsid/pkg/platform/audit"
	"agentsid/pkg/platform/sentinel"
	"agentsid/pkg/requestcontext"
)

const (
	emailIssueLimit  = 3
	emailIssueWindow = 60 * time.Minute
)

// EmailVerifier proves org ownership by mailing a short-lived numeric code
// to an address on the org's registered domain.
type EmailVerifier struct {
	authorizer
	codes     code.Store
	generator *code.Generator
	sender    email.Sender
	audit     audit.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

type EmailOption func(*EmailVerifier)

func WithEmailLogger(logger *slog.Logger) EmailOption {
	return func(v *EmailVerifier) {
		v.logger = logger
	}
}

func WithEmailMetrics(m *metrics.Metrics) EmailOption {
	return func(v *EmailVerifier) {
		v.metrics = m
	}
}

func WithEmailAudit(p audit.Publisher) EmailOption {
	return func(v *EmailVerifier) {
		v.audit = p
	}
}

func NewEmailVerifier(
	profiles profilestore.Store,
	affiliations affiliationstore.Store,
	codes code.Store,
	generator *code.Generator,
	sender email.Sender,
	opts ...EmailOption,
) (*EmailVerifier, error) {
	if profiles == nil || affiliations == nil || codes == nil || generator == nil || sender == nil {
		return nil, fmt.Errorf("profiles, affiliations, codes, generator, and sender are all required")
	}
	v := &EmailVerifier{
		authorizer: authorizer{profiles: profiles, affiliations: affiliations},
		codes:      codes,
		generator:  generator,
		sender:     sender,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.logger == nil {
		v.logger = slog.Default()
	}
	return v, nil
}

// SendCode issues and mails a verification code for the org. The address
// domain must equal the org's registered domain; issuance is capped at 3
// per org per rolling hour, counted against the code store itself.
func (v *EmailVerifier) SendCode(ctx context.Context, caller requestcontext.Session, orgHandle, address string) error {
	org, err := v.authorizeOrgAction(ctx, caller, orgHandle)
	if err != nil {
		return err
	}

	address = strings.TrimSpace(address)
	if !govalidator.IsEmail(address) {
		return dErrors.New(dErrors.CodeBadRequest, "a valid email address is required")
	}
	if org.Domain == "" {
		return dErrors.New(dErrors.CodeBadRequest, "organisation has no registered domain")
	}
	if !strings.EqualFold(domainPart(address), org.Domain) {
		return dErrors.Newf(dErrors.CodeBadRequest,
			"email must be on the organisation domain %s", org.Domain)
	}

	now := requestcontext.Now(ctx)
	issued, err := v.codes.CountIssuedSince(ctx, org.Handle, models.ChannelDomainEmail, now.Add(-emailIssueWindow))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check issuance history")
	}
	if issued >= emailIssueLimit {
		if v.metrics != nil {
			v.metrics.ObserveRateLimited("org_email_verification")
		}
		return dErrors.Newf(dErrors.CodeRateLimited,
			"too many verification emails: at most %d per %s", emailIssueLimit, emailIssueWindow)
	}

	c, err := v.generator.IssueEmail(ctx, org.Handle, address)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("Verify %s on AgentSid", org.DisplayName)
	body := fmt.Sprintf(
		"<p>Your verification code for <strong>%s</strong> is:</p><h2>%s</h2><p>It expires in 15 minutes.</p>",
		org.Handle, c.Code)
	if err := v.sender.Send(ctx, address, subject, body); err != nil {
		v.logger.ErrorContext(ctx, "verification email dispatch failed",
			"org", org.Handle, "error", err)
		return dErrors.New(dErrors.CodeUnavailable, "could not send the verification email, try again later")
	}

	v.logger.InfoContext(ctx, "verification email sent",
		"org", org.Handle,
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

// VerifyCode consumes a mailed code and marks the org verified. The
// recorded method never downgrades: an org already verified via DNS keeps
// dns.
func (v *EmailVerifier) VerifyCode(ctx context.Context, caller requestcontext.Session, orgHandle, presented string) (*models.Result, error) {
	org, err := v.authorizeOrgAction(ctx, caller, orgHandle)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	live, err := v.codes.FindLive(ctx, org.Handle, models.ChannelDomainEmail, now)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return v.unverified(ctx, org.Handle, "no active code, or the code has expired",
				"request a new verification email"), nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up code")
	}

	if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(presented)), []byte(live.Code)) != 1 {
		return v.unverified(ctx, org.Handle, "incorrect code",
			"check the 6-digit code from the email"), nil
	}

	if err := v.codes.MarkClaimed(ctx, live.Code); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return v.unverified(ctx, org.Handle, "this code has already been used",
				"request a new verification email"), nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to claim code")
	}

	if err := markOrgVerified(ctx, v.profiles, org, profilemodels.MethodDomainEmail); err != nil {
		return nil, err
	}

	if v.metrics != nil {
		v.metrics.ObserveVerification("domain_email", "verified")
	}
	if v.audit != nil {
		v.audit.Emit(ctx, audit.Event{
			Category:  audit.CategorySecurity,
			Action:    "org_verified",
			ProfileID: org.ID.String(),
			Handle:    org.Handle,
			Outcome:   "verified",
			Detail:    map[string]string{"method": string(profilemodels.MethodDomainEmail)},
		})
	}
	v.logger.InfoContext(ctx, "organisation verified via email",
		"org", org.Handle,
		"request_id", requestcontext.RequestID(ctx),
	)

	return &models.Result{
		Verified: true,
		Method:   string(org.VerificationMethod),
		Message:  "organisation verified",
	}, nil
}

func (v *EmailVerifier) unverified(ctx context.Context, orgHandle, message, hint string) *models.Result {
	if v.metrics != nil {
		v.metrics.ObserveVerification("domain_email", "unverified")
	}
	if v.audit != nil {
		v.audit.Emit(ctx, audit.Event{
			Category: audit.CategorySecurity,
			Action:   "org_verification_failed",
			Handle:   orgHandle,
			Outcome:  "unverified",
		})
	}
	return &models.Result{Verified: false, Message: message, Hint: hint}
}

func domainPart(address string) string {
	at := strings.LastIndex(address, "@")
	if at < 0 {
		return ""
	}
	return address[at+1:]
}

// markOrgVerified flips the org to verified, keeping the strongest method
// already held.
func markOrgVerified(ctx context.Context, profiles profilestore.Store, org *profilemodels.Profile, method profilemodels.VerificationMethod) error {
	now := requestcontext.Now(ctx)

	org.VerificationStatus = profilemodels.StatusVerified
	org.VerificationMethod = profilemodels.Stronger(org.VerificationMethod, method)
	if org.VerifiedAt == nil {
		org.VerifiedAt = &now
	}
	org.UpdatedAt = now

	if err := profiles.Update(ctx, org); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update organisation")
	}
	return nil
}
