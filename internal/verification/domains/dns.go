package domains

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	affiliationstore "agentsid/internal/affiliation/store"
	"agentsid/internal/platform/metrics"
	profilemodels "agentsid/internal/profile/models"
	profilestore "agentsid/internal/profile/store"
	"agentsid/internal/verification/code"
	"agentsid/internal/verification/models"
	dErrors "agentsid/pkg/domain-errors"
	"agentsid/pkg/platform/audit"
	"agentsid/pkg/requestcontext"
)

// foundRecordsPreview bounds how many TXT records a not-found result echoes
// back for operator debugging.
const foundRecordsPreview = 10

// Resolver is the DNS lookup surface. *net.Resolver satisfies it.
type Resolver interface {
	LookupTXT(ctx context.Context, name string) ([]string, error)
}

// DNSVerifier proves org ownership by an exact-match TXT record on the
// org's registered domain. DNS tokens never expire; verification can be
// re-run at any time.
type DNSVerifier struct {
	authorizer
	resolver Resolver
	audit    audit.Publisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

type DNSOption func(*DNSVerifier)

func WithDNSLogger(logger *slog.Logger) DNSOption {
	return func(v *DNSVerifier) {
		v.logger = logger
	}
}

func WithDNSMetrics(m *metrics.Metrics) DNSOption {
	return func(v *DNSVerifier) {
		v.metrics = m
	}
}

func WithDNSAudit(p audit.Publisher) DNSOption {
	return func(v *DNSVerifier) {
		v.audit = p
	}
}

func WithResolver(r Resolver) DNSOption {
	return func(v *DNSVerifier) {
		v.resolver = r
	}
}

func NewDNSVerifier(
	profiles profilestore.Store,
	affiliations affiliationstore.Store,
	opts ...DNSOption,
) (*DNSVerifier, error) {
	if profiles == nil || affiliations == nil {
		return nil, fmt.Errorf("profiles and affiliations are required")
	}
	v := &DNSVerifier{
		authorizer: authorizer{profiles: profiles, affiliations: affiliations},
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.resolver == nil {
		v.resolver = net.DefaultResolver
	}
	if v.logger == nil {
		v.logger = slog.Default()
	}
	return v, nil
}

// Verify resolves the org domain's TXT records and looks for the exact
// expected token. Resolver errors and missing records both come back as a
// structured unverified result carrying the expected value and a preview
// of what was actually found; they are never surfaced as server faults.
func (v *DNSVerifier) Verify(ctx context.Context, caller requestcontext.Session, orgHandle string) (*models.Result, error) {
	org, err := v.authorizeOrgAction(ctx, caller, orgHandle)
	if err != nil {
		return nil, err
	}
	if org.Domain == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "organisation has no registered domain")
	}

	expected := code.ExpectedDNSRecord(org.Handle)

	records, err := v.resolver.LookupTXT(ctx, org.Domain)
	if err != nil {
		v.logger.WarnContext(ctx, "txt lookup failed",
			"org", org.Handle, "domain", org.Domain, "error", err)
		return v.unverified(ctx, org, expected, nil,
			fmt.Sprintf("could not resolve TXT records for %s", org.Domain)), nil
	}

	for _, record := range records {
		if record == expected {
			if err := markOrgVerified(ctx, v.profiles, org, profilemodels.MethodDNS); err != nil {
				return nil, err
			}

			if v.metrics != nil {
				v.metrics.ObserveVerification("dns", "verified")
			}
			if v.audit != nil {
				v.audit.Emit(ctx, audit.Event{
					Category:  audit.CategorySecurity,
					Action:    "org_verified",
					ProfileID: org.ID.String(),
					Handle:    org.Handle,
					Outcome:   "verified",
					Detail:    map[string]string{"method": string(profilemodels.MethodDNS)},
				})
			}
			v.logger.InfoContext(ctx, "organisation verified via dns",
				"org", org.Handle,
				"domain", org.Domain,
				"request_id", requestcontext.RequestID(ctx),
			)

			return &models.Result{
				Verified: true,
				Method:   string(profilemodels.MethodDNS),
				Message:  "organisation verified",
			}, nil
		}
	}

	preview := records
	if len(preview) > foundRecordsPreview {
		preview = preview[:foundRecordsPreview]
	}
	return v.unverified(ctx, org, expected, preview,
		fmt.Sprintf("expected TXT record not found on %s", org.Domain)), nil
}

func (v *DNSVerifier) unverified(ctx context.Context, org *profilemodels.Profile, expected string, found []string, message string) *models.Result {
	if v.metrics != nil {
		v.metrics.ObserveVerification("dns", "unverified")
	}
	if v.audit != nil {
		v.audit.Emit(ctx, audit.Event{
			Category: audit.CategorySecurity,
			Action:   "org_verification_failed",
			Handle:   org.Handle,
			Outcome:  "unverified",
		})
	}
	return &models.Result{
		Verified:       false,
		Message:        message,
		Hint:           fmt.Sprintf("add a TXT record with the value %q to %s, then verify again", expected, org.Domain),
		ExpectedRecord: expected,
		FoundRecords:   found,
	}
}
