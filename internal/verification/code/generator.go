package code

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"agentsid/internal/verification/models"
	dErrors "agentsid/pkg/domain-errors"
	"agentsid/pkg/requestcontext"
)

// SocialPrefix is the user-visible prefix on social-post claim codes.
const SocialPrefix = "AGENTSID-"

// DNSPrefix is the key half of the expected TXT record.
const DNSPrefix = "agentsid-verify="

// Generator issues verification codes. Formats are bit-exact where surfaced
// to users:
//
//	social post: AGENTSID-<8 uppercase hex chars>
//	email:       6 ASCII digits
//	dns:         agentsid-verify=<handle>
type Generator struct {
	store  Store
	logger *slog.Logger
}

type GeneratorOption func(*Generator)

func WithLogger(logger *slog.Logger) GeneratorOption {
	return func(g *Generator) {
		g.logger = logger
	}
}

func NewGenerator(store Store, opts ...GeneratorOption) (*Generator, error) {
	if store == nil {
		return nil, fmt.Errorf("code store is required")
	}
	g := &Generator{store: store}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	return g, nil
}

// IssueEmail creates a fresh email code bound to its delivery address.
func (g *Generator) IssueEmail(ctx context.Context, subjectHandle, email string) (*models.Code, error) {
	return g.issue(ctx, subjectHandle, models.ChannelDomainEmail, email)
}

// Issue creates a fresh code for (subject, channel), invalidating any prior
// unclaimed code for the pair. DNS tokens are deterministic per handle, so
// re-issuance is idempotent by construction.
func (g *Generator) Issue(ctx context.Context, subjectHandle string, channel models.Channel) (*models.Code, error) {
	return g.issue(ctx, subjectHandle, channel, "")
}

func (g *Generator) issue(ctx context.Context, subjectHandle string, channel models.Channel, email string) (*models.Code, error) {
	subjectHandle = strings.ToLower(strings.TrimSpace(subjectHandle))
	if subjectHandle == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "subject handle is required")
	}

	value, err := generate(channel, subjectHandle)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate code")
	}

	now := requestcontext.Now(ctx)
	c := &models.Code{
		Code:          value,
		SubjectHandle: subjectHandle,
		Channel:       channel,
		Email:         email,
		CreatedAt:     now,
	}
	if ttl, expires := channel.TTL(); expires {
		expiresAt := now.Add(ttl)
		c.ExpiresAt = &expiresAt
	}

	if err := g.store.Replace(ctx, c); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store verification code")
	}

	g.logger.InfoContext(ctx, "verification code issued",
		"subject", subjectHandle,
		"channel", channel,
		"request_id", requestcontext.RequestID(ctx),
	)
	return c, nil
}

func generate(channel models.Channel, subject string) (string, error) {
	switch channel {
	case models.ChannelSocialPost:
		buf := make([]byte, 4)
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		return SocialPrefix + strings.ToUpper(hex.EncodeToString(buf)), nil
	case models.ChannelDomainEmail:
		n, err := rand.Int(rand.Reader, big.NewInt(900000))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%06d", n.Int64()+100000), nil
	case models.ChannelDNS:
		return DNSPrefix + subject, nil
	default:
		return "", fmt.Errorf("unknown channel %q", channel)
	}
}

// ExpectedDNSRecord returns the TXT record value an org must publish.
func ExpectedDNSRecord(orgHandle string) string {
	return DNSPrefix + strings.ToLower(orgHandle)
}
