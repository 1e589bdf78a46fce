// Package session mints and validates signed session tokens issued after
// a successful verification.
package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	profilemodels "agentsid/internal/profile/models"
	id "agentsid/pkg/domain"
	dErrors "agentsid/pkg/domain-errors"
)

// CookieName is the session cookie set after browser-based verification.
const CookieName = "agentsid_session"

// Claims carried in a session token.
type Claims struct {
	ProfileID  string `json:"profile_id"`
	EntityType string `json:"entity_type"`
	Handle     string `json:"handle"`
	Verified   bool   `json:"verified"`
	jwt.RegisteredClaims
}

// Issuer signs and validates session tokens with an HS256 shared secret.
type Issuer struct {
	signingKey []byte
	ttl        time.Duration
}

func NewIssuer(signingKey string, ttl time.Duration) (*Issuer, error) {
	if signingKey == "" {
		return nil, fmt.Errorf("signing key is required")
	}
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Issuer{signingKey: []byte(signingKey), ttl: ttl}, nil
}

// TTL returns the configured session lifetime.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue mints a session token for the profile.
func (i *Issuer) Issue(p *profilemodels.Profile, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		ProfileID:  p.ID.String(),
		EntityType: string(p.EntityType),
		Handle:     p.Handle,
		Verified:   p.IsVerified(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "agentsid",
			ID:        uuid.NewString(),
		},
	})

	signed, err := token.SignedString(i.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a session token. Every failure mode
// (tampered payload, wrong signature, expired) returns the same
// unauthorized error so callers cannot distinguish them.
func (i *Issuer) Validate(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return i.signingKey, nil
	})
	if err != nil || !parsed.Valid {
		return nil, errNotAuthenticated()
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, errNotAuthenticated()
	}
	if _, err := id.ParseProfileID(claims.ProfileID); err != nil {
		return nil, errNotAuthenticated()
	}
	return claims, nil
}

func errNotAuthenticated() error {
	return dErrors.New(dErrors.CodeUnauthorized, "not authenticated")
}
