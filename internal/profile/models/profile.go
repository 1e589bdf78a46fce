// Package models defines the unified profile entity shared by agents,
// humans, and organisations.
package models

import (
	"time"

	id "agentsid/pkg/domain"
)

// EntityType discriminates the three kinds of profiles.
type EntityType string

const (
	EntityAgent EntityType = "agent"
	EntityHuman EntityType = "human"
	EntityOrg   EntityType = "org"
)

// IsValid reports whether the entity type is one of the known values.
func (t EntityType) IsValid() bool {
	switch t {
	case EntityAgent, EntityHuman, EntityOrg:
		return true
	}
	return false
}

// VerificationStatus tracks the profile's claim lifecycle.
type VerificationStatus string

const (
	StatusUnverified VerificationStatus = "unverified"
	StatusPending    VerificationStatus = "pending"
	StatusVerified   VerificationStatus = "verified"
)

// VerificationMethod records the strongest proof a profile has presented.
type VerificationMethod string

const (
	MethodNone            VerificationMethod = "none"
	MethodSocialPost      VerificationMethod = "social_post"
	MethodLinkedInOAuth   VerificationMethod = "linkedin_oauth"
	MethodLinkedInCreator VerificationMethod = "linkedin_creator"
	MethodDomainEmail     VerificationMethod = "domain_email"
	MethodDNS             VerificationMethod = "dns"
)

// methodStrength orders proof methods so a verification never downgrades
// the recorded method. DNS control of the registered domain is the
// strongest org proof; a creator-granted verification is the weakest.
var methodStrength = map[VerificationMethod]int{
	MethodNone:            0,
	MethodLinkedInCreator: 1,
	MethodSocialPost:      2,
	MethodLinkedInOAuth:   2,
	MethodDomainEmail:     3,
	MethodDNS:             4,
}

// Stronger returns the stronger of the two methods. Equal strength keeps
// the currently held method.
func Stronger(held, candidate VerificationMethod) VerificationMethod {
	if methodStrength[candidate] > methodStrength[held] {
		return candidate
	}
	return held
}

// Tier buckets a profile's reputation, derived solely from received
// endorsement count. Clients never set it directly.
type Tier string

const (
	TierNew         Tier = "new"
	TierActive      Tier = "active"
	TierEstablished Tier = "established"
	TierTrusted     Tier = "trusted"
)

// Profile is the unified identity record. Entity-specific fields are
// nullable-by-emptiness; the entity type decides which matter.
type Profile struct {
	ID         id.ProfileID `json:"id"`
	EntityType EntityType   `json:"entity_type"`
	Handle     string       `json:"handle"`

	DisplayName string   `json:"display_name"`
	Headline    string   `json:"headline,omitempty"`
	Bio         string   `json:"bio,omitempty"`
	AvatarURL   string   `json:"avatar_url,omitempty"`
	Skills      []string `json:"skills"`

	VerificationStatus VerificationStatus `json:"verification_status"`
	VerificationMethod VerificationMethod `json:"verification_method"`
	VerifiedAt         *time.Time         `json:"verified_at,omitempty"`

	// Agent-specific
	Platform string `json:"platform,omitempty"`
	Model    string `json:"model,omitempty"`
	Operator string `json:"operator,omitempty"`
	Website  string `json:"website,omitempty"`

	// Human-specific
	Email       string `json:"email,omitempty"`
	LinkedInID  string `json:"linkedin_id,omitempty"`
	LinkedInURL string `json:"linkedin_url,omitempty"`

	// Org-specific
	Domain string `json:"domain,omitempty"`

	// Reputation (derived, recomputed on write)
	Tier             Tier `json:"tier"`
	EndorsementCount int  `json:"endorsement_count"`
	GivenCount       int  `json:"given_count"`

	IsAvailable bool   `json:"is_available"`
	RateSummary string `json:"rate_summary,omitempty"`

	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	LastActive time.Time `json:"last_active"`
}

// IsVerified reports whether the profile holds an accepted proof.
func (p *Profile) IsVerified() bool {
	return p.VerificationStatus == StatusVerified
}

// ListFilter narrows and orders a profile listing.
type ListFilter struct {
	EntityType EntityType
	Skill      string
	Tier       Tier
	Available  bool
	Search     string
	Sort       string // recent, name, endorsements
	Limit      int
	Offset     int
}

// ListResult carries one page of profiles plus the unfiltered total.
type ListResult struct {
	Profiles []*Profile
	Total    int
}
