// Package models defines verification channels, issued codes, and the
// common verifier result shape.
package models

import (
	"time"
)

// Channel identifies a verification proof mechanism.
type Channel string

const (
	ChannelSocialPost  Channel = "social_post"
	ChannelDomainEmail Channel = "domain_email"
	ChannelDNS         Channel = "dns"
)

// TTL returns the code lifetime for the channel. DNS tokens do not expire;
// re-verification is allowed at any time.
func (c Channel) TTL() (time.Duration, bool) {
	switch c {
	case ChannelSocialPost:
		return 30 * time.Minute, true
	case ChannelDomainEmail:
		return 15 * time.Minute, true
	default:
		return 0, false
	}
}

// Code is an issued verification token. At most one unclaimed, unexpired
// code exists per (subject, channel); issuing a new one invalidates priors.
type Code struct {
	Code          string
	SubjectHandle string
	Channel       Channel
	Email         string // delivery address, domain_email only
	ExpiresAt     *time.Time
	Claimed       bool
	CreatedAt     time.Time
}

// Expired reports whether the code is past its expiry at the given time.
// Codes without an expiry (DNS) never expire.
func (c *Code) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

// Result is the uniform verifier outcome. Verified=false always carries
// guidance for the caller; external faults collapse into unverified rather
// than surfacing as server errors.
type Result struct {
	Verified bool   `json:"verified"`
	Method   string `json:"method,omitempty"`
	Message  string `json:"message,omitempty"`
	Hint     string `json:"hint,omitempty"`

	// DNS-specific debugging aid: the record we looked for and a bounded
	// preview of what the domain actually serves.
	ExpectedRecord string   `json:"expected_record,omitempty"`
	FoundRecords   []string `json:"found_records,omitempty"`
}
