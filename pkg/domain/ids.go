// Package domain holds shared domain primitives: typed identifiers and
// enumerations used across feature modules. Typed IDs prevent accidental
// cross-assignment (passing an endorsement ID where a profile ID belongs)
// at compile time.
package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// ProfileID identifies a profile (agent, human, or org).
type ProfileID uuid.UUID

// NewProfileID generates a random profile ID.
func NewProfileID() ProfileID {
	return ProfileID(uuid.New())
}

// ParseProfileID validates and returns a ProfileID.
func ParseProfileID(s string) (ProfileID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ProfileID{}, fmt.Errorf("invalid profile id: %w", err)
	}
	return ProfileID(u), nil
}

func (id ProfileID) String() string {
	return uuid.UUID(id).String()
}

// IsNil reports whether the ID is the zero value.
func (id ProfileID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

func (id ProfileID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ProfileID) UnmarshalText(data []byte) error {
	parsed, err := ParseProfileID(string(data))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// EndorsementID identifies an endorsement record.
type EndorsementID uuid.UUID

func NewEndorsementID() EndorsementID {
	return EndorsementID(uuid.New())
}

func ParseEndorsementID(s string) (EndorsementID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return EndorsementID{}, fmt.Errorf("invalid endorsement id: %w", err)
	}
	return EndorsementID(u), nil
}

func (id EndorsementID) String() string {
	return uuid.UUID(id).String()
}

func (id EndorsementID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

func (id EndorsementID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *EndorsementID) UnmarshalText(data []byte) error {
	parsed, err := ParseEndorsementID(string(data))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// CollaborationID identifies a recorded collaboration edge.
type CollaborationID uuid.UUID

func NewCollaborationID() CollaborationID {
	return CollaborationID(uuid.New())
}

func ParseCollaborationID(s string) (CollaborationID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return CollaborationID{}, fmt.Errorf("invalid collaboration id: %w", err)
	}
	return CollaborationID(u), nil
}

func (id CollaborationID) String() string {
	return uuid.UUID(id).String()
}

func (id CollaborationID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

func (id CollaborationID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *CollaborationID) UnmarshalText(data []byte) error {
	parsed, err := ParseCollaborationID(string(data))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// AffiliationID identifies an org membership/employment edge.
type AffiliationID uuid.UUID

func NewAffiliationID() AffiliationID {
	return AffiliationID(uuid.New())
}

func ParseAffiliationID(s string) (AffiliationID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return AffiliationID{}, fmt.Errorf("invalid affiliation id: %w", err)
	}
	return AffiliationID(u), nil
}

func (id AffiliationID) String() string {
	return uuid.UUID(id).String()
}

func (id AffiliationID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

func (id AffiliationID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *AffiliationID) UnmarshalText(data []byte) error {
	parsed, err := ParseAffiliationID(string(data))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
