// Package models defines affiliations: membership/employment edges
// between a human or agent and an organisation. Domain verifiers require
// an active, bilaterally confirmed affiliation before acting for an org.
package models

import (
	"time"

	id "agentsid/pkg/domain"
)

// Type tags the nature of the edge.
type Type string

const (
	TypeEmployment Type = "employment"
	TypeMembership Type = "membership"
	TypeOperator   Type = "operator"
)

func (t Type) IsValid() bool {
	switch t {
	case TypeEmployment, TypeMembership, TypeOperator:
		return true
	}
	return false
}

// Status tracks the edge lifecycle.
type Status string

const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
	StatusEnded   Status = "ended"
)

// Affiliation links a child profile (human or agent) to a parent org.
type Affiliation struct {
	ID       id.AffiliationID `json:"id"`
	ParentID id.ProfileID     `json:"parent_id"`
	ChildID  id.ProfileID     `json:"child_id"`
	Type     Type             `json:"type"`
	Status   Status           `json:"status"`
	Role     string           `json:"role,omitempty"`

	ConfirmedByParent bool `json:"confirmed_by_parent"`
	ConfirmedByChild  bool `json:"confirmed_by_child"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsActive reports whether the edge authorizes org-scoped actions: the
// affiliation must be active and confirmed by both sides.
func (a *Affiliation) IsActive() bool {
	return a.Status == StatusActive && a.ConfirmedByParent && a.ConfirmedByChild
}
