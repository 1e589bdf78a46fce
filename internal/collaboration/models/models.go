// Package models defines collaboration records. A collaboration is an
// undirected link between two profiles evidencing that they worked
// together; endorsements are gated on its existence.
package models

import (
	"time"

	id "agentsid/pkg/domain"
)

// Source tags how a collaboration was observed.
type Source string

const (
	SourceExternalPost Source = "external_post"
	SourceThread       Source = "thread"
	SourceTaskHandoff  Source = "task_handoff"
	SourceAPIAsserted  Source = "api_asserted"
)

// IsValid reports whether the source is one of the known values.
func (s Source) IsValid() bool {
	switch s {
	case SourceExternalPost, SourceThread, SourceTaskHandoff, SourceAPIAsserted:
		return true
	}
	return false
}

// Collaboration links two profiles. The pair is unordered: a record
// between (A, B) satisfies a lookup for (B, A).
type Collaboration struct {
	ID          id.CollaborationID `json:"id"`
	ProfileA    id.ProfileID       `json:"profile_a"`
	ProfileB    id.ProfileID       `json:"profile_b"`
	Source      Source             `json:"source"`
	Context     string             `json:"context,omitempty"`
	ExternalRef string             `json:"external_ref,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}
