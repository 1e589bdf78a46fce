// Package models defines endorsement records: one profile vouching for
// another on a named skill, gated on prior collaboration.
package models

import (
	"time"

	id "agentsid/pkg/domain"
)

// Endorsement is a directed (from, to, skill) edge. The triple is unique;
// skills are stored lowercase.
type Endorsement struct {
	ID        id.EndorsementID `json:"id"`
	FromID    id.ProfileID     `json:"from_id"`
	ToID      id.ProfileID     `json:"to_id"`
	Skill     string           `json:"skill"`
	Note      string           `json:"note,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// Direction selects which side of the edge a listing follows.
type Direction string

const (
	DirectionReceived Direction = "received"
	DirectionGiven    Direction = "given"
)

func (d Direction) IsValid() bool {
	return d == DirectionReceived || d == DirectionGiven
}
