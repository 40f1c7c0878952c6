// Copyright (c) 2025 Tessera Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package models

import (
	"time"

	usermodels "github.com/tessera-social/tessera/users/models"
)

// Reaction kinds
const (
	KindLike    = "like"
	KindLove    = "love"
	KindDislike = "dislike"
)

// Reaction target kinds
const (
	TargetTypePost    = "post"
	TargetTypeComment = "comment"
)

// Toggle outcomes
const (
	ActionAdded   = "added"
	ActionRemoved = "removed"
	ActionChanged = "changed"
)

// Reaction is the single row per (actor, target). Toggling the same kind
// removes the row; toggling another kind updates it in place.
type Reaction struct {
	ID         int64     `db:"id" json:"id"`
	ActorID    int64     `db:"actor_id" json:"actor_id"`
	TargetType string    `db:"target_type" json:"target_type"`
	TargetID   int64     `db:"target_id" json:"target_id"`
	Kind       string    `db:"kind" json:"kind"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`

	// ActorName is populated by queries that join users.
	ActorName string `db:"actor_name" json:"-"`
}

// ReactionView is the REST projection of a reaction.
type ReactionView struct {
	ID         int64                 `json:"id"`
	Actor      usermodels.AuthorView `json:"actor"`
	TargetType string                `json:"target_type"`
	TargetID   int64                 `json:"target_id"`
	Kind       string                `json:"kind"`
	CreatedAt  time.Time             `json:"created_at"`
}

// View builds the projection from a reaction whose ActorName is populated.
func (r *Reaction) View() ReactionView {
	return ReactionView{
		ID:         r.ID,
		Actor:      usermodels.AuthorView{ID: r.ActorID, Name: r.ActorName},
		TargetType: r.TargetType,
		TargetID:   r.TargetID,
		Kind:       r.Kind,
		CreatedAt:  r.CreatedAt,
	}
}

// ToggleRequest is the body for POST …/reactions.
type ToggleRequest struct {
	Kind string `json:"kind"`
}

// ToggleResult reports what the toggle did. Reaction is nil after a
// removal. ReactionsCount is the target's count after the toggle.
type ToggleResult struct {
	Action         string    `json:"action"`
	Reaction       *Reaction `json:"reaction,omitempty"`
	ReactionsCount int       `json:"reactions_count"`
}

// CountsView aggregates reactions per kind for a target.
type CountsView struct {
	Like    int `db:"like" json:"like"`
	Love    int `db:"love" json:"love"`
	Dislike int `db:"dislike" json:"dislike"`
	Total   int `db:"total" json:"total"`
}

// IsValidKind checks the reaction kind.
func IsValidKind(kind string) bool {
	return kind == KindLike || kind == KindLove || kind == KindDislike
}
