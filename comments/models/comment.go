package models

import (
	"time"

	usermodels "github.com/tessera-social/tessera/users/models"
)

// Commentable kinds. A comment hangs off either a post or another comment;
// the parent is fixed at creation and never changes.
const (
	CommentableTypePost    = "post"
	CommentableTypeComment = "comment"
)

// Comment is a node in the polymorphic comment tree. RootPostID is resolved
// at create time (the parent post, or the parent comment's own root) so
// ancestry walks never traverse the chain row by row.
type Comment struct {
	ID              int64     `db:"id" json:"id"`
	AuthorID        int64     `db:"author_id" json:"author_id"`
	Description     string    `db:"description" json:"description"`
	CommentableType string    `db:"commentable_type" json:"commentable_type"`
	CommentableID   int64     `db:"commentable_id" json:"commentable_id"`
	RootPostID      int64     `db:"root_post_id" json:"root_post_id"`
	ReactionsCount  int       `db:"reactions_count" json:"reactions_count"`
	RepliesCount    int       `db:"replies_count" json:"replies_count"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`

	// AuthorName is populated by queries that join users; it never maps to
	// a comments column.
	AuthorName string `db:"author_name" json:"-"`
}

// CommentView is the broadcast and REST projection of a comment.
// ViewerReaction is only ever set on authenticated REST reads.
type CommentView struct {
	ID              int64                 `json:"id"`
	Author          usermodels.AuthorView `json:"author"`
	Description     string                `json:"description"`
	CommentableType string                `json:"commentable_type"`
	CommentableID   int64                 `json:"commentable_id"`
	RootPostID      int64                 `json:"root_post_id"`
	ReactionsCount  int                   `json:"reactions_count"`
	RepliesCount    int                   `json:"replies_count"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
	ViewerReaction  string                `json:"viewer_reaction,omitempty"`
}

// View builds the projection from a comment whose AuthorName is populated.
func (c *Comment) View() CommentView {
	return CommentView{
		ID:              c.ID,
		Author:          usermodels.AuthorView{ID: c.AuthorID, Name: c.AuthorName},
		Description:     c.Description,
		CommentableType: c.CommentableType,
		CommentableID:   c.CommentableID,
		RootPostID:      c.RootPostID,
		ReactionsCount:  c.ReactionsCount,
		RepliesCount:    c.RepliesCount,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

// CreateCommentRequest is the body for commenting on a post or replying to
// a comment.
type CreateCommentRequest struct {
	Description string `json:"description"`
}

// UpdateCommentRequest is the body for editing a comment.
type UpdateCommentRequest struct {
	Description string `json:"description"`
}
