package models

import (
	"database/sql"
	"time"

	commentmodels "github.com/tessera-social/tessera/comments/models"
	"github.com/tessera-social/tessera/internal/types"
	tagmodels "github.com/tessera-social/tessera/tags/models"
	usermodels "github.com/tessera-social/tessera/users/models"
)

// Post is the durable post row. ReactionsCount and CommentsCount are
// maintained inside the same transaction as the mutation that changes them;
// CommentsCount counts every comment whose chain root is this post, not
// just direct children.
type Post struct {
	ID             int64          `db:"id" json:"id"`
	AuthorID       int64          `db:"author_id" json:"author_id"`
	Title          string         `db:"title" json:"title"`
	Description    string         `db:"description" json:"description"`
	ImageURL       sql.NullString `db:"image_url" json:"-"`
	ReactionsCount int            `db:"reactions_count" json:"reactions_count"`
	CommentsCount  int            `db:"comments_count" json:"comments_count"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`

	// AuthorName is populated by queries that join users.
	AuthorName string `db:"author_name" json:"-"`

	// Tags is populated by the service after loading the associations;
	// ordered by the position the author gave them.
	Tags []tagmodels.TagView `db:"-" json:"-"`
}

// PostView is the broadcast and REST projection of a post. ViewerReaction
// and RecentComments are only ever set on authenticated REST reads; fan-out
// envelopes never carry viewer-specific fields.
type PostView struct {
	ID             int64                      `json:"id"`
	Author         usermodels.AuthorView      `json:"author"`
	Title          string                     `json:"title"`
	Description    string                     `json:"description"`
	ImageURL       string                     `json:"image_url,omitempty"`
	ReactionsCount int                        `json:"reactions_count"`
	CommentsCount  int                        `json:"comments_count"`
	Tags           []tagmodels.TagView        `json:"tags"`
	CreatedAt      time.Time                  `json:"created_at"`
	UpdatedAt      time.Time                  `json:"updated_at"`
	ViewerReaction string                     `json:"viewer_reaction,omitempty"`
	RecentComments []commentmodels.CommentView `json:"recent_comments,omitempty"`
}

// View builds the projection from a post whose AuthorName and Tags are
// populated.
func (p *Post) View() PostView {
	tags := p.Tags
	if tags == nil {
		tags = []tagmodels.TagView{}
	}
	return PostView{
		ID:             p.ID,
		Author:         usermodels.AuthorView{ID: p.AuthorID, Name: p.AuthorName},
		Title:          p.Title,
		Description:    p.Description,
		ImageURL:       p.ImageURL.String,
		ReactionsCount: p.ReactionsCount,
		CommentsCount:  p.CommentsCount,
		Tags:           tags,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

// CreatePostRequest is the body for creating a post.
type CreatePostRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ImageURL    string   `json:"image_url"`
	Tags        []string `json:"tags"`
}

// UpdatePostRequest is the body for replacing a post's content. Tags are
// set semantics: the given list replaces the current association.
type UpdatePostRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ImageURL    string   `json:"image_url"`
	Tags        []string `json:"tags"`
}

// ListPostsQuery is decoded from the query string of GET /posts. The
// bracketed tag_ids[] key follows the platform's client convention.
type ListPostsQuery struct {
	Page    int     `schema:"page"`
	PerPage int     `schema:"per_page"`
	UserID  int64   `schema:"user_id"`
	Search  string  `schema:"search"`
	TagIDs  []int64 `schema:"tag_ids[]"`
}

// PageQuery returns the normalized pagination pair.
func (q *ListPostsQuery) PageQuery() types.PageQuery {
	pq := types.PageQuery{Page: q.Page, PerPage: q.PerPage}
	pq.Normalize()
	return pq
}
