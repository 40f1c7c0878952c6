package services

import (
	"context"

	"github.com/tessera-social/tessera/comments/models"
	"github.com/tessera-social/tessera/internal/types"
	postmodels "github.com/tessera-social/tessera/posts/models"
)

// CommentService defines the interface for comment tree operations
type CommentService interface {
	// CreateComment creates a comment under a post or another comment.
	// The parent is fixed at creation; root resolution and counter
	// adjustments happen in the same transaction.
	CreateComment(ctx context.Context, parentType string, parentID int64, req *models.CreateCommentRequest, user *types.UserContext) (*models.CommentView, error)

	// ListComments returns one page of direct children of the commentable.
	ListComments(ctx context.Context, parentType string, parentID int64, page types.PageQuery, viewer *types.UserContext) ([]models.CommentView, types.PageMeta, error)

	// UpdateComment replaces the description; only the author may call it.
	UpdateComment(ctx context.Context, id int64, req *models.UpdateCommentRequest, user *types.UserContext) (*models.CommentView, error)

	// DeleteComment removes the comment and its whole subtree; only the
	// author may call it.
	DeleteComment(ctx context.Context, id int64, user *types.UserContext) error

	// RootPost resolves the post at the top of the comment's parent chain.
	RootPost(ctx context.Context, commentID int64) (*postmodels.Post, error)

	// Ancestors returns the chain from the comment's parent up to (and
	// excluding) the root post, nearest parent first.
	Ancestors(ctx context.Context, commentID int64) ([]models.Comment, error)
}
