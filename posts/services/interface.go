package services

import (
	"context"

	"github.com/tessera-social/tessera/internal/types"
	"github.com/tessera-social/tessera/posts/models"
)

// PostService defines the interface for post operations
type PostService interface {
	// CreatePost creates a post with its tag associations and bumps the
	// author's posts_count, all in one transaction.
	CreatePost(ctx context.Context, req *models.CreatePostRequest, user *types.UserContext) (*models.PostView, error)

	// GetPost returns the post view with tags and a short thread preview.
	// A non-nil viewer adds the viewer's own reaction.
	GetPost(ctx context.Context, id int64, viewer *types.UserContext) (*models.PostView, error)

	// ListPosts returns one page of post views, newest first.
	ListPosts(ctx context.Context, query *models.ListPostsQuery, viewer *types.UserContext) ([]models.PostView, types.PageMeta, error)

	// UpdatePost replaces the post content; only the author may call it.
	UpdatePost(ctx context.Context, id int64, req *models.UpdatePostRequest, user *types.UserContext) (*models.PostView, error)

	// DeletePost removes the post and cascades to comments, reactions,
	// notifications and tag associations; only the author may call it.
	DeletePost(ctx context.Context, id int64, user *types.UserContext) error
}
