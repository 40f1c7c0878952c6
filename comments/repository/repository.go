// Copyright (c) 2025 Tessera Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package repository

import (
	"context"

	"github.com/tessera-social/tessera/comments/models"
	"github.com/tessera-social/tessera/internal/types"
)

// CommentRepository defines persistence for the polymorphic comment tree.
// Every comment row carries root_post_id so ancestry never walks the chain
// row by row.
type CommentRepository interface {
	// Create inserts the comment and fills ID/CreatedAt/UpdatedAt.
	// RootPostID must already be resolved by the caller.
	Create(ctx context.Context, comment *models.Comment) error

	// FindByID returns the comment with the author name joined in.
	FindByID(ctx context.Context, id int64) (*models.Comment, error)

	// LockForUpdate loads the comment under a row lock for reaction toggles.
	LockForUpdate(ctx context.Context, id int64) (*models.Comment, error)

	// ListFor returns one page of direct children of the commentable,
	// ordered created_at DESC with id DESC as the tie break, plus the
	// total child count.
	ListFor(ctx context.Context, commentableType string, commentableID int64, page types.PageQuery) ([]models.Comment, int64, error)

	// Update replaces the description.
	Update(ctx context.Context, comment *models.Comment) error

	// Subtree returns the comment and every descendant (recursive CTE),
	// depth-first order unspecified.
	Subtree(ctx context.Context, id int64) ([]models.Comment, error)

	// DeleteByIDs removes the given comment rows.
	DeleteByIDs(ctx context.Context, ids []int64) error

	// DeleteForRootPost removes every comment whose chain root is the post
	// and returns how many rows went away.
	DeleteForRootPost(ctx context.Context, postID int64) (int64, error)

	IncrementRepliesCount(ctx context.Context, id int64, delta int) error
	IncrementReactionsCount(ctx context.Context, id int64, delta int) error
}
