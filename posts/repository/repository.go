// Copyright (c) 2025 Tessera Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package repository

import (
	"context"

	"github.com/tessera-social/tessera/internal/types"
	"github.com/tessera-social/tessera/posts/models"
)

// ListFilter narrows the post listing. Zero values mean "no filter";
// TagIDs use OR semantics (a post matches when it carries any listed tag).
type ListFilter struct {
	UserID int64
	Search string
	TagIDs []int64
	Page   types.PageQuery
}

// PostRepository defines persistence for post rows. Counter methods are
// atomic SQL increments so concurrent mutators never lose updates.
type PostRepository interface {
	// Create inserts the post and fills ID/CreatedAt/UpdatedAt.
	Create(ctx context.Context, post *models.Post) error

	// FindByID returns the post with the author name joined in.
	FindByID(ctx context.Context, id int64) (*models.Post, error)

	// LockForUpdate loads the post under a row lock. Reaction toggles take
	// it before the read-modify-write on the reaction row.
	LockForUpdate(ctx context.Context, id int64) (*models.Post, error)

	// List returns one page of posts (newest first) and the total count
	// for the filter.
	List(ctx context.Context, filter ListFilter) ([]models.Post, int64, error)

	// Update replaces title, description and image.
	Update(ctx context.Context, post *models.Post) error

	// Delete removes the post row only; the service owns the cascade order.
	Delete(ctx context.Context, id int64) error

	IncrementCommentsCount(ctx context.Context, id int64, delta int) error
	IncrementReactionsCount(ctx context.Context, id int64, delta int) error
}
