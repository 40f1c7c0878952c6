// Copyright (c) 2025 Tessera Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package repository

import (
	"context"

	"github.com/tessera-social/tessera/tags/models"
)

// TagRepository defines persistence for tags and their post associations.
// Association changes adjust tags.posts_count inside the caller's
// transaction so the derived count stays coherent with the fact rows.
type TagRepository interface {
	// EnsureTags lowercases the names, creates missing rows and returns
	// the tags in the order the names were given.
	EnsureTags(ctx context.Context, names []string) ([]models.Tag, error)

	// ReplaceForPost makes the post's association set equal to tagIDs
	// (ordered), incrementing posts_count on newly associated tags and
	// decrementing it on dropped ones.
	ReplaceForPost(ctx context.Context, postID int64, tagIDs []int64) error

	// DeleteForPost removes every association of the post and decrements
	// the affected tags' posts_count.
	DeleteForPost(ctx context.Context, postID int64) error

	// ListForPost returns the post's tags ordered by position.
	ListForPost(ctx context.Context, postID int64) ([]models.Tag, error)

	// ListForPosts bulk-loads tags for many posts, keyed by post id, each
	// list ordered by position. Avoids N+1 queries on post listings.
	ListForPosts(ctx context.Context, postIDs []int64) (map[int64][]models.Tag, error)
}
