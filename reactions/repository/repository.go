// Copyright (c) 2025 Tessera Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package repository

import (
	"context"

	"github.com/tessera-social/tessera/reactions/models"
)

// ReactionRepository defines persistence for reaction rows. The unique
// (actor, target) constraint backs the toggle state machine; Insert
// surfaces a violation as ErrDuplicate so the service can retry against
// the now-current row.
type ReactionRepository interface {
	// FindByActorAndTarget returns nil, ErrNotFound when the actor has no
	// reaction on the target.
	FindByActorAndTarget(ctx context.Context, actorID int64, targetType string, targetID int64) (*models.Reaction, error)

	// Insert creates the row and fills ID/CreatedAt/UpdatedAt.
	Insert(ctx context.Context, reaction *models.Reaction) error

	// UpdateKind changes the kind of an existing row in place.
	UpdateKind(ctx context.Context, id int64, kind string) error

	// Delete removes the row.
	Delete(ctx context.Context, id int64) error

	// CountsForTarget aggregates the target's reactions per kind.
	CountsForTarget(ctx context.Context, targetType string, targetID int64) (*models.CountsView, error)

	// KindsForTargets bulk-loads the actor's reactions on many targets,
	// keyed by target id. Used to decorate REST reads with the viewer's
	// own reaction without N+1 queries.
	KindsForTargets(ctx context.Context, actorID int64, targetType string, targetIDs []int64) (map[int64]string, error)

	// DeleteForTargets removes every reaction on the given targets and
	// returns the ids of the deleted reaction rows, so notification
	// cascades can follow.
	DeleteForTargets(ctx context.Context, targetType string, targetIDs []int64) ([]int64, error)

	// DeleteCascadeForPost removes every reaction on the post and on any
	// comment in its tree.
	DeleteCascadeForPost(ctx context.Context, postID int64) error
}
