// Copyright (c) 2025 Tessera Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/tessera-social/tessera/internal/database/postgres"
	"github.com/tessera-social/tessera/reactions/models"
)

// ErrNotFound is returned when no reaction row matches the lookup.
var ErrNotFound = errors.New("reaction not found")

// ErrDuplicate is returned when an insert loses the (actor, target)
// uniqueness race.
var ErrDuplicate = errors.New("reaction already exists")

// postgresReactionRepository implements ReactionRepository using raw SQL queries
type postgresReactionRepository struct {
	client *postgres.Client
}

// NewPostgresReactionRepository creates a new PostgreSQL repository for reactions
func NewPostgresReactionRepository(client *postgres.Client) ReactionRepository {
	return &postgresReactionRepository{client: client}
}

// getExecutor returns either the transaction from context or the DB connection
func (r *postgresReactionRepository) getExecutor(ctx context.Context) sqlx.ExtContext {
	if txVal := ctx.Value("tx"); txVal != nil {
		if tx, ok := txVal.(*sqlx.Tx); ok {
			return tx
		}
	}
	return r.client.DB()
}

func (r *postgresReactionRepository) FindByActorAndTarget(ctx context.Context, actorID int64, targetType string, targetID int64) (*models.Reaction, error) {
	query := `
		SELECT r.id, r.actor_id, r.target_type, r.target_id, r.kind, r.created_at, r.updated_at,
			u.name AS actor_name
		FROM reactions r
		JOIN users u ON u.id = r.actor_id
		WHERE r.actor_id = $1 AND r.target_type = $2 AND r.target_id = $3
	`
	var reaction models.Reaction
	err := sqlx.GetContext(ctx, r.getExecutor(ctx), &reaction, query, actorID, targetType, targetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find reaction: %w", err)
	}
	return &reaction, nil
}

func (r *postgresReactionRepository) Insert(ctx context.Context, reaction *models.Reaction) error {
	query := `
		INSERT INTO reactions (actor_id, target_type, target_id, kind)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	row := r.getExecutor(ctx).QueryRowxContext(ctx, query,
		reaction.ActorID, reaction.TargetType, reaction.TargetID, reaction.Kind)
	if err := row.Scan(&reaction.ID, &reaction.CreatedAt, &reaction.UpdatedAt); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert reaction: %w", err)
	}
	return nil
}

func (r *postgresReactionRepository) UpdateKind(ctx context.Context, id int64, kind string) error {
	query := `UPDATE reactions SET kind = $2, updated_at = now() WHERE id = $1`
	result, err := r.getExecutor(ctx).ExecContext(ctx, query, id, kind)
	if err != nil {
		return fmt.Errorf("failed to update reaction: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresReactionRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.getExecutor(ctx).ExecContext(ctx, `DELETE FROM reactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete reaction: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresReactionRepository) CountsForTarget(ctx context.Context, targetType string, targetID int64) (*models.CountsView, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE kind = 'like')    AS "like",
			COUNT(*) FILTER (WHERE kind = 'love')    AS "love",
			COUNT(*) FILTER (WHERE kind = 'dislike') AS "dislike",
			COUNT(*)                                 AS "total"
		FROM reactions
		WHERE target_type = $1 AND target_id = $2
	`
	var counts models.CountsView
	if err := sqlx.GetContext(ctx, r.getExecutor(ctx), &counts, query, targetType, targetID); err != nil {
		return nil, fmt.Errorf("failed to count reactions: %w", err)
	}
	return &counts, nil
}

func (r *postgresReactionRepository) KindsForTargets(ctx context.Context, actorID int64, targetType string, targetIDs []int64) (map[int64]string, error) {
	result := make(map[int64]string, len(targetIDs))
	if len(targetIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT target_id, kind
		FROM reactions
		WHERE actor_id = $1 AND target_type = $2 AND target_id = ANY($3::bigint[])
	`
	type kindRow struct {
		TargetID int64  `db:"target_id"`
		Kind     string `db:"kind"`
	}
	var rows []kindRow
	err := sqlx.SelectContext(ctx, r.getExecutor(ctx), &rows, query, actorID, targetType, pq.Array(targetIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to load viewer reactions: %w", err)
	}
	for _, row := range rows {
		result[row.TargetID] = row.Kind
	}
	return result, nil
}

func (r *postgresReactionRepository) DeleteForTargets(ctx context.Context, targetType string, targetIDs []int64) ([]int64, error) {
	if len(targetIDs) == 0 {
		return nil, nil
	}
	query := `
		DELETE FROM reactions
		WHERE target_type = $1 AND target_id = ANY($2::bigint[])
		RETURNING id
	`
	rows, err := r.getExecutor(ctx).QueryxContext(ctx, query, targetType, pq.Array(targetIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to delete reactions: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan deleted reaction id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *postgresReactionRepository) DeleteCascadeForPost(ctx context.Context, postID int64) error {
	query := `
		DELETE FROM reactions
		WHERE (target_type = 'post' AND target_id = $1)
		   OR (target_type = 'comment' AND target_id IN (
				SELECT id FROM comments WHERE root_post_id = $1))
	`
	if _, err := r.getExecutor(ctx).ExecContext(ctx, query, postID); err != nil {
		return fmt.Errorf("failed to cascade reactions for post: %w", err)
	}
	return nil
}
