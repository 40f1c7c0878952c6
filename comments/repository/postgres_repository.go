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

	"github.com/tessera-social/tessera/comments/models"
	"github.com/tessera-social/tessera/internal/database/postgres"
	"github.com/tessera-social/tessera/internal/types"
)

// ErrNotFound is returned when no comment row matches the lookup.
var ErrNotFound = errors.New("comment not found")

const selectColumns = `c.id, c.author_id, c.description, c.commentable_type, c.commentable_id,
	c.root_post_id, c.reactions_count, c.replies_count, c.created_at, c.updated_at,
	u.name AS author_name`

// postgresCommentRepository implements CommentRepository using raw SQL queries
type postgresCommentRepository struct {
	client *postgres.Client
}

// NewPostgresCommentRepository creates a new PostgreSQL repository for comments
func NewPostgresCommentRepository(client *postgres.Client) CommentRepository {
	return &postgresCommentRepository{client: client}
}

// getExecutor returns either the transaction from context or the DB connection
func (r *postgresCommentRepository) getExecutor(ctx context.Context) sqlx.ExtContext {
	if txVal := ctx.Value("tx"); txVal != nil {
		if tx, ok := txVal.(*sqlx.Tx); ok {
			return tx
		}
	}
	return r.client.DB()
}

func (r *postgresCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	query := `
		INSERT INTO comments (author_id, description, commentable_type, commentable_id, root_post_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	row := r.getExecutor(ctx).QueryRowxContext(ctx, query,
		comment.AuthorID, comment.Description, comment.CommentableType,
		comment.CommentableID, comment.RootPostID)
	if err := row.Scan(&comment.ID, &comment.CreatedAt, &comment.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}
	return nil
}

func (r *postgresCommentRepository) FindByID(ctx context.Context, id int64) (*models.Comment, error) {
	query := `
		SELECT ` + selectColumns + `
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.id = $1
	`
	return r.findOne(ctx, query, id)
}

func (r *postgresCommentRepository) LockForUpdate(ctx context.Context, id int64) (*models.Comment, error) {
	query := `
		SELECT ` + selectColumns + `
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.id = $1
		FOR UPDATE OF c
	`
	return r.findOne(ctx, query, id)
}

func (r *postgresCommentRepository) findOne(ctx context.Context, query string, id int64) (*models.Comment, error) {
	var comment models.Comment
	err := sqlx.GetContext(ctx, r.getExecutor(ctx), &comment, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find comment: %w", err)
	}
	return &comment, nil
}

func (r *postgresCommentRepository) ListFor(ctx context.Context, commentableType string, commentableID int64, page types.PageQuery) ([]models.Comment, int64, error) {
	countQuery := `
		SELECT COUNT(*) FROM comments
		WHERE commentable_type = $1 AND commentable_id = $2
	`
	var total int64
	if err := sqlx.GetContext(ctx, r.getExecutor(ctx), &total, countQuery, commentableType, commentableID); err != nil {
		return nil, 0, fmt.Errorf("failed to count comments: %w", err)
	}

	query := `
		SELECT ` + selectColumns + `
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.commentable_type = $1 AND c.commentable_id = $2
		ORDER BY c.created_at DESC, c.id DESC
		LIMIT $3 OFFSET $4
	`
	var comments []models.Comment
	err := sqlx.SelectContext(ctx, r.getExecutor(ctx), &comments, query,
		commentableType, commentableID, page.PerPage, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, total, nil
}

func (r *postgresCommentRepository) Update(ctx context.Context, comment *models.Comment) error {
	query := `
		UPDATE comments
		SET description = $2, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`
	row := r.getExecutor(ctx).QueryRowxContext(ctx, query, comment.ID, comment.Description)
	if err := row.Scan(&comment.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update comment: %w", err)
	}
	return nil
}

func (r *postgresCommentRepository) Subtree(ctx context.Context, id int64) ([]models.Comment, error) {
	// The recursion only ever descends comment -> comment edges; the
	// root_post_id shortcut makes the ancestor direction a single hop.
	query := `
		WITH RECURSIVE subtree AS (
			SELECT c.* FROM comments c WHERE c.id = $1
			UNION ALL
			SELECT c.* FROM comments c
			JOIN subtree s ON c.commentable_type = 'comment' AND c.commentable_id = s.id
		)
		SELECT s.id, s.author_id, s.description, s.commentable_type, s.commentable_id,
			s.root_post_id, s.reactions_count, s.replies_count, s.created_at, s.updated_at,
			u.name AS author_name
		FROM subtree s
		JOIN users u ON u.id = s.author_id
	`
	var comments []models.Comment
	if err := sqlx.SelectContext(ctx, r.getExecutor(ctx), &comments, query, id); err != nil {
		return nil, fmt.Errorf("failed to collect subtree: %w", err)
	}
	return comments, nil
}

func (r *postgresCommentRepository) DeleteByIDs(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	query := `DELETE FROM comments WHERE id = ANY($1::bigint[])`
	if _, err := r.getExecutor(ctx).ExecContext(ctx, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("failed to delete comments: %w", err)
	}
	return nil
}

func (r *postgresCommentRepository) DeleteForRootPost(ctx context.Context, postID int64) (int64, error) {
	result, err := r.getExecutor(ctx).ExecContext(ctx, `DELETE FROM comments WHERE root_post_id = $1`, postID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete comments for post: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return rows, nil
}

func (r *postgresCommentRepository) IncrementRepliesCount(ctx context.Context, id int64, delta int) error {
	return r.increment(ctx, "replies_count", id, delta)
}

func (r *postgresCommentRepository) IncrementReactionsCount(ctx context.Context, id int64, delta int) error {
	return r.increment(ctx, "reactions_count", id, delta)
}

func (r *postgresCommentRepository) increment(ctx context.Context, column string, id int64, delta int) error {
	query := `UPDATE comments SET ` + column + ` = ` + column + ` + $2, updated_at = now() WHERE id = $1`
	if _, err := r.getExecutor(ctx).ExecContext(ctx, query, id, delta); err != nil {
		return fmt.Errorf("failed to increment %s: %w", column, err)
	}
	return nil
}
