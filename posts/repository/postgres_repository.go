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
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/tessera-social/tessera/internal/database/postgres"
	"github.com/tessera-social/tessera/posts/models"
)

// ErrNotFound is returned when no post row matches the lookup.
var ErrNotFound = errors.New("post not found")

const selectColumns = `p.id, p.author_id, p.title, p.description, p.image_url,
	p.reactions_count, p.comments_count, p.created_at, p.updated_at,
	u.name AS author_name`

// postgresPostRepository implements PostRepository using raw SQL queries
type postgresPostRepository struct {
	client *postgres.Client
}

// NewPostgresPostRepository creates a new PostgreSQL repository for posts
func NewPostgresPostRepository(client *postgres.Client) PostRepository {
	return &postgresPostRepository{client: client}
}

// getExecutor returns either the transaction from context or the DB connection
func (r *postgresPostRepository) getExecutor(ctx context.Context) sqlx.ExtContext {
	if txVal := ctx.Value("tx"); txVal != nil {
		if tx, ok := txVal.(*sqlx.Tx); ok {
			return tx
		}
	}
	return r.client.DB()
}

func (r *postgresPostRepository) Create(ctx context.Context, post *models.Post) error {
	query := `
		INSERT INTO posts (author_id, title, description, image_url)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	row := r.getExecutor(ctx).QueryRowxContext(ctx, query,
		post.AuthorID, post.Title, post.Description, post.ImageURL)
	if err := row.Scan(&post.ID, &post.CreatedAt, &post.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}
	return nil
}

func (r *postgresPostRepository) FindByID(ctx context.Context, id int64) (*models.Post, error) {
	query := `
		SELECT ` + selectColumns + `
		FROM posts p
		JOIN users u ON u.id = p.author_id
		WHERE p.id = $1
	`
	var post models.Post
	err := sqlx.GetContext(ctx, r.getExecutor(ctx), &post, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	return &post, nil
}

func (r *postgresPostRepository) LockForUpdate(ctx context.Context, id int64) (*models.Post, error) {
	// FOR UPDATE OF p keeps the lock off the joined users row.
	query := `
		SELECT ` + selectColumns + `
		FROM posts p
		JOIN users u ON u.id = p.author_id
		WHERE p.id = $1
		FOR UPDATE OF p
	`
	var post models.Post
	err := sqlx.GetContext(ctx, r.getExecutor(ctx), &post, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to lock post: %w", err)
	}
	return &post, nil
}

func (r *postgresPostRepository) List(ctx context.Context, filter ListFilter) ([]models.Post, int64, error) {
	where := []string{"TRUE"}
	args := []interface{}{}

	if filter.UserID > 0 {
		args = append(args, filter.UserID)
		where = append(where, "p.author_id = $"+strconv.Itoa(len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		n := strconv.Itoa(len(args))
		where = append(where, "(p.title ILIKE $"+n+" OR p.description ILIKE $"+n+")")
	}
	if len(filter.TagIDs) > 0 {
		args = append(args, pq.Array(filter.TagIDs))
		where = append(where, "EXISTS (SELECT 1 FROM post_tags pt WHERE pt.post_id = p.id AND pt.tag_id = ANY($"+strconv.Itoa(len(args))+"::bigint[]))")
	}

	whereClause := strings.Join(where, " AND ")

	countQuery := `SELECT COUNT(*) FROM posts p WHERE ` + whereClause
	var total int64
	if err := sqlx.GetContext(ctx, r.getExecutor(ctx), &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count posts: %w", err)
	}

	args = append(args, filter.Page.PerPage, filter.Page.Offset())
	limitArg := strconv.Itoa(len(args) - 1)
	offsetArg := strconv.Itoa(len(args))

	query := `
		SELECT ` + selectColumns + `
		FROM posts p
		JOIN users u ON u.id = p.author_id
		WHERE ` + whereClause + `
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $` + limitArg + ` OFFSET $` + offsetArg

	var posts []models.Post
	if err := sqlx.SelectContext(ctx, r.getExecutor(ctx), &posts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, total, nil
}

func (r *postgresPostRepository) Update(ctx context.Context, post *models.Post) error {
	query := `
		UPDATE posts
		SET title = $2, description = $3, image_url = $4, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`
	row := r.getExecutor(ctx).QueryRowxContext(ctx, query,
		post.ID, post.Title, post.Description, post.ImageURL)
	if err := row.Scan(&post.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update post: %w", err)
	}
	return nil
}

func (r *postgresPostRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.getExecutor(ctx).ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
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

func (r *postgresPostRepository) IncrementCommentsCount(ctx context.Context, id int64, delta int) error {
	return r.increment(ctx, "comments_count", id, delta)
}

func (r *postgresPostRepository) IncrementReactionsCount(ctx context.Context, id int64, delta int) error {
	return r.increment(ctx, "reactions_count", id, delta)
}

func (r *postgresPostRepository) increment(ctx context.Context, column string, id int64, delta int) error {
	query := `UPDATE posts SET ` + column + ` = ` + column + ` + $2, updated_at = now() WHERE id = $1`
	if _, err := r.getExecutor(ctx).ExecContext(ctx, query, id, delta); err != nil {
		return fmt.Errorf("failed to increment %s: %w", column, err)
	}
	return nil
}
