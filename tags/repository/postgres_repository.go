// Copyright (c) 2025 Tessera Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/tessera-social/tessera/internal/database/postgres"
	"github.com/tessera-social/tessera/tags/models"
)

// postgresTagRepository implements TagRepository using raw SQL queries
type postgresTagRepository struct {
	client *postgres.Client
}

// NewPostgresTagRepository creates a new PostgreSQL repository for tags
func NewPostgresTagRepository(client *postgres.Client) TagRepository {
	return &postgresTagRepository{client: client}
}

// getExecutor returns either the transaction from context or the DB connection
func (r *postgresTagRepository) getExecutor(ctx context.Context) sqlx.ExtContext {
	if txVal := ctx.Value("tx"); txVal != nil {
		if tx, ok := txVal.(*sqlx.Tx); ok {
			return tx
		}
	}
	return r.client.DB()
}

func (r *postgresTagRepository) EnsureTags(ctx context.Context, names []string) ([]models.Tag, error) {
	if len(names) == 0 {
		return nil, nil
	}

	// Lowercase and dedup while preserving the author's order.
	seen := make(map[string]bool, len(names))
	lowered := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		lowered = append(lowered, name)
	}
	if len(lowered) == 0 {
		return nil, nil
	}

	// ON CONFLICT DO NOTHING keeps concurrent first-use creation safe; the
	// follow-up SELECT picks up rows created by either side.
	insertQuery := `
		INSERT INTO tags (name)
		SELECT unnest($1::text[])
		ON CONFLICT (name) DO NOTHING
	`
	if _, err := r.getExecutor(ctx).ExecContext(ctx, insertQuery, pq.Array(lowered)); err != nil {
		return nil, fmt.Errorf("failed to create tags: %w", err)
	}

	query := `SELECT * FROM tags WHERE name = ANY($1)`
	var rows []models.Tag
	if err := sqlx.SelectContext(ctx, r.getExecutor(ctx), &rows, query, pq.Array(lowered)); err != nil {
		return nil, fmt.Errorf("failed to load tags: %w", err)
	}

	byName := make(map[string]models.Tag, len(rows))
	for _, tag := range rows {
		byName[tag.Name] = tag
	}
	ordered := make([]models.Tag, 0, len(lowered))
	for _, name := range lowered {
		if tag, ok := byName[name]; ok {
			ordered = append(ordered, tag)
		}
	}
	return ordered, nil
}

func (r *postgresTagRepository) ReplaceForPost(ctx context.Context, postID int64, tagIDs []int64) error {
	// Dropped associations give their tags back a count.
	removeQuery := `
		WITH removed AS (
			DELETE FROM post_tags
			WHERE post_id = $1 AND NOT (tag_id = ANY($2::bigint[]))
			RETURNING tag_id
		)
		UPDATE tags SET posts_count = posts_count - 1, updated_at = now()
		WHERE id IN (SELECT tag_id FROM removed)
	`
	if _, err := r.getExecutor(ctx).ExecContext(ctx, removeQuery, postID, pq.Array(tagIDs)); err != nil {
		return fmt.Errorf("failed to remove tag associations: %w", err)
	}

	for position, tagID := range tagIDs {
		insertQuery := `
			WITH added AS (
				INSERT INTO post_tags (post_id, tag_id, position)
				VALUES ($1, $2, $3)
				ON CONFLICT (post_id, tag_id) DO UPDATE SET position = EXCLUDED.position
				RETURNING (xmax = 0) AS inserted
			)
			UPDATE tags SET posts_count = posts_count + 1, updated_at = now()
			WHERE id = $2 AND (SELECT inserted FROM added)
		`
		if _, err := r.getExecutor(ctx).ExecContext(ctx, insertQuery, postID, tagID, position); err != nil {
			return fmt.Errorf("failed to associate tag %d: %w", tagID, err)
		}
	}
	return nil
}

func (r *postgresTagRepository) DeleteForPost(ctx context.Context, postID int64) error {
	query := `
		WITH removed AS (
			DELETE FROM post_tags WHERE post_id = $1
			RETURNING tag_id
		)
		UPDATE tags SET posts_count = posts_count - 1, updated_at = now()
		WHERE id IN (SELECT tag_id FROM removed)
	`
	if _, err := r.getExecutor(ctx).ExecContext(ctx, query, postID); err != nil {
		return fmt.Errorf("failed to delete tag associations: %w", err)
	}
	return nil
}

func (r *postgresTagRepository) ListForPost(ctx context.Context, postID int64) ([]models.Tag, error) {
	query := `
		SELECT t.* FROM tags t
		JOIN post_tags pt ON pt.tag_id = t.id
		WHERE pt.post_id = $1
		ORDER BY pt.position
	`
	var tags []models.Tag
	if err := sqlx.SelectContext(ctx, r.getExecutor(ctx), &tags, query, postID); err != nil {
		return nil, fmt.Errorf("failed to list tags for post: %w", err)
	}
	return tags, nil
}

func (r *postgresTagRepository) ListForPosts(ctx context.Context, postIDs []int64) (map[int64][]models.Tag, error) {
	result := make(map[int64][]models.Tag, len(postIDs))
	if len(postIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT pt.post_id, t.id, t.name, t.color, t.posts_count, t.created_at, t.updated_at
		FROM tags t
		JOIN post_tags pt ON pt.tag_id = t.id
		WHERE pt.post_id = ANY($1::bigint[])
		ORDER BY pt.post_id, pt.position
	`

	type taggedRow struct {
		PostID int64 `db:"post_id"`
		models.Tag
	}
	var rows []taggedRow
	if err := sqlx.SelectContext(ctx, r.getExecutor(ctx), &rows, query, pq.Array(postIDs)); err != nil {
		return nil, fmt.Errorf("failed to list tags for posts: %w", err)
	}
	for _, row := range rows {
		result[row.PostID] = append(result[row.PostID], row.Tag)
	}
	return result, nil
}
