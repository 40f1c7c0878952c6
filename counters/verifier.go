// Copyright (c) 2025 Tessera Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package counters recomputes every derived counter from its fact table.
// The mutating transactions keep the counters correct; the verifier is the
// safety net that repairs whatever drift operational accidents leave
// behind, and its log is the alarm that the mutation paths have a bug.
package counters

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tessera-social/tessera/internal/pkg/log"
)

// check recomputes one counter column. Each statement repairs only rows
// whose stored value actually differs, and reports how many it touched.
type check struct {
	name  string
	query string
}

var checks = []check{
	{
		name: "posts.reactions_count",
		query: `
			UPDATE posts p
			SET reactions_count = f.actual
			FROM (
				SELECT p2.id, COUNT(r.id) AS actual
				FROM posts p2
				LEFT JOIN reactions r ON r.target_type = 'post' AND r.target_id = p2.id
				GROUP BY p2.id
			) f
			WHERE p.id = f.id AND p.reactions_count IS DISTINCT FROM f.actual`,
	},
	{
		name: "posts.comments_count",
		query: `
			UPDATE posts p
			SET comments_count = f.actual
			FROM (
				SELECT p2.id, COUNT(c.id) AS actual
				FROM posts p2
				LEFT JOIN comments c ON c.root_post_id = p2.id
				GROUP BY p2.id
			) f
			WHERE p.id = f.id AND p.comments_count IS DISTINCT FROM f.actual`,
	},
	{
		name: "comments.reactions_count",
		query: `
			UPDATE comments c
			SET reactions_count = f.actual
			FROM (
				SELECT c2.id, COUNT(r.id) AS actual
				FROM comments c2
				LEFT JOIN reactions r ON r.target_type = 'comment' AND r.target_id = c2.id
				GROUP BY c2.id
			) f
			WHERE c.id = f.id AND c.reactions_count IS DISTINCT FROM f.actual`,
	},
	{
		name: "comments.replies_count",
		query: `
			UPDATE comments c
			SET replies_count = f.actual
			FROM (
				SELECT c2.id, COUNT(r.id) AS actual
				FROM comments c2
				LEFT JOIN comments r ON r.commentable_type = 'comment' AND r.commentable_id = c2.id
				GROUP BY c2.id
			) f
			WHERE c.id = f.id AND c.replies_count IS DISTINCT FROM f.actual`,
	},
	{
		name: "users.posts_count",
		query: `
			UPDATE users u
			SET posts_count = f.actual
			FROM (
				SELECT u2.id, COUNT(p.id) AS actual
				FROM users u2
				LEFT JOIN posts p ON p.author_id = u2.id
				GROUP BY u2.id
			) f
			WHERE u.id = f.id AND u.posts_count IS DISTINCT FROM f.actual`,
	},
	{
		name: "tags.posts_count",
		query: `
			UPDATE tags t
			SET posts_count = f.actual
			FROM (
				SELECT t2.id, COUNT(pt.post_id) AS actual
				FROM tags t2
				LEFT JOIN post_tags pt ON pt.tag_id = t2.id
				GROUP BY t2.id
			) f
			WHERE t.id = f.id AND t.posts_count IS DISTINCT FROM f.actual`,
	},
}

// Verifier periodically reconciles derived counters against fact tables.
type Verifier struct {
	db       *sqlx.DB
	interval time.Duration
}

// NewVerifier creates a verifier. A non-positive interval disables Run.
func NewVerifier(db *sqlx.DB, interval time.Duration) *Verifier {
	return &Verifier{db: db, interval: interval}
}

// Run loops until the context is cancelled. It is meant to live on its own
// goroutine.
func (v *Verifier) Run(ctx context.Context) {
	if v.interval <= 0 {
		return
	}

	ticker := time.NewTicker(v.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := v.VerifyOnce(ctx); err != nil {
				log.Error("counter verification: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// VerifyOnce runs every check once and returns the first hard failure.
// Repaired drift is logged per counter.
func (v *Verifier) VerifyOnce(ctx context.Context) error {
	for _, c := range checks {
		result, err := v.db.ExecContext(ctx, c.query)
		if err != nil {
			return fmt.Errorf("verify %s: %w", c.name, err)
		}
		repaired, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("verify %s rows: %w", c.name, err)
		}
		if repaired > 0 {
			log.Warn("counter drift repaired on %s: %d rows", c.name, repaired)
		}
	}
	return nil
}
