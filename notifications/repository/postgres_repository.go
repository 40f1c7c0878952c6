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
	"github.com/tessera-social/tessera/notifications/models"
)

// ErrNotFound is returned when no notification row matches the lookup.
var ErrNotFound = errors.New("notification not found")

const selectColumns = `n.id, n.recipient_id, n.actor_id, n.kind, n.subject_type, n.subject_id,
	n.subject_preview, n.read, n.created_at, n.updated_at,
	u.name AS actor_name`

// postgresNotificationRepository implements NotificationRepository using raw SQL queries
type postgresNotificationRepository struct {
	client *postgres.Client
}

// NewPostgresNotificationRepository creates a new PostgreSQL repository for notifications
func NewPostgresNotificationRepository(client *postgres.Client) NotificationRepository {
	return &postgresNotificationRepository{client: client}
}

// getExecutor returns either the transaction from context or the DB connection
func (r *postgresNotificationRepository) getExecutor(ctx context.Context) sqlx.ExtContext {
	if txVal := ctx.Value("tx"); txVal != nil {
		if tx, ok := txVal.(*sqlx.Tx); ok {
			return tx
		}
	}
	return r.client.DB()
}

func (r *postgresNotificationRepository) Create(ctx context.Context, notification *models.Notification) (bool, error) {
	// The ON CONFLICT target is the partial mention-dedup index; non-mention
	// kinds never match it and always insert.
	query := `
		INSERT INTO notifications (recipient_id, actor_id, kind, subject_type, subject_id, subject_preview)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (recipient_id, subject_type, subject_id) WHERE kind = 'mention' DO NOTHING
		RETURNING id, created_at, updated_at
	`
	row := r.getExecutor(ctx).QueryRowxContext(ctx, query,
		notification.RecipientID, notification.ActorID, notification.Kind,
		notification.SubjectType, notification.SubjectID, notification.SubjectPreview)
	if err := row.Scan(&notification.ID, &notification.CreatedAt, &notification.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Conflict with an existing mention row.
			return false, nil
		}
		return false, fmt.Errorf("failed to create notification: %w", err)
	}
	return true, nil
}

func (r *postgresNotificationRepository) FindByID(ctx context.Context, id int64) (*models.Notification, error) {
	query := `
		SELECT ` + selectColumns + `
		FROM notifications n
		JOIN users u ON u.id = n.actor_id
		WHERE n.id = $1
	`
	var notification models.Notification
	err := sqlx.GetContext(ctx, r.getExecutor(ctx), &notification, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find notification: %w", err)
	}
	return &notification, nil
}

func (r *postgresNotificationRepository) ListForRecipient(ctx context.Context, recipientID int64, filter ListFilter) ([]models.Notification, int64, error) {
	where := `n.recipient_id = $1`
	args := []interface{}{recipientID}
	if filter.Read != nil {
		args = append(args, *filter.Read)
		where += ` AND n.read = $2`
	}

	countQuery := `SELECT COUNT(*) FROM notifications n WHERE ` + where
	var total int64
	if err := sqlx.GetContext(ctx, r.getExecutor(ctx), &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	args = append(args, filter.Page.PerPage, filter.Page.Offset())
	query := fmt.Sprintf(`
		SELECT `+selectColumns+`
		FROM notifications n
		JOIN users u ON u.id = n.actor_id
		WHERE `+where+`
		ORDER BY n.created_at DESC, n.id DESC
		LIMIT $%d OFFSET $%d
	`, len(args)-1, len(args))

	var notifications []models.Notification
	if err := sqlx.SelectContext(ctx, r.getExecutor(ctx), &notifications, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, total, nil
}

func (r *postgresNotificationRepository) MarkRead(ctx context.Context, recipientID, id int64) (bool, error) {
	// The read = FALSE guard makes the call idempotent: a second mark
	// changes nothing and emits nothing.
	query := `
		UPDATE notifications
		SET read = TRUE, updated_at = now()
		WHERE id = $1 AND recipient_id = $2 AND read = FALSE
	`
	result, err := r.getExecutor(ctx).ExecContext(ctx, query, id, recipientID)
	if err != nil {
		return false, fmt.Errorf("failed to mark notification read: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *postgresNotificationRepository) MarkAllRead(ctx context.Context, recipientID int64) ([]int64, error) {
	query := `
		UPDATE notifications
		SET read = TRUE, updated_at = now()
		WHERE recipient_id = $1 AND read = FALSE
		RETURNING id
	`
	rows, err := r.getExecutor(ctx).QueryxContext(ctx, query, recipientID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark all notifications read: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan notification id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *postgresNotificationRepository) UnreadCount(ctx context.Context, recipientID int64) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND read = FALSE`
	if err := sqlx.GetContext(ctx, r.getExecutor(ctx), &count, query, recipientID); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

func (r *postgresNotificationRepository) DeleteForSubjects(ctx context.Context, subjectType string, subjectIDs []int64) error {
	if len(subjectIDs) == 0 {
		return nil
	}
	query := `DELETE FROM notifications WHERE subject_type = $1 AND subject_id = ANY($2::bigint[])`
	if _, err := r.getExecutor(ctx).ExecContext(ctx, query, subjectType, pq.Array(subjectIDs)); err != nil {
		return fmt.Errorf("failed to delete notifications for subjects: %w", err)
	}
	return nil
}

func (r *postgresNotificationRepository) DeleteCascadeForPost(ctx context.Context, postID int64) error {
	query := `
		DELETE FROM notifications
		WHERE (subject_type = 'post' AND subject_id = $1)
		   OR (subject_type = 'comment' AND subject_id IN (
				SELECT id FROM comments WHERE root_post_id = $1))
		   OR (subject_type = 'reaction' AND subject_id IN (
				SELECT id FROM reactions
				WHERE (target_type = 'post' AND target_id = $1)
				   OR (target_type = 'comment' AND target_id IN (
						SELECT id FROM comments WHERE root_post_id = $1))))
	`
	if _, err := r.getExecutor(ctx).ExecContext(ctx, query, postID); err != nil {
		return fmt.Errorf("failed to cascade notifications for post: %w", err)
	}
	return nil
}
