// Copyright (c) 2025 Tessera Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package repository

import (
	"context"

	"github.com/tessera-social/tessera/internal/types"
	"github.com/tessera-social/tessera/notifications/models"
)

// ListFilter narrows a notification listing to read or unread rows; nil
// means both.
type ListFilter struct {
	Read *bool
	Page types.PageQuery
}

// NotificationRepository defines persistence for derived notification rows.
type NotificationRepository interface {
	// Create inserts the notification and fills ID/CreatedAt/UpdatedAt.
	// For mention rows the partial unique index enforces the per
	// (recipient, subject) dedup; a duplicate insert reports created=false
	// and is not an error.
	Create(ctx context.Context, notification *models.Notification) (created bool, err error)

	// FindByID returns the notification with the actor name joined in.
	FindByID(ctx context.Context, id int64) (*models.Notification, error)

	// ListForRecipient returns one page, newest first, plus the total.
	ListForRecipient(ctx context.Context, recipientID int64, filter ListFilter) ([]models.Notification, int64, error)

	// MarkRead flips read on the row if it belongs to the recipient and is
	// still unread; reports whether the row actually changed.
	MarkRead(ctx context.Context, recipientID, id int64) (changed bool, err error)

	// MarkAllRead flips read on every unread row of the recipient and
	// returns the ids that changed.
	MarkAllRead(ctx context.Context, recipientID int64) ([]int64, error)

	// UnreadCount counts the recipient's unread rows.
	UnreadCount(ctx context.Context, recipientID int64) (int64, error)

	// DeleteForSubjects removes notifications whose subject is any of the
	// given entities. Cascading deletes call it before the subjects go.
	DeleteForSubjects(ctx context.Context, subjectType string, subjectIDs []int64) error

	// DeleteCascadeForPost removes every notification that resolves to the
	// post, its comment tree, or reactions on either.
	DeleteCascadeForPost(ctx context.Context, postID int64) error
}
