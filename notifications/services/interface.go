package services

import (
	"context"

	"github.com/tessera-social/tessera/internal/types"
	"github.com/tessera-social/tessera/notifications/models"
)

// ListQuery narrows a notification listing. Read and Unread are mutually
// exclusive shortcuts; setting both (or neither) returns everything.
type ListQuery struct {
	Read   bool `query:"read"`
	Unread bool `query:"unread"`
	types.PageQuery
}

// NotificationService defines the interface for the recipient-facing
// notification operations. Rows are created by the engine, never here.
type NotificationService interface {
	// List returns one page of the user's notifications, newest first.
	List(ctx context.Context, query *ListQuery, user *types.UserContext) ([]models.NotificationView, types.PageMeta, error)

	// MarkRead flips a single notification to read. Idempotent; a repeat
	// call succeeds without emitting anything.
	MarkRead(ctx context.Context, id int64, user *types.UserContext) error

	// MarkAllRead flips every unread notification of the user and returns
	// how many rows actually changed.
	MarkAllRead(ctx context.Context, user *types.UserContext) (int64, error)

	// UnreadCount counts the user's unread notifications.
	UnreadCount(ctx context.Context, user *types.UserContext) (int64, error)
}
