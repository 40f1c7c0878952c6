// Copyright (c) 2025 Tessera Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/tessera-social/tessera/internal/events"
	"github.com/tessera-social/tessera/internal/types"
	"github.com/tessera-social/tessera/notifications/errors"
	"github.com/tessera-social/tessera/notifications/models"
	"github.com/tessera-social/tessera/notifications/repository"
	"github.com/tessera-social/tessera/shared/interfaces"
)

// notificationService implements the NotificationService interface
type notificationService struct {
	notifRepo repository.NotificationRepository
	txManager interfaces.TxManager
}

// NewNotificationService creates a new instance of the notification service
func NewNotificationService(notifRepo repository.NotificationRepository, txManager interfaces.TxManager) NotificationService {
	return &notificationService{notifRepo: notifRepo, txManager: txManager}
}

func (s *notificationService) List(ctx context.Context, query *ListQuery, user *types.UserContext) ([]models.NotificationView, types.PageMeta, error) {
	if user == nil || user.UserID <= 0 {
		return nil, types.PageMeta{}, errors.ErrInvalidUserContext
	}

	filter := repository.ListFilter{Page: query.PageQuery}
	filter.Page.Normalize()
	if query.Read != query.Unread {
		read := query.Read
		filter.Read = &read
	}

	notifications, total, err := s.notifRepo.ListForRecipient(ctx, user.UserID, filter)
	if err != nil {
		return nil, types.PageMeta{}, fmt.Errorf("notification list: %w", err)
	}

	views := make([]models.NotificationView, 0, len(notifications))
	for i := range notifications {
		views = append(views, notifications[i].View())
	}
	return views, types.NewPageMeta(filter.Page, total), nil
}

func (s *notificationService) MarkRead(ctx context.Context, id int64, user *types.UserContext) error {
	if user == nil || user.UserID <= 0 {
		return errors.ErrInvalidUserContext
	}

	return s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		changed, err := s.notifRepo.MarkRead(txCtx, user.UserID, id)
		if err != nil {
			return fmt.Errorf("mark read: %w", err)
		}
		if changed {
			events.Emit(txCtx, events.Event{
				Action:          events.ActionNotificationRead,
				ActorID:         user.UserID,
				RecipientID:     user.UserID,
				NotificationIDs: []int64{id},
			})
			return nil
		}

		// Nothing changed: either the row is already read (fine, the call
		// is idempotent) or it is not this user's to mark.
		notification, err := s.notifRepo.FindByID(txCtx, id)
		if stderrors.Is(err, repository.ErrNotFound) {
			return errors.ErrNotificationNotFound
		}
		if err != nil {
			return fmt.Errorf("mark read verify: %w", err)
		}
		if notification.RecipientID != user.UserID {
			return errors.ErrNotificationNotFound
		}
		return nil
	})
}

func (s *notificationService) MarkAllRead(ctx context.Context, user *types.UserContext) (int64, error) {
	if user == nil || user.UserID <= 0 {
		return 0, errors.ErrInvalidUserContext
	}

	var changed int64
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		ids, err := s.notifRepo.MarkAllRead(txCtx, user.UserID)
		if err != nil {
			return fmt.Errorf("mark all read: %w", err)
		}
		changed = int64(len(ids))
		if len(ids) > 0 {
			events.Emit(txCtx, events.Event{
				Action:          events.ActionNotificationAllRead,
				ActorID:         user.UserID,
				RecipientID:     user.UserID,
				NotificationIDs: ids,
			})
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return changed, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, user *types.UserContext) (int64, error) {
	if user == nil || user.UserID <= 0 {
		return 0, errors.ErrInvalidUserContext
	}
	count, err := s.notifRepo.UnreadCount(ctx, user.UserID)
	if err != nil {
		return 0, fmt.Errorf("unread count: %w", err)
	}
	return count, nil
}
