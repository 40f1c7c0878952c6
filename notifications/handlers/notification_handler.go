package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/tessera-social/tessera/internal/types"
	"github.com/tessera-social/tessera/notifications/errors"
	"github.com/tessera-social/tessera/notifications/services"
)

// NotificationHandler handles all notification-related HTTP requests
type NotificationHandler struct {
	notificationService services.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler with injected dependencies
func NewNotificationHandler(notificationService services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// List handles GET /notifications
func (h *NotificationHandler) List(c *fiber.Ctx) error {
	var query services.ListQuery
	if err := c.QueryParser(&query); err != nil {
		return errors.HandleInvalidRequestError(c, "invalid query parameters")
	}

	user, ok := c.Locals(types.UserCtxName).(types.UserContext)
	if !ok {
		return errors.HandleServiceError(c, errors.ErrInvalidUserContext)
	}

	views, meta, err := h.notificationService.List(c.Context(), &query, &user)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(fiber.Map{"notifications": views, "meta": meta})
}

// MarkRead handles PATCH /notifications/:id/read
func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return errors.HandleServiceError(c, errors.ErrNotificationNotFound)
	}

	user, ok := c.Locals(types.UserCtxName).(types.UserContext)
	if !ok {
		return errors.HandleServiceError(c, errors.ErrInvalidUserContext)
	}

	if err := h.notificationService.MarkRead(c.Context(), id, &user); err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(fiber.Map{"id": id, "read": true})
}

// MarkAllRead handles PATCH /notifications/mark_all_read
func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	user, ok := c.Locals(types.UserCtxName).(types.UserContext)
	if !ok {
		return errors.HandleServiceError(c, errors.ErrInvalidUserContext)
	}

	changed, err := h.notificationService.MarkAllRead(c.Context(), &user)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(fiber.Map{"read_count": changed})
}

// UnreadCount handles GET /notifications/unread_count
func (h *NotificationHandler) UnreadCount(c *fiber.Ctx) error {
	user, ok := c.Locals(types.UserCtxName).(types.UserContext)
	if !ok {
		return errors.HandleServiceError(c, errors.ErrInvalidUserContext)
	}

	count, err := h.notificationService.UnreadCount(c.Context(), &user)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(fiber.Map{"count": count})
}
