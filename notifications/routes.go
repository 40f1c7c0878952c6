package notifications

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tessera-social/tessera/notifications/handlers"
)

// RegisterRoutes is the single entry point for setting up notification
// routes. Everything here is recipient-scoped, so every route requires a
// session. The static mark_all_read path registers before the :id/read
// route so fiber never captures it as a parameter.
func RegisterRoutes(router fiber.Router, handler *handlers.NotificationHandler, requireAuth fiber.Handler) {
	group := router.Group("/notifications", requireAuth)

	group.Get("/", handler.List)
	group.Get("/unread_count", handler.UnreadCount)
	group.Patch("/mark_all_read", handler.MarkAllRead)
	group.Patch("/:id/read", handler.MarkRead)
}
