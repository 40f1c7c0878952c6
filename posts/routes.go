package posts

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tessera-social/tessera/posts/handlers"
)

// RegisterRoutes is the single entry point for setting up posts routes.
// Reads allow anonymous access (optional auth decorates the view);
// mutations require a valid session.
func RegisterRoutes(router fiber.Router, handler *handlers.PostHandler, requireAuth, optionalAuth fiber.Handler) {
	group := router.Group("/posts")

	group.Get("/", optionalAuth, handler.ListPosts)
	group.Post("/", requireAuth, handler.CreatePost)
	group.Get("/:id", optionalAuth, handler.GetPost)
	group.Put("/:id", requireAuth, handler.UpdatePost)
	group.Delete("/:id", requireAuth, handler.DeletePost)
}
