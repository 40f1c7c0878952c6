package reactions

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tessera-social/tessera/reactions/handlers"
)

// RegisterRoutes is the single entry point for setting up reaction routes.
// Every reaction endpoint, count reads included, requires a session.
func RegisterRoutes(router fiber.Router, handler *handlers.ReactionHandler, requireAuth fiber.Handler) {
	posts := router.Group("/posts")
	posts.Post("/:id/reactions", requireAuth, handler.TogglePostReaction)
	posts.Get("/:id/reactions", requireAuth, handler.GetPostReactionCounts)

	comments := router.Group("/comments")
	comments.Post("/:id/reactions", requireAuth, handler.ToggleCommentReaction)
	comments.Get("/:id/reactions", requireAuth, handler.GetCommentReactionCounts)
}
