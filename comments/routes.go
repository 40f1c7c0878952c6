package comments

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tessera-social/tessera/comments/handlers"
)

// RegisterRoutes is the single entry point for setting up comment routes.
// Comments are nested under their commentable for create/list and addressed
// directly for edit/delete.
func RegisterRoutes(router fiber.Router, handler *handlers.CommentHandler, requireAuth, optionalAuth fiber.Handler) {
	posts := router.Group("/posts")
	posts.Get("/:id/comments", optionalAuth, handler.ListPostComments)
	posts.Post("/:id/comments", requireAuth, handler.CreatePostComment)

	group := router.Group("/comments")
	group.Get("/:id/comments", optionalAuth, handler.ListReplies)
	group.Post("/:id/comments", requireAuth, handler.CreateReply)
	group.Put("/:id", requireAuth, handler.UpdateComment)
	group.Delete("/:id", requireAuth, handler.DeleteComment)
}
