package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tessera-social/tessera/auth/handlers"
)

// RegisterRoutes is the single entry point for setting up auth routes.
func RegisterRoutes(router fiber.Router, handler *handlers.AuthHandler, requireAuth fiber.Handler) {
	group := router.Group("/auth")

	group.Post("/register", handler.Register)
	group.Get("/confirm/:token", handler.Confirm)
	group.Post("/login", handler.Login)
	group.Post("/refresh", handler.Refresh)
	group.Post("/forgot_password", handler.ForgotPassword)
	group.Post("/reset_password", handler.ResetPassword)
	group.Get("/me", requireAuth, handler.Me)
}
