package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/tessera-social/tessera/auth/errors"
	"github.com/tessera-social/tessera/auth/models"
	"github.com/tessera-social/tessera/auth/services"
	"github.com/tessera-social/tessera/auth/validation"
	"github.com/tessera-social/tessera/internal/types"
)

// AuthHandler handles all auth-related HTTP requests
type AuthHandler struct {
	authService services.AuthService
}

// NewAuthHandler creates a new AuthHandler with injected dependencies
func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req models.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.HandleInvalidRequestError(c, "invalid request body")
	}
	if err := validation.ValidateRegisterRequest(&req); err != nil {
		return errors.HandleServiceError(c, err)
	}

	response, err := h.authService.Register(c.Context(), &req)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(response)
}

// Confirm handles GET /auth/confirm/:token
func (h *AuthHandler) Confirm(c *fiber.Ctx) error {
	response, err := h.authService.Confirm(c.Context(), c.Params("token"))
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(response)
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.HandleInvalidRequestError(c, "invalid request body")
	}

	response, err := h.authService.Login(c.Context(), &req)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(response)
}

// Refresh handles POST /auth/refresh
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req models.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.HandleInvalidRequestError(c, "invalid request body")
	}

	response, err := h.authService.Refresh(c.Context(), req.RefreshToken)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(response)
}

// ForgotPassword handles POST /auth/forgot_password
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req models.ForgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.HandleInvalidRequestError(c, "invalid request body")
	}

	if err := h.authService.ForgotPassword(c.Context(), req.Email); err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(fiber.Map{"sent": true})
}

// ResetPassword handles POST /auth/reset_password
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req models.ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.HandleInvalidRequestError(c, "invalid request body")
	}
	if err := validation.ValidateResetPasswordRequest(&req); err != nil {
		return errors.HandleServiceError(c, err)
	}

	response, err := h.authService.ResetPassword(c.Context(), &req)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(response)
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, ok := c.Locals(types.UserCtxName).(types.UserContext)
	if !ok {
		return errors.HandleServiceError(c, errors.ErrInvalidUserContext)
	}

	me, err := h.authService.Me(c.Context(), &user)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(fiber.Map{"user": me})
}
