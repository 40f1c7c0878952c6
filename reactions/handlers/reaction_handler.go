package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/tessera-social/tessera/internal/types"
	"github.com/tessera-social/tessera/reactions/errors"
	"github.com/tessera-social/tessera/reactions/models"
	"github.com/tessera-social/tessera/reactions/services"
	"github.com/tessera-social/tessera/reactions/validation"
)

// ReactionHandler handles all reaction-related HTTP requests
type ReactionHandler struct {
	reactionService services.ReactionService
}

// NewReactionHandler creates a new ReactionHandler with injected dependencies
func NewReactionHandler(reactionService services.ReactionService) *ReactionHandler {
	return &ReactionHandler{reactionService: reactionService}
}

// TogglePostReaction handles POST /posts/:id/reactions
func (h *ReactionHandler) TogglePostReaction(c *fiber.Ctx) error {
	return h.toggle(c, models.TargetTypePost)
}

// ToggleCommentReaction handles POST /comments/:id/reactions
func (h *ReactionHandler) ToggleCommentReaction(c *fiber.Ctx) error {
	return h.toggle(c, models.TargetTypeComment)
}

func (h *ReactionHandler) toggle(c *fiber.Ctx, targetType string) error {
	targetID, err := parseID(c, "id")
	if err != nil {
		return errors.HandleServiceError(c, errors.ErrTargetNotFound)
	}

	var req models.ToggleRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.HandleInvalidRequestError(c, "invalid request body")
	}
	if err := validation.ValidateToggleRequest(&req); err != nil {
		return errors.HandleServiceError(c, err)
	}

	user, ok := c.Locals(types.UserCtxName).(types.UserContext)
	if !ok {
		return errors.HandleServiceError(c, errors.ErrInvalidUserContext)
	}

	result, err := h.reactionService.Toggle(c.Context(), targetType, targetID, &req, &user)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(result)
}

// GetPostReactionCounts handles GET /posts/:id/reactions
func (h *ReactionHandler) GetPostReactionCounts(c *fiber.Ctx) error {
	return h.counts(c, models.TargetTypePost)
}

// GetCommentReactionCounts handles GET /comments/:id/reactions
func (h *ReactionHandler) GetCommentReactionCounts(c *fiber.Ctx) error {
	return h.counts(c, models.TargetTypeComment)
}

func (h *ReactionHandler) counts(c *fiber.Ctx, targetType string) error {
	targetID, err := parseID(c, "id")
	if err != nil {
		return errors.HandleServiceError(c, errors.ErrTargetNotFound)
	}

	counts, err := h.reactionService.Counts(c.Context(), targetType, targetID)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(fiber.Map{"counts": counts})
}

func parseID(c *fiber.Ctx, name string) (int64, error) {
	return strconv.ParseInt(c.Params(name), 10, 64)
}
