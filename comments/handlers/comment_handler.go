package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/tessera-social/tessera/comments/errors"
	"github.com/tessera-social/tessera/comments/models"
	"github.com/tessera-social/tessera/comments/services"
	"github.com/tessera-social/tessera/comments/validation"
	"github.com/tessera-social/tessera/internal/types"
)

// CommentHandler handles all comment-related HTTP requests
type CommentHandler struct {
	commentService services.CommentService
}

// NewCommentHandler creates a new CommentHandler with injected dependencies
func NewCommentHandler(commentService services.CommentService) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

// CreatePostComment handles POST /posts/:id/comments
func (h *CommentHandler) CreatePostComment(c *fiber.Ctx) error {
	return h.create(c, models.CommentableTypePost)
}

// CreateReply handles POST /comments/:id/comments
func (h *CommentHandler) CreateReply(c *fiber.Ctx) error {
	return h.create(c, models.CommentableTypeComment)
}

func (h *CommentHandler) create(c *fiber.Ctx, parentType string) error {
	parentID, err := parseID(c, "id")
	if err != nil {
		return errors.HandleServiceError(c, errors.ErrCommentableNotFound)
	}

	var req models.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.HandleInvalidRequestError(c, "invalid request body")
	}
	if err := validation.ValidateCreateCommentRequest(&req); err != nil {
		return errors.HandleServiceError(c, err)
	}

	user, ok := c.Locals(types.UserCtxName).(types.UserContext)
	if !ok {
		return errors.HandleServiceError(c, errors.ErrInvalidUserContext)
	}

	view, err := h.commentService.CreateComment(c.Context(), parentType, parentID, &req, &user)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"comment": view})
}

// ListPostComments handles GET /posts/:id/comments
func (h *CommentHandler) ListPostComments(c *fiber.Ctx) error {
	return h.list(c, models.CommentableTypePost)
}

// ListReplies handles GET /comments/:id/comments
func (h *CommentHandler) ListReplies(c *fiber.Ctx) error {
	return h.list(c, models.CommentableTypeComment)
}

func (h *CommentHandler) list(c *fiber.Ctx, parentType string) error {
	parentID, err := parseID(c, "id")
	if err != nil {
		return errors.HandleServiceError(c, errors.ErrCommentableNotFound)
	}

	var page types.PageQuery
	if err := c.QueryParser(&page); err != nil {
		return errors.HandleInvalidRequestError(c, "invalid query parameters")
	}

	views, meta, err := h.commentService.ListComments(c.Context(), parentType, parentID, page, viewerContext(c))
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(fiber.Map{"comments": views, "meta": meta})
}

// UpdateComment handles PUT /comments/:id
func (h *CommentHandler) UpdateComment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return errors.HandleServiceError(c, errors.ErrCommentNotFound)
	}

	var req models.UpdateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.HandleInvalidRequestError(c, "invalid request body")
	}
	if err := validation.ValidateUpdateCommentRequest(&req); err != nil {
		return errors.HandleServiceError(c, err)
	}

	user, ok := c.Locals(types.UserCtxName).(types.UserContext)
	if !ok {
		return errors.HandleServiceError(c, errors.ErrInvalidUserContext)
	}

	view, err := h.commentService.UpdateComment(c.Context(), id, &req, &user)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(fiber.Map{"comment": view})
}

// DeleteComment handles DELETE /comments/:id
func (h *CommentHandler) DeleteComment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return errors.HandleServiceError(c, errors.ErrCommentNotFound)
	}

	user, ok := c.Locals(types.UserCtxName).(types.UserContext)
	if !ok {
		return errors.HandleServiceError(c, errors.ErrInvalidUserContext)
	}

	if err := h.commentService.DeleteComment(c.Context(), id, &user); err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(fiber.Map{"deleted": id})
}

func parseID(c *fiber.Ctx, name string) (int64, error) {
	return strconv.ParseInt(c.Params(name), 10, 64)
}

// viewerContext returns the authenticated viewer or nil for anonymous
// requests behind the optional auth middleware.
func viewerContext(c *fiber.Ctx) *types.UserContext {
	if user, ok := c.Locals(types.UserCtxName).(types.UserContext); ok {
		return &user
	}
	return nil
}
