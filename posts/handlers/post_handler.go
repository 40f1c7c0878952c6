package handlers

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/schema"

	"github.com/tessera-social/tessera/internal/types"
	"github.com/tessera-social/tessera/posts/errors"
	"github.com/tessera-social/tessera/posts/models"
	"github.com/tessera-social/tessera/posts/services"
	"github.com/tessera-social/tessera/posts/validation"
)

// queryDecoder handles the bracketed tag_ids[] keys the platform clients
// send; fiber's own QueryParser does not know that convention.
var queryDecoder = func() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}()

// PostHandler handles all post-related HTTP requests
type PostHandler struct {
	postService services.PostService
}

// NewPostHandler creates a new PostHandler with injected dependencies
func NewPostHandler(postService services.PostService) *PostHandler {
	return &PostHandler{postService: postService}
}

// CreatePost handles POST /posts
func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	var req models.CreatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.HandleInvalidRequestError(c, "invalid request body")
	}

	if err := validation.ValidateCreatePostRequest(&req); err != nil {
		return errors.HandleServiceError(c, err)
	}

	user, ok := c.Locals(types.UserCtxName).(types.UserContext)
	if !ok {
		return errors.HandleServiceError(c, errors.ErrInvalidUserContext)
	}

	view, err := h.postService.CreatePost(c.Context(), &req, &user)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"post": view})
}

// GetPost handles GET /posts/:id
func (h *PostHandler) GetPost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return errors.HandleServiceError(c, errors.ErrPostNotFound)
	}

	view, err := h.postService.GetPost(c.Context(), id, viewerContext(c))
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(fiber.Map{"post": view})
}

// ListPosts handles GET /posts
func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	var query models.ListPostsQuery
	values, err := parseQueryValues(c)
	if err != nil {
		return errors.HandleInvalidRequestError(c, "invalid query string")
	}
	if err := queryDecoder.Decode(&query, values); err != nil {
		return errors.HandleInvalidRequestError(c, "invalid query parameters")
	}

	views, meta, err := h.postService.ListPosts(c.Context(), &query, viewerContext(c))
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(fiber.Map{"posts": views, "meta": meta})
}

// UpdatePost handles PUT /posts/:id
func (h *PostHandler) UpdatePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return errors.HandleServiceError(c, errors.ErrPostNotFound)
	}

	var req models.UpdatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.HandleInvalidRequestError(c, "invalid request body")
	}
	if err := validation.ValidateUpdatePostRequest(&req); err != nil {
		return errors.HandleServiceError(c, err)
	}

	user, ok := c.Locals(types.UserCtxName).(types.UserContext)
	if !ok {
		return errors.HandleServiceError(c, errors.ErrInvalidUserContext)
	}

	view, err := h.postService.UpdatePost(c.Context(), id, &req, &user)
	if err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(fiber.Map{"post": view})
}

// DeletePost handles DELETE /posts/:id
func (h *PostHandler) DeletePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return errors.HandleServiceError(c, errors.ErrPostNotFound)
	}

	user, ok := c.Locals(types.UserCtxName).(types.UserContext)
	if !ok {
		return errors.HandleServiceError(c, errors.ErrInvalidUserContext)
	}

	if err := h.postService.DeletePost(c.Context(), id, &user); err != nil {
		return errors.HandleServiceError(c, err)
	}
	return c.JSON(fiber.Map{"deleted": id})
}

func parseQueryValues(c *fiber.Ctx) (url.Values, error) {
	return url.ParseQuery(string(c.Request().URI().QueryString()))
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
