package errors

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/tessera-social/tessera/internal/pkg/log"
)

// Comment service specific errors
var (
	ErrCommentNotFound          = errors.New("comment not found")
	ErrCommentableNotFound      = errors.New("commentable not found")
	ErrCommentOwnershipRequired = errors.New("comment ownership required")
	ErrInvalidUserContext       = errors.New("invalid user context")
)

// ValidationError carries the field messages surfaced as a 422.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

// NewValidationError creates a ValidationError from field messages.
func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{Messages: messages}
}

// HandleServiceError maps service errors to HTTP responses.
func HandleServiceError(c *fiber.Ctx, err error) error {
	if err == nil {
		return nil
	}

	var vErr *ValidationError
	switch {
	case errors.As(err, &vErr):
		return c.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{
			"errors": vErr.Messages,
		})
	case errors.Is(err, ErrCommentNotFound):
		return c.Status(http.StatusNotFound).JSON(fiber.Map{
			"error": ErrCommentNotFound.Error(),
		})
	case errors.Is(err, ErrCommentableNotFound):
		return c.Status(http.StatusNotFound).JSON(fiber.Map{
			"error": ErrCommentableNotFound.Error(),
		})
	case errors.Is(err, ErrCommentOwnershipRequired):
		return c.Status(http.StatusForbidden).JSON(fiber.Map{
			"error": ErrCommentOwnershipRequired.Error(),
		})
	case errors.Is(err, ErrInvalidUserContext):
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{
			"error": ErrInvalidUserContext.Error(),
		})
	default:
		log.Error("comment service error: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": "an unexpected error occurred",
		})
	}
}

// HandleInvalidRequestError handles unparseable request bodies with 400.
func HandleInvalidRequestError(c *fiber.Ctx, message string) error {
	return c.Status(http.StatusBadRequest).JSON(fiber.Map{
		"error": message,
	})
}
