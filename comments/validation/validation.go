package validation

import (
	"strings"

	"github.com/tessera-social/tessera/comments/errors"
	"github.com/tessera-social/tessera/comments/models"
)

const descriptionMaxLength = 10000

// ValidateCreateCommentRequest validates the create comment request
func ValidateCreateCommentRequest(req *models.CreateCommentRequest) error {
	if req == nil {
		return errors.NewValidationError("request is required")
	}
	return validateDescription(req.Description)
}

// ValidateUpdateCommentRequest validates the update comment request
func ValidateUpdateCommentRequest(req *models.UpdateCommentRequest) error {
	if req == nil {
		return errors.NewValidationError("request is required")
	}
	return validateDescription(req.Description)
}

func validateDescription(description string) error {
	if len(strings.TrimSpace(description)) == 0 {
		return errors.NewValidationError("description must not be empty")
	}
	if len(description) > descriptionMaxLength {
		return errors.NewValidationError("description must be at most 10000 characters")
	}
	return nil
}
