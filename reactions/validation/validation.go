package validation

import (
	"github.com/tessera-social/tessera/reactions/errors"
	"github.com/tessera-social/tessera/reactions/models"
)

// ValidateToggleRequest validates the toggle reaction request
func ValidateToggleRequest(req *models.ToggleRequest) error {
	if req == nil {
		return errors.NewValidationError("request is required")
	}
	if !models.IsValidKind(req.Kind) {
		return errors.NewValidationError("kind must be one of like, love, dislike")
	}
	return nil
}
