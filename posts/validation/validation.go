package validation

import (
	"strings"

	"github.com/tessera-social/tessera/posts/errors"
	"github.com/tessera-social/tessera/posts/models"
)

const (
	titleMinLength       = 3
	titleMaxLength       = 120
	descriptionMinLength = 10
	maxTags              = 10
	tagMaxLength         = 50
)

// ValidateCreatePostRequest validates the create post request
func ValidateCreatePostRequest(req *models.CreatePostRequest) error {
	if req == nil {
		return errors.NewValidationError("request is required")
	}
	return validateContent(req.Title, req.Description, req.Tags)
}

// ValidateUpdatePostRequest validates the update post request
func ValidateUpdatePostRequest(req *models.UpdatePostRequest) error {
	if req == nil {
		return errors.NewValidationError("request is required")
	}
	return validateContent(req.Title, req.Description, req.Tags)
}

func validateContent(title, description string, tags []string) error {
	var messages []string

	title = strings.TrimSpace(title)
	if len(title) < titleMinLength {
		messages = append(messages, "title must be at least 3 characters")
	}
	if len(title) > titleMaxLength {
		messages = append(messages, "title must be at most 120 characters")
	}

	if len(strings.TrimSpace(description)) < descriptionMinLength {
		messages = append(messages, "description must be at least 10 characters")
	}

	if len(tags) > maxTags {
		messages = append(messages, "a post can carry at most 10 tags")
	}
	for _, tag := range tags {
		if len(strings.TrimSpace(tag)) == 0 {
			messages = append(messages, "tags must not be empty")
			break
		}
		if len(tag) > tagMaxLength {
			messages = append(messages, "tags must be at most 50 characters")
			break
		}
	}

	if len(messages) > 0 {
		return errors.NewValidationError(messages...)
	}
	return nil
}
