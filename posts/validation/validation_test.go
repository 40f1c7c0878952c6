package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-social/tessera/posts/errors"
	"github.com/tessera-social/tessera/posts/models"
)

func validCreateRequest() *models.CreatePostRequest {
	return &models.CreatePostRequest{
		Title:       "A reasonable title",
		Description: "A description long enough to pass validation.",
		Tags:        []string{"go", "fiber"},
	}
}

func TestValidateCreatePostRequest(t *testing.T) {
	t.Run("valid request passes", func(t *testing.T) {
		assert.NoError(t, ValidateCreatePostRequest(validCreateRequest()))
	})

	t.Run("nil request", func(t *testing.T) {
		assert.Error(t, ValidateCreatePostRequest(nil))
	})

	t.Run("short title", func(t *testing.T) {
		req := validCreateRequest()
		req.Title = "ab"
		err := ValidateCreatePostRequest(req)
		require.Error(t, err)
		var verr *errors.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Messages[0], "title")
	})

	t.Run("whitespace title rejected", func(t *testing.T) {
		req := validCreateRequest()
		req.Title = "   "
		assert.Error(t, ValidateCreatePostRequest(req))
	})

	t.Run("overlong title", func(t *testing.T) {
		req := validCreateRequest()
		req.Title = strings.Repeat("x", 121)
		assert.Error(t, ValidateCreatePostRequest(req))
	})

	t.Run("short description", func(t *testing.T) {
		req := validCreateRequest()
		req.Description = "too short"
		assert.Error(t, ValidateCreatePostRequest(req))
	})

	t.Run("too many tags", func(t *testing.T) {
		req := validCreateRequest()
		req.Tags = make([]string, 11)
		for i := range req.Tags {
			req.Tags[i] = "tag"
		}
		assert.Error(t, ValidateCreatePostRequest(req))
	})

	t.Run("empty tag", func(t *testing.T) {
		req := validCreateRequest()
		req.Tags = []string{"ok", " "}
		assert.Error(t, ValidateCreatePostRequest(req))
	})

	t.Run("multiple problems collect messages", func(t *testing.T) {
		err := ValidateCreatePostRequest(&models.CreatePostRequest{Title: "x", Description: "y"})
		var verr *errors.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Len(t, verr.Messages, 2)
	})
}

func TestValidateUpdatePostRequest(t *testing.T) {
	assert.NoError(t, ValidateUpdatePostRequest(&models.UpdatePostRequest{
		Title:       "Edited title",
		Description: "Edited description with enough length.",
	}))
	assert.Error(t, ValidateUpdatePostRequest(nil))
	assert.Error(t, ValidateUpdatePostRequest(&models.UpdatePostRequest{Title: "x", Description: "y"}))
}
