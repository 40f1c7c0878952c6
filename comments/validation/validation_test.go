package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tessera-social/tessera/comments/models"
)

func TestValidateCreateCommentRequest(t *testing.T) {
	assert.NoError(t, ValidateCreateCommentRequest(&models.CreateCommentRequest{Description: "nice post"}))
	assert.Error(t, ValidateCreateCommentRequest(nil))
	assert.Error(t, ValidateCreateCommentRequest(&models.CreateCommentRequest{Description: "   "}))
	assert.Error(t, ValidateCreateCommentRequest(&models.CreateCommentRequest{
		Description: strings.Repeat("x", 10001),
	}))
}

func TestValidateUpdateCommentRequest(t *testing.T) {
	assert.NoError(t, ValidateUpdateCommentRequest(&models.UpdateCommentRequest{Description: "edited"}))
	assert.Error(t, ValidateUpdateCommentRequest(nil))
	assert.Error(t, ValidateUpdateCommentRequest(&models.UpdateCommentRequest{Description: ""}))
}
