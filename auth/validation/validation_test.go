package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-social/tessera/auth/errors"
	"github.com/tessera-social/tessera/auth/models"
)

func validRegisterRequest() *models.RegisterRequest {
	return &models.RegisterRequest{
		Name:     "alice",
		Email:    "alice@example.com",
		Password: "correct-horse-battery",
	}
}

func TestValidateRegisterRequest(t *testing.T) {
	t.Run("valid request passes", func(t *testing.T) {
		assert.NoError(t, ValidateRegisterRequest(validRegisterRequest()))
	})

	t.Run("nil request", func(t *testing.T) {
		assert.Error(t, ValidateRegisterRequest(nil))
	})

	t.Run("single-character name is valid", func(t *testing.T) {
		req := validRegisterRequest()
		req.Name = "a"
		assert.NoError(t, ValidateRegisterRequest(req))
	})

	t.Run("empty name", func(t *testing.T) {
		req := validRegisterRequest()
		req.Name = "   "
		assert.Error(t, ValidateRegisterRequest(req))
	})

	t.Run("name length boundary", func(t *testing.T) {
		req := validRegisterRequest()
		req.Name = strings.Repeat("x", 80)
		assert.NoError(t, ValidateRegisterRequest(req))

		req.Name = strings.Repeat("x", 81)
		assert.Error(t, ValidateRegisterRequest(req))
	})

	t.Run("name outside handle charset", func(t *testing.T) {
		req := validRegisterRequest()
		req.Name = "alice smith"
		assert.Error(t, ValidateRegisterRequest(req))
	})

	t.Run("bad email", func(t *testing.T) {
		req := validRegisterRequest()
		req.Email = "not-an-address"
		assert.Error(t, ValidateRegisterRequest(req))
	})

	t.Run("short password", func(t *testing.T) {
		req := validRegisterRequest()
		req.Password = "short"
		assert.Error(t, ValidateRegisterRequest(req))
	})

	t.Run("weak password", func(t *testing.T) {
		req := validRegisterRequest()
		req.Password = "password"
		assert.Error(t, ValidateRegisterRequest(req))
	})

	t.Run("password built from own name is weak", func(t *testing.T) {
		req := validRegisterRequest()
		req.Password = "alice1234"
		assert.Error(t, ValidateRegisterRequest(req))
	})

	t.Run("all problems reported together", func(t *testing.T) {
		err := ValidateRegisterRequest(&models.RegisterRequest{Name: "", Email: "bad", Password: "x"})
		var verr *errors.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Len(t, verr.Messages, 3)
	})
}

func TestValidateResetPasswordRequest(t *testing.T) {
	assert.NoError(t, ValidateResetPasswordRequest(&models.ResetPasswordRequest{
		Token:    "some-token",
		Password: "correct-horse-battery",
	}))
	assert.Error(t, ValidateResetPasswordRequest(nil))
	assert.Error(t, ValidateResetPasswordRequest(&models.ResetPasswordRequest{Password: "correct-horse-battery"}))
	assert.Error(t, ValidateResetPasswordRequest(&models.ResetPasswordRequest{Token: "t", Password: "weak"}))
}
