package validation

import (
	"net/mail"
	"regexp"
	"strings"

	"github.com/nbutton23/zxcvbn-go"

	"github.com/tessera-social/tessera/auth/errors"
	"github.com/tessera-social/tessera/auth/models"
)

const (
	nameMinLength     = 1
	nameMaxLength     = 80
	passwordMinLength = 8
	passwordMinScore  = 2
)

// namePattern is the mention-handle charset; keeping names inside it means
// every registered name is mentionable.
var namePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// ValidateRegisterRequest validates the registration request
func ValidateRegisterRequest(req *models.RegisterRequest) error {
	if req == nil {
		return errors.NewValidationError("request is required")
	}

	var messages []string
	name := strings.TrimSpace(req.Name)
	if len(name) < nameMinLength || len(name) > nameMaxLength {
		messages = append(messages, "name must be between 1 and 80 characters")
	} else if !namePattern.MatchString(name) {
		messages = append(messages, "name may only contain letters, digits, dots, dashes and underscores")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		messages = append(messages, "email must be a valid address")
	}
	messages = append(messages, passwordMessages(req.Password, name, req.Email)...)

	if len(messages) > 0 {
		return errors.NewValidationError(messages...)
	}
	return nil
}

// ValidateResetPasswordRequest validates the reset password request
func ValidateResetPasswordRequest(req *models.ResetPasswordRequest) error {
	if req == nil {
		return errors.NewValidationError("request is required")
	}

	var messages []string
	if strings.TrimSpace(req.Token) == "" {
		messages = append(messages, "token is required")
	}
	messages = append(messages, passwordMessages(req.Password)...)

	if len(messages) > 0 {
		return errors.NewValidationError(messages...)
	}
	return nil
}

// passwordMessages scores the password with zxcvbn; user inputs (name,
// email) count against it so "myname123" never passes.
func passwordMessages(password string, userInputs ...string) []string {
	var messages []string
	if len(password) < passwordMinLength {
		messages = append(messages, "password must be at least 8 characters")
		return messages
	}
	strength := zxcvbn.PasswordStrength(password, userInputs)
	if strength.Score < passwordMinScore {
		messages = append(messages, "password is too weak")
	}
	return messages
}
