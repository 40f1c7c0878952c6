package models

import (
	usermodels "github.com/tessera-social/tessera/users/models"
)

// RegisterRequest is the body for creating an account.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the body for password login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest is the body for rotating a credential pair.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ForgotPasswordRequest is the body for requesting a reset link.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest is the body for consuming a reset token.
type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// TokenResponse carries a fresh credential pair plus the owner view.
type TokenResponse struct {
	AccessToken  string            `json:"access_token"`
	RefreshToken string            `json:"refresh_token"`
	TokenType    string            `json:"token_type"`
	ExpiresIn    int64             `json:"expires_in"`
	User         usermodels.MeView `json:"user"`
}

// RegisterResponse reports the created (unconfirmed) account.
// EmailDeliveryFailed flags that the confirmation mail could not be sent;
// the account still exists and the mail can be retried out of band.
type RegisterResponse struct {
	User                usermodels.MeView `json:"user"`
	EmailDeliveryFailed bool              `json:"email_delivery_failed,omitempty"`
}
