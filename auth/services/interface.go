package services

import (
	"context"

	"github.com/tessera-social/tessera/auth/models"
	"github.com/tessera-social/tessera/internal/types"
	usermodels "github.com/tessera-social/tessera/users/models"
)

// AuthService defines the interface for account and session operations
type AuthService interface {
	// Register creates an unconfirmed account and mails the confirmation
	// link. A mail failure does not fail the registration; the response
	// flags it instead.
	Register(ctx context.Context, req *models.RegisterRequest) (*models.RegisterResponse, error)

	// Confirm consumes a confirmation token and returns a fresh pair.
	Confirm(ctx context.Context, token string) (*models.TokenResponse, error)

	// Login verifies the password of a confirmed account.
	Login(ctx context.Context, req *models.LoginRequest) (*models.TokenResponse, error)

	// Refresh rotates the credential pair. The presented refresh token must
	// be the live one; a replayed prior token fails.
	Refresh(ctx context.Context, refreshToken string) (*models.TokenResponse, error)

	// ForgotPassword issues a reset token and mails the reset link.
	ForgotPassword(ctx context.Context, email string) error

	// ResetPassword consumes a reset token, replaces the password and
	// returns a fresh pair.
	ResetPassword(ctx context.Context, req *models.ResetPasswordRequest) (*models.TokenResponse, error)

	// Me returns the owner view of the authenticated user.
	Me(ctx context.Context, user *types.UserContext) (*usermodels.MeView, error)
}
