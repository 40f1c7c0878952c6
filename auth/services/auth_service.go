// Copyright (c) 2025 Tessera Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/tessera-social/tessera/auth/errors"
	"github.com/tessera-social/tessera/auth/models"
	"github.com/tessera-social/tessera/internal/auth/tokens"
	"github.com/tessera-social/tessera/internal/pkg/log"
	"github.com/tessera-social/tessera/internal/platform/email"
	"github.com/tessera-social/tessera/internal/types"
	"github.com/tessera-social/tessera/shared/interfaces"
	usermodels "github.com/tessera-social/tessera/users/models"
	"github.com/tessera-social/tessera/users/repository"
)

// authService implements the AuthService interface
type authService struct {
	userRepo      repository.UserRepository
	tokens        *tokens.Service
	mailer        *email.Mailer
	txManager     interfaces.TxManager
	resetTokenTTL time.Duration
}

// NewAuthService creates a new instance of the auth service
func NewAuthService(
	userRepo repository.UserRepository,
	tokenService *tokens.Service,
	mailer *email.Mailer,
	txManager interfaces.TxManager,
	resetTokenTTL time.Duration,
) AuthService {
	return &authService{
		userRepo:      userRepo,
		tokens:        tokenService,
		mailer:        mailer,
		txManager:     txManager,
		resetTokenTTL: resetTokenTTL,
	}
}

func (s *authService) Register(ctx context.Context, req *models.RegisterRequest) (*models.RegisterResponse, error) {
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	confirmationToken, err := tokens.NewOpaqueToken()
	if err != nil {
		return nil, err
	}

	user := &usermodels.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(passwordHash),
	}
	user.ConfirmationToken.String = tokens.Hash(confirmationToken)
	user.ConfirmationToken.Valid = true

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.userRepo.Create(txCtx, user)
	})
	if err != nil {
		if stderrors.Is(err, repository.ErrDuplicate) {
			return nil, errors.NewValidationError("name or email is already taken")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	response := &models.RegisterResponse{User: user.Me()}
	if err := s.mailer.SendConfirmation(ctx, user.Email, user.Name, confirmationToken); err != nil {
		log.Error("confirmation mail for user %d failed: %v", user.ID, err)
		response.EmailDeliveryFailed = true
	}
	return response, nil
}

func (s *authService) Confirm(ctx context.Context, token string) (*models.TokenResponse, error) {
	user, err := s.userRepo.FindByConfirmationToken(ctx, tokens.Hash(token))
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.ErrTokenNotFound
		}
		return nil, fmt.Errorf("confirmation lookup: %w", err)
	}

	if err := s.userRepo.Confirm(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("failed to confirm user: %w", err)
	}
	user.Confirmed = true

	return s.issuePair(ctx, user)
}

func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (*models.TokenResponse, error) {
	user, err := s.userRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.ErrUnauthenticated
		}
		return nil, fmt.Errorf("login lookup: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, errors.ErrUnauthenticated
	}
	if !user.Confirmed {
		return nil, errors.ErrUnauthenticated
	}

	return s.issuePair(ctx, user)
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*models.TokenResponse, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, errors.ErrUnauthenticated
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.ErrUnauthenticated
		}
		return nil, fmt.Errorf("refresh lookup: %w", err)
	}

	// Rotation: only the hash of the most recently issued refresh token is
	// stored, so a replayed earlier token fails here even though its
	// signature still verifies.
	if !user.RefreshToken.Valid || !tokens.MatchOpaqueToken(refreshToken, user.RefreshToken.String) {
		return nil, errors.ErrUnauthenticated
	}

	return s.issuePair(ctx, user)
}

func (s *authService) ForgotPassword(ctx context.Context, reqEmail string) error {
	user, err := s.userRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(reqEmail)))
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return errors.ErrEmailNotFound
		}
		return fmt.Errorf("forgot password lookup: %w", err)
	}

	resetToken, err := tokens.NewOpaqueToken()
	if err != nil {
		return err
	}
	if err := s.userRepo.SetResetToken(ctx, user.ID, tokens.Hash(resetToken), time.Now()); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	if err := s.mailer.SendPasswordReset(ctx, user.Email, user.Name, resetToken); err != nil {
		return fmt.Errorf("reset mail failed: %w", err)
	}
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, req *models.ResetPasswordRequest) (*models.TokenResponse, error) {
	user, err := s.userRepo.FindByResetToken(ctx, tokens.Hash(req.Token))
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.ErrUnauthenticated
		}
		return nil, fmt.Errorf("reset lookup: %w", err)
	}

	if !user.ResetTokenSentAt.Valid || time.Since(user.ResetTokenSentAt.Time) > s.resetTokenTTL {
		return nil, errors.ErrUnauthenticated
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, user.ID, string(passwordHash)); err != nil {
		return nil, fmt.Errorf("failed to update password: %w", err)
	}

	return s.issuePair(ctx, user)
}

func (s *authService) Me(ctx context.Context, userCtx *types.UserContext) (*usermodels.MeView, error) {
	if userCtx == nil || userCtx.UserID <= 0 {
		return nil, errors.ErrInvalidUserContext
	}
	user, err := s.userRepo.FindByID(ctx, userCtx.UserID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.ErrUnauthenticated
		}
		return nil, fmt.Errorf("me lookup: %w", err)
	}
	me := user.Me()
	return &me, nil
}

// issuePair signs a fresh pair and stores the new refresh hash, which
// invalidates whatever refresh token was live before.
func (s *authService) issuePair(ctx context.Context, user *usermodels.User) (*models.TokenResponse, error) {
	pair, err := s.tokens.NewPair(user.ID, user.Name)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.SetRefreshToken(ctx, user.ID, tokens.Hash(pair.RefreshToken), time.Now()); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}
	return &models.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    pair.ExpiresIn,
		User:         user.Me(),
	}, nil
}
