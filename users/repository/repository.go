// Copyright (c) 2025 Tessera Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package repository

import (
	"context"
	"time"

	"github.com/tessera-social/tessera/users/models"
)

// UserRepository defines persistence for user rows. Auth flows, author
// joins and mention resolution all go through it.
type UserRepository interface {
	// Create inserts an unconfirmed user and fills ID/CreatedAt/UpdatedAt.
	Create(ctx context.Context, user *models.User) error

	FindByID(ctx context.Context, id int64) (*models.User, error)
	// FindByEmail matches the stored (lowercased) email.
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	// FindByName matches case-insensitively against the display name.
	FindByName(ctx context.Context, name string) (*models.User, error)
	FindByConfirmationToken(ctx context.Context, tokenHash string) (*models.User, error)
	FindByResetToken(ctx context.Context, tokenHash string) (*models.User, error)

	// FindByHandles resolves mention handles: each handle matches either a
	// display name or an email, case-insensitively. Unresolved handles are
	// simply absent from the result.
	FindByHandles(ctx context.Context, handles []string) ([]models.User, error)

	// Confirm flips confirmed and clears the confirmation token.
	Confirm(ctx context.Context, id int64) error
	// SetRefreshToken stores the hash of the live refresh credential;
	// an empty hash clears it.
	SetRefreshToken(ctx context.Context, id int64, tokenHash string, sentAt time.Time) error
	// SetResetToken stores the hash of an outstanding reset token.
	SetResetToken(ctx context.Context, id int64, tokenHash string, sentAt time.Time) error
	// UpdatePassword replaces the password hash and consumes any reset token.
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error

	// IncrementPostsCount adjusts the derived posts_count atomically.
	IncrementPostsCount(ctx context.Context, id int64, delta int) error
}
