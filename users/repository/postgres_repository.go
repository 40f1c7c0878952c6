// Copyright (c) 2025 Tessera Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/tessera-social/tessera/internal/database/postgres"
	"github.com/tessera-social/tessera/users/models"
)

// ErrNotFound is returned when no user row matches the lookup.
var ErrNotFound = errors.New("user not found")

// ErrDuplicate is returned when an insert violates the unique name or
// email constraint.
var ErrDuplicate = errors.New("user already exists")

// postgresUserRepository implements UserRepository using raw SQL queries
type postgresUserRepository struct {
	client *postgres.Client
}

// NewPostgresUserRepository creates a new PostgreSQL repository for users
func NewPostgresUserRepository(client *postgres.Client) UserRepository {
	return &postgresUserRepository{client: client}
}

// getExecutor returns either the transaction from context or the DB connection
func (r *postgresUserRepository) getExecutor(ctx context.Context) sqlx.ExtContext {
	if txVal := ctx.Value("tx"); txVal != nil {
		if tx, ok := txVal.(*sqlx.Tx); ok {
			return tx
		}
	}
	return r.client.DB()
}

func (r *postgresUserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (name, email, password_hash, bio, confirmed, confirmation_token)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	row := r.getExecutor(ctx).QueryRowxContext(ctx, query,
		user.Name, strings.ToLower(user.Email), user.PasswordHash, user.Bio,
		user.Confirmed, user.ConfirmationToken)
	if err := row.Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *postgresUserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	return r.findOne(ctx, `SELECT * FROM users WHERE id = $1`, id)
}

func (r *postgresUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, `SELECT * FROM users WHERE email = $1`, strings.ToLower(email))
}

func (r *postgresUserRepository) FindByName(ctx context.Context, name string) (*models.User, error) {
	return r.findOne(ctx, `SELECT * FROM users WHERE LOWER(name) = LOWER($1)`, name)
}

func (r *postgresUserRepository) FindByConfirmationToken(ctx context.Context, tokenHash string) (*models.User, error) {
	return r.findOne(ctx, `SELECT * FROM users WHERE confirmation_token = $1`, tokenHash)
}

func (r *postgresUserRepository) FindByResetToken(ctx context.Context, tokenHash string) (*models.User, error) {
	return r.findOne(ctx, `SELECT * FROM users WHERE reset_token = $1`, tokenHash)
}

func (r *postgresUserRepository) findOne(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	var user models.User
	err := sqlx.GetContext(ctx, r.getExecutor(ctx), &user, query, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

func (r *postgresUserRepository) FindByHandles(ctx context.Context, handles []string) ([]models.User, error) {
	if len(handles) == 0 {
		return nil, nil
	}

	lowered := make([]string, len(handles))
	for i, h := range handles {
		lowered[i] = strings.ToLower(h)
	}

	query := `
		SELECT * FROM users
		WHERE LOWER(name) = ANY($1) OR email = ANY($1)
	`

	var users []models.User
	err := sqlx.SelectContext(ctx, r.getExecutor(ctx), &users, query, pq.Array(lowered))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve handles: %w", err)
	}
	return users, nil
}

func (r *postgresUserRepository) Confirm(ctx context.Context, id int64) error {
	query := `
		UPDATE users
		SET confirmed = TRUE, confirmation_token = NULL, updated_at = now()
		WHERE id = $1
	`
	return r.exec(ctx, query, id)
}

func (r *postgresUserRepository) SetRefreshToken(ctx context.Context, id int64, tokenHash string, sentAt time.Time) error {
	query := `
		UPDATE users
		SET refresh_token = NULLIF($2, ''), refresh_token_sent_at = $3, updated_at = now()
		WHERE id = $1
	`
	return r.exec(ctx, query, id, tokenHash, sentAt)
}

func (r *postgresUserRepository) SetResetToken(ctx context.Context, id int64, tokenHash string, sentAt time.Time) error {
	query := `
		UPDATE users
		SET reset_token = $2, reset_token_sent_at = $3, updated_at = now()
		WHERE id = $1
	`
	return r.exec(ctx, query, id, tokenHash, sentAt)
}

func (r *postgresUserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = $2, reset_token = NULL, reset_token_sent_at = NULL, updated_at = now()
		WHERE id = $1
	`
	return r.exec(ctx, query, id, passwordHash)
}

func (r *postgresUserRepository) IncrementPostsCount(ctx context.Context, id int64, delta int) error {
	query := `
		UPDATE users
		SET posts_count = posts_count + $2, updated_at = now()
		WHERE id = $1
	`
	return r.exec(ctx, query, id, delta)
}

func (r *postgresUserRepository) exec(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.getExecutor(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
