package models

import (
	"database/sql"
	"time"
)

// User is the durable account row. Name is unique case-insensitively and
// Email is stored lowercased. RefreshToken holds the SHA-256 hex of the
// live refresh credential so rotation can invalidate the prior one.
type User struct {
	ID                 int64          `db:"id" json:"id"`
	Name               string         `db:"name" json:"name"`
	Email              string         `db:"email" json:"email"`
	PasswordHash       string         `db:"password_hash" json:"-"`
	Bio                string         `db:"bio" json:"bio"`
	Confirmed          bool           `db:"confirmed" json:"confirmed"`
	ConfirmationToken  sql.NullString `db:"confirmation_token" json:"-"`
	ResetToken         sql.NullString `db:"reset_token" json:"-"`
	ResetTokenSentAt   sql.NullTime   `db:"reset_token_sent_at" json:"-"`
	RefreshToken       sql.NullString `db:"refresh_token" json:"-"`
	RefreshTokenSentAt sql.NullTime   `db:"refresh_token_sent_at" json:"-"`
	PostsCount         int            `db:"posts_count" json:"posts_count"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`
}

// AuthorView is the embedded author/actor reference carried inside post,
// comment and notification views.
type AuthorView struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// UserView is the public projection of a user.
type UserView struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Bio        string    `json:"bio"`
	PostsCount int       `json:"posts_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// MeView is the owner-facing projection returned by /auth/me and the auth
// flows. It is never broadcast.
type MeView struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Bio        string    `json:"bio"`
	Confirmed  bool      `json:"confirmed"`
	PostsCount int       `json:"posts_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// View returns the public projection.
func (u *User) View() UserView {
	return UserView{
		ID:         u.ID,
		Name:       u.Name,
		Bio:        u.Bio,
		PostsCount: u.PostsCount,
		CreatedAt:  u.CreatedAt,
	}
}

// Me returns the owner-facing projection.
func (u *User) Me() MeView {
	return MeView{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Bio:        u.Bio,
		Confirmed:  u.Confirmed,
		PostsCount: u.PostsCount,
		CreatedAt:  u.CreatedAt,
	}
}

// Author returns the embeddable author reference.
func (u *User) Author() AuthorView {
	return AuthorView{ID: u.ID, Name: u.Name}
}
