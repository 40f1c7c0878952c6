package services

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-social/tessera/auth/errors"
	"github.com/tessera-social/tessera/auth/models"
	"github.com/tessera-social/tessera/internal/auth/tokens"
	"github.com/tessera-social/tessera/internal/events"
	"github.com/tessera-social/tessera/internal/platform/config"
	"github.com/tessera-social/tessera/internal/platform/email"
	"github.com/tessera-social/tessera/internal/testutil"
	"github.com/tessera-social/tessera/internal/types"
	usermodels "github.com/tessera-social/tessera/users/models"
	"github.com/tessera-social/tessera/users/repository"
)

// fakeTxManager runs the function with an event buffer but no database.
type fakeTxManager struct {
	mu     sync.Mutex
	events []events.Event
}

func (m *fakeTxManager) WithTransaction(ctx context.Context, fn func(context.Context) error) error {
	buf := &events.Buffer{}
	err := fn(events.WithBuffer(ctx, buf))
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.events = append(m.events, buf.Drain()...)
	m.mu.Unlock()
	return nil
}

// fakeUserRepo is an in-memory UserRepository.
type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*usermodels.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]*usermodels.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *usermodels.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Name == user.Name || existing.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	r.nextID++
	user.ID = r.nextID
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id int64) (*usermodels.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.users[id]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, emailAddr string) (*usermodels.User, error) {
	return r.findBy(func(u *usermodels.User) bool { return u.Email == emailAddr })
}

func (r *fakeUserRepo) FindByName(_ context.Context, name string) (*usermodels.User, error) {
	return r.findBy(func(u *usermodels.User) bool { return u.Name == name })
}

func (r *fakeUserRepo) FindByConfirmationToken(_ context.Context, tokenHash string) (*usermodels.User, error) {
	return r.findBy(func(u *usermodels.User) bool {
		return u.ConfirmationToken.Valid && u.ConfirmationToken.String == tokenHash
	})
}

func (r *fakeUserRepo) FindByResetToken(_ context.Context, tokenHash string) (*usermodels.User, error) {
	return r.findBy(func(u *usermodels.User) bool {
		return u.ResetToken.Valid && u.ResetToken.String == tokenHash
	})
}

func (r *fakeUserRepo) FindByHandles(_ context.Context, handles []string) ([]usermodels.User, error) {
	return nil, nil
}

func (r *fakeUserRepo) findBy(match func(*usermodels.User) bool) (*usermodels.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if match(user) {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) Confirm(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.Confirmed = true
	user.ConfirmationToken.Valid = false
	user.ConfirmationToken.String = ""
	return nil
}

func (r *fakeUserRepo) SetRefreshToken(_ context.Context, id int64, tokenHash string, sentAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.RefreshToken.String = tokenHash
	user.RefreshToken.Valid = tokenHash != ""
	user.RefreshTokenSentAt.Time = sentAt
	user.RefreshTokenSentAt.Valid = true
	return nil
}

func (r *fakeUserRepo) SetResetToken(_ context.Context, id int64, tokenHash string, sentAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.ResetToken.String = tokenHash
	user.ResetToken.Valid = true
	user.ResetTokenSentAt.Time = sentAt
	user.ResetTokenSentAt.Valid = true
	return nil
}

func (r *fakeUserRepo) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.PasswordHash = passwordHash
	user.ResetToken.Valid = false
	user.ResetToken.String = ""
	return nil
}

func (r *fakeUserRepo) IncrementPostsCount(_ context.Context, id int64, delta int) error {
	return nil
}

type authFixture struct {
	service AuthService
	repo    *fakeUserRepo
	sender  *testutil.FakeEmailSender
}

func newAuthFixture(t *testing.T, resetTokenTTL time.Duration) *authFixture {
	t.Helper()
	tokenService, err := tokens.NewService(
		testutil.TestJWTPrivateKey, testutil.TestJWTPublicKey,
		15*time.Minute, 720*time.Hour)
	require.NoError(t, err)

	repo := newFakeUserRepo()
	sender := testutil.NewFakeEmailSender()
	mailer := email.NewMailer(sender, config.EmailConfig{FromEmail: "no-reply@tessera.social"}, "http://localhost:3000")
	return &authFixture{
		service: NewAuthService(repo, tokenService, mailer, &fakeTxManager{}, resetTokenTTL),
		repo:    repo,
		sender:  sender,
	}
}

var linkTokenPattern = regexp.MustCompile(`/(?:confirm|reset_password)/([A-Za-z0-9_=-]+)`)

// lastMailedToken pulls the opaque token out of the most recent email.
func lastMailedToken(t *testing.T, sender *testutil.FakeEmailSender) string {
	t.Helper()
	msg := sender.LastSent()
	require.NotNil(t, msg, "expected an email to have been sent")
	m := linkTokenPattern.FindStringSubmatch(msg.Body)
	require.NotNil(t, m, "no token link in email body")
	return m[1]
}

func registerRequest() *models.RegisterRequest {
	return &models.RegisterRequest{
		Name:     "alice",
		Email:    "Alice@Example.com",
		Password: "correct-horse-battery",
	}
}

// register creates and confirms an account, returning the confirm response.
func (f *authFixture) registerConfirmed(t *testing.T) *models.TokenResponse {
	t.Helper()
	ctx := context.Background()
	_, err := f.service.Register(ctx, registerRequest())
	require.NoError(t, err)
	resp, err := f.service.Confirm(ctx, lastMailedToken(t, f.sender))
	require.NoError(t, err)
	return resp
}

func TestAuthService_Register(t *testing.T) {
	f := newAuthFixture(t, 2*time.Hour)
	ctx := context.Background()

	resp, err := f.service.Register(ctx, registerRequest())
	require.NoError(t, err)
	assert.Equal(t, "alice", resp.User.Name)
	assert.Equal(t, "alice@example.com", resp.User.Email, "email is stored lowercased")
	assert.False(t, resp.User.Confirmed)
	assert.False(t, resp.EmailDeliveryFailed)
	require.Len(t, f.sender.Sent, 1)
	assert.Equal(t, []string{"alice@example.com"}, f.sender.Sent[0].To)

	// Duplicate name or email is a validation failure, not a server error.
	_, err = f.service.Register(ctx, registerRequest())
	var verr *errors.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestAuthService_RegisterSurvivesMailFailure(t *testing.T) {
	f := newAuthFixture(t, 2*time.Hour)
	f.sender.Fail = fmt.Errorf("relay down")

	resp, err := f.service.Register(context.Background(), registerRequest())
	require.NoError(t, err, "registration does not depend on the mail collaborator")
	assert.True(t, resp.EmailDeliveryFailed)
	assert.NotZero(t, resp.User.ID)
	assert.Empty(t, f.sender.Sent)
}

func TestAuthService_ConfirmAndLogin(t *testing.T) {
	f := newAuthFixture(t, 2*time.Hour)
	ctx := context.Background()

	_, err := f.service.Register(ctx, registerRequest())
	require.NoError(t, err)

	// Unconfirmed accounts cannot log in, and the error does not say why.
	_, err = f.service.Login(ctx, &models.LoginRequest{Email: "alice@example.com", Password: "correct-horse-battery"})
	assert.ErrorIs(t, err, errors.ErrUnauthenticated)

	resp, err := f.service.Confirm(ctx, lastMailedToken(t, f.sender))
	require.NoError(t, err)
	assert.True(t, resp.User.Confirmed)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)

	// A confirmation token is single use.
	_, err = f.service.Confirm(ctx, lastMailedToken(t, f.sender))
	assert.ErrorIs(t, err, errors.ErrTokenNotFound)

	// Login works after confirmation, with the email in any case.
	login, err := f.service.Login(ctx, &models.LoginRequest{Email: " ALICE@example.com ", Password: "correct-horse-battery"})
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, login.User.ID)

	_, err = f.service.Login(ctx, &models.LoginRequest{Email: "alice@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, errors.ErrUnauthenticated)
	_, err = f.service.Login(ctx, &models.LoginRequest{Email: "nobody@example.com", Password: "whatever"})
	assert.ErrorIs(t, err, errors.ErrUnauthenticated)
}

func TestAuthService_RefreshRotation(t *testing.T) {
	f := newAuthFixture(t, 2*time.Hour)
	ctx := context.Background()
	first := f.registerConfirmed(t)

	second, err := f.service.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// The first refresh token was rotated out; replaying it fails even
	// though its signature is still valid.
	_, err = f.service.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, errors.ErrUnauthenticated)

	// The live token keeps working.
	_, err = f.service.Refresh(ctx, second.RefreshToken)
	require.NoError(t, err)
}

func TestAuthService_RefreshRejectsAccessToken(t *testing.T) {
	f := newAuthFixture(t, 2*time.Hour)
	resp := f.registerConfirmed(t)

	_, err := f.service.Refresh(context.Background(), resp.AccessToken)
	assert.ErrorIs(t, err, errors.ErrUnauthenticated)

	_, err = f.service.Refresh(context.Background(), "garbage")
	assert.ErrorIs(t, err, errors.ErrUnauthenticated)
}

func TestAuthService_PasswordReset(t *testing.T) {
	f := newAuthFixture(t, 2*time.Hour)
	ctx := context.Background()
	f.registerConfirmed(t)

	// Unknown email reports not found; the handler maps this to 404.
	err := f.service.ForgotPassword(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, errors.ErrEmailNotFound)

	require.NoError(t, f.service.ForgotPassword(ctx, "alice@example.com"))
	resetToken := lastMailedToken(t, f.sender)

	resp, err := f.service.ResetPassword(ctx, &models.ResetPasswordRequest{
		Token:    resetToken,
		Password: "brand-new-passphrase",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)

	// Old password is dead, the new one works.
	_, err = f.service.Login(ctx, &models.LoginRequest{Email: "alice@example.com", Password: "correct-horse-battery"})
	assert.ErrorIs(t, err, errors.ErrUnauthenticated)
	_, err = f.service.Login(ctx, &models.LoginRequest{Email: "alice@example.com", Password: "brand-new-passphrase"})
	require.NoError(t, err)

	// The reset token was consumed.
	_, err = f.service.ResetPassword(ctx, &models.ResetPasswordRequest{
		Token:    resetToken,
		Password: "another-passphrase-9",
	})
	assert.ErrorIs(t, err, errors.ErrUnauthenticated)
}

func TestAuthService_ResetTokenExpiry(t *testing.T) {
	f := newAuthFixture(t, -time.Second)
	ctx := context.Background()
	f.registerConfirmed(t)

	require.NoError(t, f.service.ForgotPassword(ctx, "alice@example.com"))

	_, err := f.service.ResetPassword(ctx, &models.ResetPasswordRequest{
		Token:    lastMailedToken(t, f.sender),
		Password: "brand-new-passphrase",
	})
	assert.ErrorIs(t, err, errors.ErrUnauthenticated)
}

func TestAuthService_Me(t *testing.T) {
	f := newAuthFixture(t, 2*time.Hour)
	ctx := context.Background()
	resp := f.registerConfirmed(t)

	me, err := f.service.Me(ctx, &types.UserContext{UserID: resp.User.ID, Name: resp.User.Name})
	require.NoError(t, err)
	assert.Equal(t, "alice", me.Name)
	assert.Equal(t, "alice@example.com", me.Email)

	_, err = f.service.Me(ctx, nil)
	assert.ErrorIs(t, err, errors.ErrInvalidUserContext)
	_, err = f.service.Me(ctx, &types.UserContext{UserID: 9999})
	assert.ErrorIs(t, err, errors.ErrUnauthenticated)
}
