package tokens_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-social/tessera/internal/auth/tokens"
	"github.com/tessera-social/tessera/internal/testutil"
)

func newTestService(t *testing.T) *tokens.Service {
	t.Helper()
	svc, err := tokens.NewService(
		testutil.TestJWTPrivateKey, testutil.TestJWTPublicKey,
		15*time.Minute, 720*time.Hour)
	require.NoError(t, err)
	return svc
}

func TestTokenService_PairRoundTrip(t *testing.T) {
	svc := newTestService(t)

	pair, err := svc.NewPair(42, "alice")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)
	assert.Equal(t, int64((15 * time.Minute).Seconds()), pair.ExpiresIn)

	claims, err := svc.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "alice", claims.Name)

	refreshClaims, err := svc.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, int64(42), refreshClaims.UserID)
}

func TestTokenService_KindEnforcement(t *testing.T) {
	svc := newTestService(t)

	pair, err := svc.NewPair(7, "bob")
	require.NoError(t, err)

	// A refresh token must never pass as an access token, and vice versa.
	_, err = svc.VerifyAccess(pair.RefreshToken)
	assert.Error(t, err)

	_, err = svc.VerifyRefresh(pair.AccessToken)
	assert.Error(t, err)
}

func TestTokenService_RejectsForeignSignature(t *testing.T) {
	svc := newTestService(t)

	foreign, err := tokens.NewService(
		testutil.TestJWTPrivateKeyAlt, testutil.TestJWTPublicKeyAlt,
		15*time.Minute, 720*time.Hour)
	require.NoError(t, err)

	pair, err := foreign.NewPair(42, "mallory")
	require.NoError(t, err)

	_, err = svc.VerifyAccess(pair.AccessToken)
	assert.Error(t, err)
	_, err = svc.VerifyRefresh(pair.RefreshToken)
	assert.Error(t, err)
}

func TestTokenService_RejectsExpired(t *testing.T) {
	svc, err := tokens.NewService(
		testutil.TestJWTPrivateKey, testutil.TestJWTPublicKey,
		-time.Minute, -time.Minute)
	require.NoError(t, err)

	pair, err := svc.NewPair(42, "alice")
	require.NoError(t, err)

	_, err = svc.VerifyAccess(pair.AccessToken)
	assert.Error(t, err)
}

func TestTokenService_RejectsGarbage(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.VerifyAccess("not-a-token")
	assert.Error(t, err)
	_, err = svc.VerifyAccess("")
	assert.Error(t, err)
}

func TestOpaqueToken(t *testing.T) {
	first, err := tokens.NewOpaqueToken()
	require.NoError(t, err)
	second, err := tokens.NewOpaqueToken()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	stored := tokens.Hash(first)
	assert.True(t, tokens.MatchOpaqueToken(first, stored))
	assert.False(t, tokens.MatchOpaqueToken(second, stored))
	assert.False(t, tokens.MatchOpaqueToken("", stored))
}

func TestHash_Deterministic(t *testing.T) {
	assert.Equal(t, tokens.Hash("credential"), tokens.Hash("credential"))
	assert.NotEqual(t, tokens.Hash("credential"), tokens.Hash("credential2"))
	assert.Len(t, tokens.Hash("credential"), 64)
}
