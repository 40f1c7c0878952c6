// Copyright (c) 2025 Tessera Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package tokens

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
)

// Credential kinds carried in the "kind" claim. Access tokens omit the
// claim entirely; refresh tokens always carry KindRefresh so one can never
// be presented where the other is expected.
const (
	KindRefresh = "refresh"

	issuer = "tessera-social"
	keyID  = "tessera-auth-key-1"
)

// Claims are the session claims embedded in both credential kinds.
type Claims struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Kind   string `json:"kind,omitempty"`
	jwt.RegisteredClaims
}

// Pair is a freshly issued access/refresh credential pair.
type Pair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// Service signs and verifies ES256 session credentials.
type Service struct {
	privateKey *ecdsa.PrivateKey
	publicKey  *ecdsa.PublicKey
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewService parses the PEM key pair once; a malformed key is a startup
// error, not a per-request one.
func NewService(privateKeyPEM, publicKeyPEM string, accessTTL, refreshTTL time.Duration) (*Service, error) {
	privateKey, err := jwt.ParseECPrivateKeyFromPEM([]byte(privateKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("failed to parse EC private key: %w", err)
	}
	publicKey, err := jwt.ParseECPublicKeyFromPEM([]byte(publicKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("failed to parse EC public key: %w", err)
	}
	return &Service{
		privateKey: privateKey,
		publicKey:  publicKey,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

// NewPair issues a fresh access+refresh pair for the user.
func (s *Service) NewPair(userID int64, name string) (*Pair, error) {
	access, err := s.sign(userID, name, "", s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	refresh, err := s.sign(userID, name, KindRefresh, s.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return &Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}

func (s *Service) sign(userID int64, name, kind string, ttl time.Duration) (string, error) {
	jti, err := uuid.NewV4()
	if err != nil {
		return "", fmt.Errorf("failed to generate jti: %w", err)
	}
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Name:   name,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti.String(),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	token.Header["kid"] = keyID
	return token.SignedString(s.privateKey)
}

// VerifyAccess validates an access credential: ES256 signature, expiry, and
// the absence of the refresh kind. Refresh tokens presented as access
// tokens are rejected.
func (s *Service) VerifyAccess(tokenString string) (*Claims, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Kind != "" {
		return nil, fmt.Errorf("token kind %q is not an access token", claims.Kind)
	}
	return claims, nil
}

// VerifyRefresh validates a refresh credential's signature, expiry and kind.
// Whether it is still the live refresh token for the user is the caller's
// check against the stored hash.
func (s *Service) VerifyRefresh(tokenString string) (*Claims, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Kind != KindRefresh {
		return nil, fmt.Errorf("token is not a refresh token")
	}
	return claims, nil
}

// Hash returns the SHA-256 hex digest of a credential. The digest, never
// the credential itself, is what gets stored on the user row so a leaked
// database cannot replay live refresh tokens.
func Hash(tokenString string) string {
	sum := sha256.Sum256([]byte(tokenString))
	return hex.EncodeToString(sum[:])
}

func (s *Service) parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.publicKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.UserID <= 0 {
		return nil, fmt.Errorf("missing user_id claim")
	}
	return claims, nil
}
