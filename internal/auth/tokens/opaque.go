// Copyright (c) 2025 Tessera Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package tokens

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

const opaqueTokenBytes = 32

// NewOpaqueToken generates a high-entropy URL-safe token for email
// confirmation and password reset links. The plaintext goes into the email;
// Hash(plaintext) goes into the user row.
func NewOpaqueToken() (string, error) {
	tokenBytes := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}
	return base64.URLEncoding.EncodeToString(tokenBytes), nil
}

// MatchOpaqueToken compares a presented plaintext token against the stored
// hash in constant time.
func MatchOpaqueToken(plaintext, storedHash string) bool {
	computed := Hash(plaintext)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}
