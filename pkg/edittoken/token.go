// Package edittoken issues the secret handed to whoever submits an event so
// they can edit it later without an account. Only a SHA-256 hash of the token
// is ever stored.
package edittoken

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

const tokenBytes = 32

// New returns a fresh token and the hash to persist.
func New() (token, hash string, err error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generating edit token: %w", err)
	}
	token = hex.EncodeToString(buf)
	return token, Hash(token), nil
}

// Hash returns the hex SHA-256 of token.
func Hash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether token matches the stored hash, in constant time.
func Verify(token, storedHash string) bool {
	if token == "" || storedHash == "" {
		return false
	}
	computed := Hash(token)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}
