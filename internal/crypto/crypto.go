// Package crypto provides hashing and random byte helpers.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// Bytes returns securely generated random bytes.
func Bytes(length int) ([]byte, error) {
	b := make([]byte, length)
	_, err := rand.Read(b)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// TokenID derives the vault lookup key of a shared secret. The result
// is a one-way sha256 hex digest and is never used as key material.
func TokenID(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
