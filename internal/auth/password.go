package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the longest password bcrypt accepts.
//
// Why not pre-hash longer passwords with SHA-256? Because then the stored
// digests would no longer be plain bcrypt, and every verifier would need to
// know about the extra step. Rejecting the input up front keeps the column
// portable and gives the caller a clear validation error instead of a
// hashing failure.
const MaxPasswordBytes = 72

// ErrPasswordTooLong is returned for passwords over MaxPasswordBytes.
var ErrPasswordTooLong = errors.New("password must be at most 72 bytes")

// HashPassword returns a salted bcrypt digest of plaintext.
func HashPassword(plaintext string) (string, error) {
	if len(plaintext) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword compares plaintext against digest in constant time.
// A malformed digest is a mismatch, not an error.
func VerifyPassword(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
