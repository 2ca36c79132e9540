package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Signup password policy. The only hard rules are length bounds: a floor
// against trivial guesses and bcrypt's 72-byte input ceiling.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72

	bcryptCost = 12
)

var (
	// ErrPasswordMismatch means the candidate password does not match the stored hash
	ErrPasswordMismatch = errors.New("password does not match")
	// ErrPasswordPolicy means the password violates the signup length policy
	ErrPasswordPolicy = fmt.Errorf("password must be between %d and %d characters", MinPasswordLength, MaxPasswordLength)
)

// HashPassword hashes a password with bcrypt. The policy is enforced here
// too, so no caller can persist a hash of an out-of-policy password.
func HashPassword(password string) (string, error) {
	if !IsPasswordValid(password) {
		return "", ErrPasswordPolicy
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(hashed), nil
}

// VerifyPassword compares a candidate password against the stored bcrypt
// hash. The stored hash is the only authority; an account with an empty
// hash never verifies.
func VerifyPassword(hashedPassword, password string) error {
	if hashedPassword == "" {
		return ErrPasswordMismatch
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return err
	}

	return nil
}

// IsPasswordValid reports whether a password satisfies the signup policy
func IsPasswordValid(password string) bool {
	return len(password) >= MinPasswordLength && len(password) <= MaxPasswordLength
}
