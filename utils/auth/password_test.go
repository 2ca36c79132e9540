package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.NoError(t, VerifyPassword(hash, "correct horse battery staple"))
}

// Wrong passwords must fail verification. Signin depends on this check
// actually running; a short-circuited verification would accept any
// password for a known email.
func TestVerifyPassword_WrongPasswordRejected(t *testing.T) {
	hash, err := HashPassword("the-real-password")
	require.NoError(t, err)

	assert.ErrorIs(t, VerifyPassword(hash, "not-the-password"), ErrPasswordMismatch)
	assert.ErrorIs(t, VerifyPassword(hash, ""), ErrPasswordMismatch)
	assert.ErrorIs(t, VerifyPassword(hash, "the-real-password "), ErrPasswordMismatch)
	assert.ErrorIs(t, VerifyPassword("", "the-real-password"), ErrPasswordMismatch)
}

// Hashing refuses out-of-policy input so a bad hash can never be persisted
func TestHashPassword_EnforcesPolicy(t *testing.T) {
	_, err := HashPassword("short")
	assert.ErrorIs(t, err, ErrPasswordPolicy)

	_, err = HashPassword(strings.Repeat("x", MaxPasswordLength+1))
	assert.ErrorIs(t, err, ErrPasswordPolicy)

	_, err = HashPassword(strings.Repeat("x", MaxPasswordLength))
	assert.NoError(t, err)
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	h1, err := HashPassword("same-password")
	require.NoError(t, err)
	h2, err := HashPassword("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}

func TestIsPasswordValid(t *testing.T) {
	assert.True(t, IsPasswordValid("12345678"))
	assert.True(t, IsPasswordValid("a much longer passphrase"))
	assert.False(t, IsPasswordValid("1234567"))
	assert.False(t, IsPasswordValid(""))
	assert.False(t, IsPasswordValid(strings.Repeat("x", MaxPasswordLength+1)))
}
