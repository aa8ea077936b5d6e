package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "scrypt$"))

	assert.NoError(t, VerifyPassword("correct horse battery", hash))
	assert.ErrorIs(t, VerifyPassword("wrong horse battery", hash), ErrPasswordMismatch)
}

func TestHashPasswordSaltsDiffer(t *testing.T) {
	a, err := HashPassword("password123")
	require.NoError(t, err)
	b, err := HashPassword("password123")
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "each hash gets a fresh salt")
}

func TestHashPasswordMinLength(t *testing.T) {
	_, err := HashPassword("short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	assert.Error(t, VerifyPassword("whatever", "not-a-hash"))
	assert.Error(t, VerifyPassword("whatever", "scrypt$x$y$z$zz$zz"))
}

func TestGenerateToken(t *testing.T) {
	a, err := GenerateToken()
	require.NoError(t, err)
	b, err := GenerateToken()
	require.NoError(t, err)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}

func TestGenerateCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		for _, r := range code {
			require.True(t, r >= '0' && r <= '9')
		}
	}
}

func TestFingerprintHashDeterministic(t *testing.T) {
	assert.Equal(t, FingerprintHash("device-a"), FingerprintHash("device-a"))
	assert.NotEqual(t, FingerprintHash("device-a"), FingerprintHash("device-b"))
	assert.Len(t, FingerprintHash("device-a"), 64)
}

func TestLoginLimiterWindow(t *testing.T) {
	l := NewLoginLimiter(3, time.Minute)
	now := time.Now()

	assert.True(t, l.Allow("a@b.com", now))
	assert.True(t, l.Allow("A@B.COM", now), "emails are case-insensitive")
	assert.True(t, l.Allow("a@b.com", now))
	assert.False(t, l.Allow("a@b.com", now))

	// Another account is unaffected.
	assert.True(t, l.Allow("c@d.com", now))

	// Attempts age out of the window.
	assert.True(t, l.Allow("a@b.com", now.Add(2*time.Minute)))
}

func TestLoginLimiterReset(t *testing.T) {
	l := NewLoginLimiter(1, time.Minute)
	now := time.Now()
	assert.True(t, l.Allow("a@b.com", now))
	assert.False(t, l.Allow("a@b.com", now))

	l.Reset("A@B.com")
	assert.True(t, l.Allow("a@b.com", now))
}
