// Package auth implements credential handling and the five session kinds:
// staff, rep, trade, customer, and the anonymous cart session.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

const (
	// MinPasswordLength is the minimum acceptable password length.
	MinPasswordLength = 8

	// scrypt parameters. N must stay >= 2^14.
	scryptN      = 1 << 15
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32
	saltLen      = 16
)

var (
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrPasswordMismatch = errors.New("password does not match")
)

// HashPassword derives an scrypt hash over a fresh per-password salt.
// Format: scrypt$N$r$p$hex(salt)$hex(key).
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	key, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return "", fmt.Errorf("failed to derive key: %w", err)
	}
	return fmt.Sprintf("scrypt$%d$%d$%d$%s$%s",
		scryptN, scryptR, scryptP,
		hex.EncodeToString(salt), hex.EncodeToString(key)), nil
}

// VerifyPassword re-derives the key with the stored parameters and compares
// in constant time.
func VerifyPassword(password, hash string) error {
	parts := strings.Split(hash, "$")
	if len(parts) != 6 || parts[0] != "scrypt" {
		return fmt.Errorf("malformed password hash")
	}
	var n, r, p int
	if _, err := fmt.Sscanf(parts[1]+" "+parts[2]+" "+parts[3], "%d %d %d", &n, &r, &p); err != nil {
		return fmt.Errorf("malformed password hash parameters: %w", err)
	}
	salt, err := hex.DecodeString(parts[4])
	if err != nil {
		return fmt.Errorf("malformed password hash salt: %w", err)
	}
	want, err := hex.DecodeString(parts[5])
	if err != nil {
		return fmt.Errorf("malformed password hash key: %w", err)
	}
	got, err := scrypt.Key([]byte(password), salt, n, r, p, len(want))
	if err != nil {
		return fmt.Errorf("failed to derive key: %w", err)
	}
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return ErrPasswordMismatch
	}
	return nil
}
