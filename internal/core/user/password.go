package user

import (
	"fmt"
	"strings"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 255
)

// HashParams are the argon2id parameters used for every new hash.
var HashParams = argon2id.DefaultParams

// HashedPassword holds a one-way password hash. The plain text is never retained.
type HashedPassword struct {
	value string
}

// HashedPasswordFromPlainText checks the plain-text length rules and hashes it with argon2id.
func HashedPasswordFromPlainText(plain string) (HashedPassword, error) {
	if err := checkPasswordLength(plain); err != nil {
		return HashedPassword{}, err
	}
	hash, err := argon2id.CreateHash(plain, HashParams)
	if err != nil {
		return HashedPassword{}, fmt.Errorf("error creating password hash: %w", err)
	}
	return HashedPassword{value: hash}, nil
}

// HashedPasswordFromHash wraps an already hashed value, typically read back from storage.
func HashedPasswordFromHash(hash string) (HashedPassword, error) {
	if hash == "" {
		return HashedPassword{}, newInvariantError("password", "Hashed password cannot be empty")
	}
	return HashedPassword{value: hash}, nil
}

// Verify reports whether plain matches the hash. Both argon2id hashes and bcrypt hashes
// (written by the previous system) are understood; comparisons are constant-time.
func (p HashedPassword) Verify(plain string) bool {
	switch {
	case strings.HasPrefix(p.value, "$argon2id$"):
		ok, err := argon2id.ComparePasswordAndHash(plain, p.value)
		return err == nil && ok
	case isBcrypt(p.value):
		return bcrypt.CompareHashAndPassword([]byte(p.value), []byte(plain)) == nil
	default:
		return false
	}
}

// String returns the hash.
func (p HashedPassword) String() string { return p.value }

// Equals reports value equality of the hashes.
func (p HashedPassword) Equals(other HashedPassword) bool { return p.value == other.value }

func checkPasswordLength(plain string) error {
	if len(plain) < minPasswordLength {
		return newInvariantError("password", "Password must be at least 8 characters long")
	}
	if len(plain) > maxPasswordLength {
		return newInvariantError("password", "Password is too long. Maximum 255 characters allowed.")
	}
	return nil
}

func isBcrypt(hash string) bool {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(hash, prefix) {
			return true
		}
	}
	return false
}
