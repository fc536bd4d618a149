package service

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/faucetdb/touchline/internal/fieldmap"
)

// HashSecret hashes a user secret for storage.
func HashSecret(secret string) (string, error) {
	if secret == "" {
		return "", &fieldmap.ValidationError{Field: "user_password", Reason: "is required"}
	}
	h, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", &fieldmap.ValidationError{Field: "user_password", Reason: "is longer than 72 bytes"}
	}
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// ConfirmSecret reports whether supplied matches stored. Stored values are
// bcrypt hashes; rows created before hashing was introduced hold the plain
// secret and are compared in constant time over their SHA-256 digests.
func ConfirmSecret(stored, supplied string) bool {
	if isBcrypt(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(supplied)) == nil
	}
	a := sha256.Sum256([]byte(stored))
	b := sha256.Sum256([]byte(supplied))
	return stored != "" && subtle.ConstantTimeCompare(a[:], b[:]) == 1
}

func isBcrypt(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

var (
	dummyOnce sync.Once
	dummyHash []byte
)

// burnCompare runs a bcrypt comparison against a fixed hash. Login calls it
// for unknown user ids so both failure paths cost the same.
func burnCompare(supplied string) {
	dummyOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("touchline-unknown-user"), bcrypt.DefaultCost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(supplied))
}
