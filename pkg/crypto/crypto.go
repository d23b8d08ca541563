package crypto

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt rejects inputs beyond 72 bytes; surface that as a clear error
// instead of the library's generic one.
const maxPasswordBytes = 72

// ErrPasswordTooLong is returned when the plaintext exceeds bcrypt's input limit.
var ErrPasswordTooLong = errors.New("crypto: password exceeds 72 bytes")

// HashPassword returns a bcrypt hash of the supplied password.
func HashPassword(password string) (string, error) {
	if len(password) > maxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether the plaintext candidate matches the stored hash.
func VerifyPassword(hashedPassword, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}
