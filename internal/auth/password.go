package auth

import (
	"unicode"

	"golang.org/x/crypto/bcrypt"

	apperrors "clinic/internal/errors"
)

const (
	bcryptCost        = 10
	minPasswordLength = 8
)

// HashPassword returns a salted bcrypt digest of password.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", apperrors.Validation("password must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		// bcrypt rejects passwords longer than 72 bytes.
		return "", apperrors.Validation("%s", err.Error())
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches hash. It never fails: empty
// input and malformed digests simply do not match.
func VerifyPassword(password, hash string) bool {
	if password == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// CheckPasswordStrength applies the password policy and returns the first rule
// that fails, or a success message.
func CheckPasswordStrength(password string) (bool, string) {
	if len(password) < minPasswordLength {
		return false, "Password must be at least 8 characters long"
	}

	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}

	switch {
	case !upper:
		return false, "Password must contain at least one uppercase letter"
	case !lower:
		return false, "Password must contain at least one lowercase letter"
	case !digit:
		return false, "Password must contain at least one digit"
	}
	return true, "Password is strong"
}
