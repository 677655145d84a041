package envelope

import (
	"unicode"

	"cipherkeep/internal/failure"
)

// MinPasswordLength is the minimum number of characters for a password.
const MinPasswordLength = 12

// CheckPasswordPolicy returns WEAK_PASSWORD unless password has at least
// MinPasswordLength characters including upper, lower, digit and symbol.
func CheckPasswordPolicy(password string) error {
	if !isSecurePassword(password) {
		return failure.ErrWeakPassword
	}
	return nil
}

func isSecurePassword(password string) bool {
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	if len([]rune(password)) < MinPasswordLength {
		return false
	}
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	return hasUpper && hasLower && hasDigit && hasSymbol
}
