package envelope

import (
	"golang.org/x/crypto/bcrypt"

	"cipherkeep/internal/failure"
)

// VerifierCost is the bcrypt cost for stored verifiers.
const VerifierCost = 10

// HashVerifier returns the one-way hash stored by the server.
func HashVerifier(verifier []byte) (string, error) {
	if len(verifier) != KeyBytes {
		return "", failure.InvalidArg("verifier must be 32 bytes")
	}
	h, err := bcrypt.GenerateFromPassword(verifier, VerifierCost)
	if err != nil {
		return "", failure.Internal("hash verifier", err)
	}
	return string(h), nil
}

// CheckVerifier reports whether verifier matches hash.
func CheckVerifier(hash string, verifier []byte) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), verifier) == nil
}
