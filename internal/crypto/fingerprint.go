package crypto

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"

	"github.com/mr-tron/base58"

	"cipherkeep/internal/domain"
)

// Fingerprint returns a short hex fingerprint of a public key.
//
// It hashes with SHA-256 and truncates to 10 bytes (20 hex chars).
func Fingerprint(pub []byte) string {
	sum := sha256.Sum256(pub)
	return hex.EncodeToString(sum[:10])
}

// IdentityFingerprint fingerprints both halves of a published identity.
func IdentityFingerprint(id domain.IdentityPublic) domain.Fingerprint {
	return domain.Fingerprint(Fingerprint(id.Concat()))
}

// SafetyNumber returns a base58 string two parties can compare out of band.
//
// The inputs are ordered before hashing so both sides compute the same value.
func SafetyNumber(a, b domain.IdentityPublic) string {
	x, y := a.Concat(), b.Concat()
	if bytes.Compare(x, y) > 0 {
		x, y = y, x
	}
	h := sha256.New()
	h.Write([]byte("cipherkeep-safety-number"))
	h.Write(x)
	h.Write(y)
	return base58.Encode(h.Sum(nil)[:20])
}
