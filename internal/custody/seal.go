package custody

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"

	"cipherkeep/internal/domain"
	"cipherkeep/internal/failure"
)

// IVBytes is the GCM nonce length.
const IVBytes = 12

// EncryptForCustody seals plaintext under encKey with a fresh IV.
func EncryptForCustody(encKey [32]byte, plaintext []byte) (domain.SealedField, error) {
	return seal(encKey, plaintext, nil)
}

// DecryptFromCustody opens ciphertext sealed by EncryptForCustody.
func DecryptFromCustody(encKey [32]byte, ciphertext, iv []byte) ([]byte, error) {
	return open(encKey, domain.SealedField{Ciphertext: ciphertext, IV: iv}, nil)
}

func seal(encKey [32]byte, plaintext, ad []byte) (domain.SealedField, error) {
	aead, err := newGCM(encKey)
	if err != nil {
		return domain.SealedField{}, err
	}
	iv := make([]byte, IVBytes)
	if _, err := rand.Read(iv); err != nil {
		return domain.SealedField{}, failure.Internal("read iv", err)
	}
	return domain.SealedField{
		Ciphertext: aead.Seal(nil, iv, plaintext, ad),
		IV:         iv,
	}, nil
}

func open(encKey [32]byte, f domain.SealedField, ad []byte) ([]byte, error) {
	if len(f.IV) != IVBytes {
		return nil, failure.Wrap(failure.ReasonDecryptionFailed, "open custody field", errBadIV)
	}
	aead, err := newGCM(encKey)
	if err != nil {
		return nil, err
	}
	if len(f.Ciphertext) < aead.Overhead() {
		return nil, failure.Wrap(failure.ReasonDecryptionFailed, "open custody field", errTruncated)
	}
	pt, err := aead.Open(nil, f.IV, f.Ciphertext, ad)
	if err != nil {
		return nil, failure.Wrap(failure.ReasonDecryptionFailed, "open custody field", err)
	}
	return pt, nil
}

func newGCM(key [32]byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, failure.Internal("aes key", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, failure.Internal("gcm", err)
	}
	return aead, nil
}

var (
	errBadIV     = errors.New("iv must be 12 bytes")
	errTruncated = errors.New("ciphertext shorter than tag")
)
