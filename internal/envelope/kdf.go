package envelope

import (
	"crypto/rand"
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"

	"cipherkeep/internal/domain"
	"cipherkeep/internal/failure"
	"cipherkeep/internal/util/memzero"
)

// HKDF info strings for the two subkeys.
const (
	InfoEncryption = "E2E_PASSW_ENC"
	InfoVerifier   = "E2E_PASSW_VERIFIER"
)

// Keys are the two subkeys derived from one password and salt.
type Keys struct {
	Enc      [KeyBytes]byte
	Verifier [KeyBytes]byte
}

// Wipe zeroes both keys.
func (k *Keys) Wipe() {
	memzero.Zero(k.Enc[:])
	memzero.Zero(k.Verifier[:])
}

// NewSalt returns SaltBytes fresh random bytes.
func NewSalt() (domain.Bytes, error) {
	salt := make([]byte, SaltBytes)
	if _, err := rand.Read(salt); err != nil {
		return nil, failure.Internal("read salt", err)
	}
	return salt, nil
}

// DeriveMasterSecret runs Argon2id over password and salt.
func DeriveMasterSecret(password string, salt []byte, p Params) ([]byte, error) {
	if len(salt) < SaltBytes {
		return nil, failure.InvalidArg("salt must be at least 16 bytes")
	}
	if err := p.usable(); err != nil {
		return nil, err
	}
	return argon2.IDKey([]byte(password), salt, p.Iterations, p.MemoryKiB, p.Parallelism, KeyBytes), nil
}

// Derive computes the master secret and expands it into Keys. The master
// secret is wiped before returning.
func Derive(password string, salt []byte, p Params) (Keys, error) {
	master, err := DeriveMasterSecret(password, salt, p)
	if err != nil {
		return Keys{}, err
	}
	defer memzero.Zero(master)

	var k Keys
	if err := expand(master, salt, InfoEncryption, k.Enc[:]); err != nil {
		return Keys{}, err
	}
	if err := expand(master, salt, InfoVerifier, k.Verifier[:]); err != nil {
		k.Wipe()
		return Keys{}, err
	}
	return k, nil
}

func expand(master, salt []byte, info string, out []byte) error {
	r := hkdf.New(sha256.New, master, salt, []byte(info))
	if _, err := io.ReadFull(r, out); err != nil {
		return failure.Internal("hkdf expand "+info, err)
	}
	return nil
}
