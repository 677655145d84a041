package store

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"

	"cipherkeep/internal/failure"
	"cipherkeep/internal/vault"
)

// sealedFormatVersion is the newest sealed blob layout this package writes.
const sealedFormatVersion = 2

// ScryptParams are the cost parameters of the passphrase KDF.
type ScryptParams struct {
	N int `mapstructure:"n" json:"n"`
	R int `mapstructure:"r" json:"r"`
	P int `mapstructure:"p" json:"p"`
}

// DefaultScryptParams returns the interactive-login cost.
func DefaultScryptParams() ScryptParams { return ScryptParams{N: 1 << 15, R: 8, P: 1} }

// sealedBlob is the stored form of one sealed value.
type sealedBlob struct {
	V      int    `json:"v"`
	Salt   []byte `json:"salt"`
	N      int    `json:"scrypt_N"`
	R      int    `json:"scrypt_r"`
	P      int    `json:"scrypt_p"`
	Nonce  []byte `json:"nonce"`
	Cipher []byte `json:"cipher"`
}

// PassphraseSealer seals vault values under a passphrase.
//
// One salt is drawn per sealer and its derived key is cached; blobs written
// under other salts or parameters are opened with their own cached key.
type PassphraseSealer struct {
	pass   []byte
	params ScryptParams
	salt   [16]byte

	mu   sync.Mutex
	keys map[string][]byte
}

var _ vault.Sealer = (*PassphraseSealer)(nil)

// NewPassphraseSealer returns a sealer for passphrase.
func NewPassphraseSealer(passphrase string, params ScryptParams) (*PassphraseSealer, error) {
	if passphrase == "" {
		return nil, failure.InvalidArg("vault passphrase is empty")
	}
	s := &PassphraseSealer{
		pass:   []byte(passphrase),
		params: params,
		keys:   make(map[string][]byte),
	}
	if _, err := rand.Read(s.salt[:]); err != nil {
		return nil, failure.Internal("read salt", err)
	}
	return s, nil
}

// Seal encrypts plaintext, binding ad and the salt as additional data.
func (s *PassphraseSealer) Seal(ad, plaintext []byte) ([]byte, error) {
	key, err := s.key(s.salt[:], s.params)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, failure.Internal("xchacha20poly1305", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, failure.Internal("read nonce", err)
	}
	return json.Marshal(sealedBlob{
		V:      sealedFormatVersion,
		Salt:   s.salt[:],
		N:      s.params.N,
		R:      s.params.R,
		P:      s.params.P,
		Nonce:  nonce,
		Cipher: aead.Seal(nil, nonce, plaintext, bindAD(ad, s.salt[:])),
	})
}

// Open reverses Seal. A wrong passphrase or modified blob is DECRYPTION_FAILED.
func (s *PassphraseSealer) Open(ad, sealed []byte) ([]byte, error) {
	var bl sealedBlob
	if err := json.Unmarshal(sealed, &bl); err != nil {
		return nil, failure.Wrap(failure.ReasonDecryptionFailed, "parse sealed value", err)
	}
	if bl.V != sealedFormatVersion {
		return nil, failure.Newf(failure.ReasonDecryptionFailed, "unsupported sealed value version %d", bl.V)
	}
	key, err := s.key(bl.Salt, ScryptParams{N: bl.N, R: bl.R, P: bl.P})
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, failure.Internal("xchacha20poly1305", err)
	}
	if len(bl.Nonce) != aead.NonceSize() {
		return nil, failure.New(failure.ReasonDecryptionFailed, "sealed value has a bad nonce")
	}
	pt, err := aead.Open(nil, bl.Nonce, bl.Cipher, bindAD(ad, bl.Salt))
	if err != nil {
		return nil, failure.Wrap(failure.ReasonDecryptionFailed, "wrong passphrase or corrupted vault", err)
	}
	return pt, nil
}

func (s *PassphraseSealer) key(salt []byte, p ScryptParams) ([]byte, error) {
	id := fmt.Sprintf("%x/%d/%d/%d", salt, p.N, p.R, p.P)

	s.mu.Lock()
	defer s.mu.Unlock()
	if k, ok := s.keys[id]; ok {
		return k, nil
	}
	k, err := scrypt.Key(s.pass, salt, p.N, p.R, p.P, chacha20poly1305.KeySize)
	if err != nil {
		return nil, failure.Wrap(failure.ReasonInvalidArgument, "scrypt", err)
	}
	s.keys[id] = k
	return k, nil
}

func bindAD(ad, salt []byte) []byte {
	out := make([]byte, 0, len(ad)+1+len(salt))
	out = append(out, ad...)
	out = append(out, 0)
	return append(out, salt...)
}
