package x3dh

import (
	"crypto/rand"
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"

	"cipherkeep/internal/crypto"
	"cipherkeep/internal/domain"
	"cipherkeep/internal/failure"
	"cipherkeep/internal/util/memzero"
)

const (
	rootKeyBytes = 32
	info         = "cipherkeep-x3dh"
)

// Result is what the initiator learns from a completed agreement.
type Result struct {
	RootKey         []byte
	SignedPreKeyID  domain.SignedPreKeyID
	OneTimePreKeyID *domain.OneTimePreKeyID
	EphemeralKey    domain.X25519Public
}

// VerifySignedPreKey reports whether sig is identityKey's Ed25519 signature
// over the raw 32-byte spk. Malformed input yields false, never a panic.
func VerifySignedPreKey(identityKey domain.Ed25519Public, spk domain.X25519Public, sig []byte) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return crypto.VerifyEd25519(identityKey, spk.Slice(), sig)
}

// VerifyBundle checks the signed prekey of b against its identity.
func VerifyBundle(b domain.PreKeyBundle) error {
	if !VerifySignedPreKey(b.IdentityKey.Signing, b.SignedPreKey.Public, b.SignedPreKey.Signature) {
		return failure.ErrSignatureInvalid
	}
	return nil
}

// InitiatorRoot verifies b and derives a root key towards it with a fresh
// ephemeral key.
func InitiatorRoot(id domain.IdentityKeyPair, b domain.PreKeyBundle) (Result, error) {
	return InitiatorRootFrom(rand.Reader, id, b)
}

// InitiatorRootFrom is InitiatorRoot with an explicit entropy source.
func InitiatorRootFrom(r io.Reader, id domain.IdentityKeyPair, b domain.PreKeyBundle) (Result, error) {
	if err := VerifyBundle(b); err != nil {
		return Result{}, err
	}
	ephPriv, ephPub, err := crypto.GenerateX25519From(r)
	if err != nil {
		return Result{}, failure.Generation("ephemeral key", err)
	}
	defer memzero.Zero(ephPriv[:])

	spk := b.SignedPreKey.Public
	pairs := []dhPair{
		{id.XPriv, spk},              // DH(IKa, SPKb)
		{ephPriv, b.IdentityKey.DH}, // DH(EKa, IKb)
		{ephPriv, spk},              // DH(EKa, SPKb)
	}
	res := Result{SignedPreKeyID: b.SignedPreKey.KeyID, EphemeralKey: ephPub}
	if b.OneTimePreKey != nil {
		pairs = append(pairs, dhPair{ephPriv, b.OneTimePreKey.Public}) // DH(EKa, OPKb)
		keyID := b.OneTimePreKey.KeyID
		res.OneTimePreKeyID = &keyID
	}
	if res.RootKey, err = derive(pairs); err != nil {
		return Result{}, err
	}
	return res, nil
}

// ResponderRoot recomputes the initiator's root key from msg. opk must be
// non-nil exactly when msg names a one-time prekey.
func ResponderRoot(
	id domain.IdentityKeyPair,
	spk domain.X25519Private,
	opk *domain.X25519Private,
	msg domain.PreKeyMessage,
) ([]byte, error) {
	if (opk == nil) != (msg.OneTimePreKeyID == nil) {
		return nil, failure.InvalidArg("one-time prekey does not match the message")
	}
	pairs := []dhPair{
		{spk, msg.InitiatorIdentityKey}, // DH(SPKb, IKa)
		{id.XPriv, msg.EphemeralKey},    // DH(IKb, EKa)
		{spk, msg.EphemeralKey},         // DH(SPKb, EKa)
	}
	if opk != nil {
		pairs = append(pairs, dhPair{*opk, msg.EphemeralKey}) // DH(OPKb, EKa)
	}
	return derive(pairs)
}

type dhPair struct {
	priv domain.X25519Private
	pub  domain.X25519Public
}

// derive runs every DH and expands F || DH1 || ... || DHn into the root key,
// where F is 32 0xFF bytes.
func derive(pairs []dhPair) ([]byte, error) {
	ikm := make([]byte, 32, 32*(len(pairs)+1))
	for i := range ikm {
		ikm[i] = 0xFF
	}
	defer func() { memzero.Zero(ikm) }()

	for _, p := range pairs {
		out, err := crypto.DH(p.priv, p.pub)
		if err != nil {
			return nil, failure.Wrap(failure.ReasonInvalidArgument, "x3dh", err)
		}
		ikm = append(ikm, out[:]...)
		memzero.Zero(out[:])
	}

	root := make([]byte, rootKeyBytes)
	kdf := hkdf.New(sha256.New, ikm, make([]byte, sha256.Size), []byte(info))
	if _, err := io.ReadFull(kdf, root); err != nil {
		return nil, failure.Internal("x3dh expand", err)
	}
	return root, nil
}
