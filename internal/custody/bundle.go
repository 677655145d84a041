package custody

import (
	"fmt"
	"time"

	"cipherkeep/internal/crypto"
	"cipherkeep/internal/domain"
	"cipherkeep/internal/failure"
	"cipherkeep/internal/protocol/x3dh"
	"cipherkeep/internal/util/memzero"
)

// SealDevice seals every private half of b for owner.
func SealDevice(encKey [32]byte, owner domain.Address, b domain.DeviceBundle) (domain.EncryptedPrivateKeyBundle, error) {
	idPlain := make([]byte, 0, 96)
	idPlain = append(idPlain, b.Identity.XPriv[:]...)
	idPlain = append(idPlain, b.Identity.EdPriv[:]...)
	defer memzero.Zero(idPlain)

	idField, err := seal(encKey, idPlain, slotAD(owner, "identity"))
	if err != nil {
		return domain.EncryptedPrivateKeyBundle{}, err
	}
	spk := b.SignedPreKey
	spkField, err := seal(encKey, spk.Private[:], slotAD(owner, fmt.Sprintf("spk:%d", spk.KeyID)))
	if err != nil {
		return domain.EncryptedPrivateKeyBundle{}, err
	}

	opks := make([]domain.SealedOneTimePreKey, 0, len(b.OneTimePreKeys))
	for _, k := range b.OneTimePreKeys {
		f, err := seal(encKey, k.Private[:], slotAD(owner, fmt.Sprintf("opk:%d", k.KeyID)))
		if err != nil {
			return domain.EncryptedPrivateKeyBundle{}, err
		}
		opks = append(opks, domain.SealedOneTimePreKey{KeyID: k.KeyID, Key: f})
	}

	return domain.EncryptedPrivateKeyBundle{
		UserID:                owner.UserID,
		DeviceID:              owner.DeviceID,
		RegistrationID:        b.RegistrationID,
		IdentityKey:           idField,
		SignedPreKeyID:        spk.KeyID,
		SignedPreKey:          spkField,
		SignedPreKeySignature: spk.Signature.Clone(),
		SignedPreKeyTimestamp: spk.Timestamp,
		OneTimePreKeys:        opks,
		CreatedAt:             time.Now().UTC(),
	}, nil
}

// OpenDevice recovers the private key material of enc and rebuilds the
// public halves. The recovered identity must verify the signed prekey
// signature, otherwise SIGNATURE_INVALID is returned.
func OpenDevice(encKey [32]byte, enc domain.EncryptedPrivateKeyBundle) (domain.DeviceBundle, error) {
	owner := enc.Owner()

	idPlain, err := open(encKey, enc.IdentityKey, slotAD(owner, "identity"))
	if err != nil {
		return domain.DeviceBundle{}, err
	}
	defer memzero.Zero(idPlain)
	if len(idPlain) != 96 {
		return domain.DeviceBundle{}, failure.New(failure.ReasonDecryptionFailed, "identity key has wrong length")
	}
	var id domain.IdentityKeyPair
	copy(id.XPriv[:], idPlain[:32])
	copy(id.EdPriv[:], idPlain[32:])
	if id.XPub, err = crypto.PublicX25519(id.XPriv); err != nil {
		return domain.DeviceBundle{}, failure.Wrap(failure.ReasonDecryptionFailed, "identity key", err)
	}
	id.EdPub = crypto.PublicEd25519(id.EdPriv)

	spk, err := openX25519(encKey, enc.SignedPreKey, slotAD(owner, fmt.Sprintf("spk:%d", enc.SignedPreKeyID)))
	if err != nil {
		return domain.DeviceBundle{}, err
	}
	spkRec := domain.SignedPreKeyRecord{
		KeyID:     enc.SignedPreKeyID,
		Private:   spk.priv,
		Public:    spk.pub,
		Signature: enc.SignedPreKeySignature.Clone(),
		Timestamp: enc.SignedPreKeyTimestamp,
	}
	if !x3dh.VerifySignedPreKey(id.EdPub, spkRec.Public, spkRec.Signature) {
		return domain.DeviceBundle{}, failure.ErrSignatureInvalid
	}

	opks := make([]domain.OneTimePreKeyRecord, 0, len(enc.OneTimePreKeys))
	for _, s := range enc.OneTimePreKeys {
		k, err := openX25519(encKey, s.Key, slotAD(owner, fmt.Sprintf("opk:%d", s.KeyID)))
		if err != nil {
			return domain.DeviceBundle{}, err
		}
		opks = append(opks, domain.OneTimePreKeyRecord{KeyID: s.KeyID, Private: k.priv, Public: k.pub})
	}

	return domain.DeviceBundle{
		Identity:       id,
		RegistrationID: enc.RegistrationID,
		SignedPreKey:   spkRec,
		OneTimePreKeys: opks,
	}, nil
}

type x25519Pair struct {
	priv domain.X25519Private
	pub  domain.X25519Public
}

func openX25519(encKey [32]byte, f domain.SealedField, ad []byte) (x25519Pair, error) {
	pt, err := open(encKey, f, ad)
	if err != nil {
		return x25519Pair{}, err
	}
	defer memzero.Zero(pt)
	if len(pt) != 32 {
		return x25519Pair{}, failure.New(failure.ReasonDecryptionFailed, "prekey has wrong length")
	}
	var p x25519Pair
	copy(p.priv[:], pt)
	if p.pub, err = crypto.PublicX25519(p.priv); err != nil {
		return x25519Pair{}, failure.Wrap(failure.ReasonDecryptionFailed, "prekey", err)
	}
	return p, nil
}

// slotAD binds a sealed field to its owner and slot.
func slotAD(owner domain.Address, slot string) []byte {
	return []byte("cipherkeep/custody/v1|" + owner.String() + "|" + slot)
}
