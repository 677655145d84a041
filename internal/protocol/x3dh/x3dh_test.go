package x3dh_test

import (
	"bytes"
	"testing"
	"time"

	"cipherkeep/internal/crypto"
	"cipherkeep/internal/domain"
	"cipherkeep/internal/failure"
	"cipherkeep/internal/protocol/x3dh"
)

// makeIdentity creates an identity with fresh X25519 and Ed25519 pairs.
func makeIdentity(t *testing.T) domain.IdentityKeyPair {
	t.Helper()
	xPriv, xPub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	edPriv, edPub, err := crypto.GenerateEd25519()
	if err != nil {
		t.Fatalf("GenerateEd25519: %v", err)
	}
	return domain.IdentityKeyPair{XPub: xPub, XPriv: xPriv, EdPub: edPub, EdPriv: edPriv}
}

func makeSignedPreKey(t *testing.T, id domain.IdentityKeyPair) domain.SignedPreKeyRecord {
	t.Helper()
	priv, pub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	return domain.SignedPreKeyRecord{
		KeyID:     7,
		Public:    pub,
		Private:   priv,
		Signature: crypto.SignEd25519(id.EdPriv, pub[:]),
		Timestamp: time.Now(),
	}
}

func TestVerifySignedPreKey(t *testing.T) {
	bob := makeIdentity(t)
	spk := makeSignedPreKey(t, bob)

	if !x3dh.VerifySignedPreKey(bob.EdPub, spk.Public, spk.Signature) {
		t.Fatal("valid signature rejected")
	}

	flipped := spk.Signature.Clone()
	flipped[0] ^= 1
	if x3dh.VerifySignedPreKey(bob.EdPub, spk.Public, flipped) {
		t.Fatal("flipped signature accepted")
	}

	other := makeIdentity(t)
	if x3dh.VerifySignedPreKey(other.EdPub, spk.Public, spk.Signature) {
		t.Fatal("signature accepted under a different identity")
	}
	if x3dh.VerifySignedPreKey(bob.EdPub, spk.Public, spk.Signature[:10]) {
		t.Fatal("truncated signature accepted")
	}
	if x3dh.VerifySignedPreKey(bob.EdPub, spk.Public, nil) {
		t.Fatal("empty signature accepted")
	}
}

func TestInitiatorRoot_RejectsBadSignature(t *testing.T) {
	alice := makeIdentity(t)
	bob := makeIdentity(t)
	spk := makeSignedPreKey(t, bob)
	spk.Signature[5] ^= 0x80

	_, err := x3dh.InitiatorRoot(alice, domain.PreKeyBundle{
		IdentityKey:  bob.Public(),
		SignedPreKey: spk.PublicHalf(),
	})
	if !failure.Has(err, failure.ReasonSignatureInvalid) {
		t.Fatalf("want SIGNATURE_INVALID, got %v", err)
	}
}

func TestInitiatorAndResponderRoot_NoOneTimePreKey(t *testing.T) {
	alice := makeIdentity(t)
	bob := makeIdentity(t)
	spk := makeSignedPreKey(t, bob)

	bundle := domain.PreKeyBundle{
		RegistrationID: 42,
		IdentityKey:    bob.Public(),
		SignedPreKey:   spk.PublicHalf(),
	}

	res, err := x3dh.InitiatorRoot(alice, bundle)
	if err != nil {
		t.Fatalf("InitiatorRoot: %v", err)
	}
	if res.SignedPreKeyID != 7 {
		t.Fatalf("want signed prekey id 7, got %d", res.SignedPreKeyID)
	}
	if res.OneTimePreKeyID != nil {
		t.Fatalf("want no one-time prekey id, got %d", *res.OneTimePreKeyID)
	}

	pm := domain.PreKeyMessage{
		InitiatorIdentityKey: alice.XPub,
		EphemeralKey:         res.EphemeralKey,
		SignedPreKeyID:       res.SignedPreKeyID,
	}
	responder, err := x3dh.ResponderRoot(bob, spk.Private, nil, pm)
	if err != nil {
		t.Fatalf("ResponderRoot: %v", err)
	}
	if !bytes.Equal(res.RootKey, responder) {
		t.Fatal("root keys differ (no OPK)")
	}
}

func TestInitiatorAndResponderRoot_WithOneTimePreKey(t *testing.T) {
	alice := makeIdentity(t)
	bob := makeIdentity(t)
	spk := makeSignedPreKey(t, bob)

	opkPriv, opkPub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519 (opk): %v", err)
	}
	bundle := domain.PreKeyBundle{
		IdentityKey:   bob.Public(),
		SignedPreKey:  spk.PublicHalf(),
		OneTimePreKey: &domain.OneTimePreKeyPublic{KeyID: 3, Public: opkPub},
	}

	res, err := x3dh.InitiatorRoot(alice, bundle)
	if err != nil {
		t.Fatalf("InitiatorRoot: %v", err)
	}
	if res.OneTimePreKeyID == nil || *res.OneTimePreKeyID != 3 {
		t.Fatalf("unexpected one-time prekey id %v", res.OneTimePreKeyID)
	}

	pm := domain.PreKeyMessage{
		InitiatorIdentityKey: alice.XPub,
		EphemeralKey:         res.EphemeralKey,
		SignedPreKeyID:       res.SignedPreKeyID,
		OneTimePreKeyID:      res.OneTimePreKeyID,
	}
	responder, err := x3dh.ResponderRoot(bob, spk.Private, &opkPriv, pm)
	if err != nil {
		t.Fatalf("ResponderRoot: %v", err)
	}
	if !bytes.Equal(res.RootKey, responder) {
		t.Fatal("root keys differ (with OPK)")
	}

	// Dropping the OPK on the responder side must not silently succeed.
	if _, err := x3dh.ResponderRoot(bob, spk.Private, nil, pm); err == nil {
		t.Fatal("responder accepted a message naming an OPK without it")
	}
}
