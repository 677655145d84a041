package crypto_test

import (
	"bytes"
	"crypto/rand"
	"testing"

	"cipherkeep/internal/crypto"
	"cipherkeep/internal/domain"
)

func TestDH_Agrees(t *testing.T) {
	aPriv, aPub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	bPriv, bPub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	ab, err := crypto.DH(aPriv, bPub)
	if err != nil {
		t.Fatalf("DH: %v", err)
	}
	ba, err := crypto.DH(bPriv, aPub)
	if err != nil {
		t.Fatalf("DH: %v", err)
	}
	if ab != ba {
		t.Fatal("shared secrets differ")
	}
	pub, err := crypto.PublicX25519(aPriv)
	if err != nil || pub != aPub {
		t.Fatalf("PublicX25519 mismatch: %v", err)
	}
}

func TestSignVerify(t *testing.T) {
	priv, pub, err := crypto.GenerateEd25519()
	if err != nil {
		t.Fatalf("GenerateEd25519: %v", err)
	}
	if crypto.PublicEd25519(priv) != pub {
		t.Fatal("PublicEd25519 mismatch")
	}
	sig := crypto.SignEd25519(priv, []byte("msg"))
	if !crypto.VerifyEd25519(pub, []byte("msg"), sig) {
		t.Fatal("valid signature rejected")
	}
	sig[0] ^= 1
	if crypto.VerifyEd25519(pub, []byte("msg"), sig) {
		t.Fatal("corrupted signature accepted")
	}
}

func TestSafetyNumber_Symmetric(t *testing.T) {
	a := domain.IdentityPublic{DH: domain.X25519Public{1}, Signing: domain.Ed25519Public{2}}
	b := domain.IdentityPublic{DH: domain.X25519Public{3}, Signing: domain.Ed25519Public{4}}

	if crypto.SafetyNumber(a, b) != crypto.SafetyNumber(b, a) {
		t.Fatal("safety number depends on argument order")
	}
	c := domain.IdentityPublic{DH: domain.X25519Public{5}, Signing: domain.Ed25519Public{4}}
	if crypto.SafetyNumber(a, b) == crypto.SafetyNumber(a, c) {
		t.Fatal("different identities share a safety number")
	}
}

func TestRandomUint32_Bounds(t *testing.T) {
	for i := 0; i < 1000; i++ {
		v, err := crypto.RandomUint32(rand.Reader, 1, 16380)
		if err != nil {
			t.Fatalf("RandomUint32: %v", err)
		}
		if v < 1 || v > 16380 {
			t.Fatalf("out of range: %d", v)
		}
	}
	v, err := crypto.RandomUint32(bytes.NewReader([]byte{0, 0, 0, 7}), 5, 5)
	if err != nil || v != 5 {
		t.Fatalf("single-value range: %d %v", v, err)
	}
	if _, err := crypto.RandomUint32(bytes.NewReader(nil), 0, 10); err == nil {
		t.Fatal("expected error from exhausted reader")
	}
}
