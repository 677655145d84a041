package types

import (
	"encoding/base64"
	"fmt"
)

// Bytes is the single binary representation used for key material, IVs and
// ciphertexts. It is base64 (standard, padded) on the wire and at rest.
type Bytes []byte

// ParseBytes decodes a base64 string produced by Bytes.String.
func ParseBytes(s string) (Bytes, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return b, nil
}

// String returns the base64 form.
func (b Bytes) String() string { return base64.StdEncoding.EncodeToString(b) }

// Clone returns an independent copy.
func (b Bytes) Clone() Bytes {
	if b == nil {
		return nil
	}
	return append(Bytes(nil), b...)
}

// MarshalText implements encoding.TextMarshaler.
func (b Bytes) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *Bytes) UnmarshalText(text []byte) error {
	out, err := ParseBytes(string(text))
	if err != nil {
		return err
	}
	*b = out
	return nil
}

// X25519Public is a Curve25519 public key.
type X25519Public [32]byte

// Slice returns the key as a []byte.
func (p X25519Public) Slice() []byte { return p[:] }

// MarshalText encodes the key as base64.
func (p X25519Public) MarshalText() ([]byte, error) { return Bytes(p[:]).MarshalText() }

// UnmarshalText decodes a base64 key, rejecting wrong lengths.
func (p *X25519Public) UnmarshalText(text []byte) error { return decodeFixed(text, p[:]) }

// X25519Private is a Curve25519 private key.
type X25519Private [32]byte

// Slice returns the key as a []byte.
func (k X25519Private) Slice() []byte { return k[:] }

// MarshalText encodes the key as base64.
func (k X25519Private) MarshalText() ([]byte, error) { return Bytes(k[:]).MarshalText() }

// UnmarshalText decodes a base64 key, rejecting wrong lengths.
func (k *X25519Private) UnmarshalText(text []byte) error { return decodeFixed(text, k[:]) }

// Ed25519Public is an Ed25519 signing public key.
type Ed25519Public [32]byte

// Slice returns the key as a []byte.
func (p Ed25519Public) Slice() []byte { return p[:] }

// MarshalText encodes the key as base64.
func (p Ed25519Public) MarshalText() ([]byte, error) { return Bytes(p[:]).MarshalText() }

// UnmarshalText decodes a base64 key, rejecting wrong lengths.
func (p *Ed25519Public) UnmarshalText(text []byte) error { return decodeFixed(text, p[:]) }

// Ed25519Private is an Ed25519 signing private key (seed || public).
type Ed25519Private [64]byte

// Slice returns the key as a []byte.
func (k Ed25519Private) Slice() []byte { return k[:] }

// MarshalText encodes the key as base64.
func (k Ed25519Private) MarshalText() ([]byte, error) { return Bytes(k[:]).MarshalText() }

// UnmarshalText decodes a base64 key, rejecting wrong lengths.
func (k *Ed25519Private) UnmarshalText(text []byte) error { return decodeFixed(text, k[:]) }

func decodeFixed(text []byte, dst []byte) error {
	b, err := ParseBytes(string(text))
	if err != nil {
		return err
	}
	if len(b) != len(dst) {
		return fmt.Errorf("key length %d, want %d", len(b), len(dst))
	}
	copy(dst, b)
	return nil
}
