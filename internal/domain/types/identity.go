package types

// IdentityKeyPair holds a device's long-term X25519 and Ed25519 keys.
//
// The X25519 half takes part in X3DH; the Ed25519 half signs the signed
// prekey. Both are created once per device and never rotated.
type IdentityKeyPair struct {
	XPub   X25519Public   `json:"xpub"`
	XPriv  X25519Private  `json:"xpriv"`
	EdPub  Ed25519Public  `json:"edpub"`
	EdPriv Ed25519Private `json:"edpriv"`
}

// Public returns the publishable half of the identity.
func (id IdentityKeyPair) Public() IdentityPublic {
	return IdentityPublic{DH: id.XPub, Signing: id.EdPub}
}

// IdentityPublic is the published identity of a device.
type IdentityPublic struct {
	DH      X25519Public  `json:"dh"`
	Signing Ed25519Public `json:"signing"`
}

// Equal reports whether both halves match.
func (p IdentityPublic) Equal(o IdentityPublic) bool {
	return p.DH == o.DH && p.Signing == o.Signing
}

// Concat returns DH || Signing, the canonical byte form used for fingerprints.
func (p IdentityPublic) Concat() []byte {
	out := make([]byte, 0, 64)
	out = append(out, p.DH[:]...)
	return append(out, p.Signing[:]...)
}
