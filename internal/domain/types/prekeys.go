package types

import "time"

// RegistrationID is the small per-device id carried in protocol metadata.
type RegistrationID uint32

// SignedPreKeyID identifies a signed prekey. It is chosen at random.
type SignedPreKeyID uint32

// OneTimePreKeyID identifies a one-time prekey, sequential within a device.
type OneTimePreKeyID uint32

// SignedPreKeyRecord is the full signed prekey kept on the device.
type SignedPreKeyRecord struct {
	KeyID     SignedPreKeyID `json:"key_id"`
	Public    X25519Public   `json:"public"`
	Private   X25519Private  `json:"private"`
	Signature Bytes          `json:"signature"`
	Timestamp time.Time      `json:"timestamp"`
}

// PublicHalf strips the private key.
func (r SignedPreKeyRecord) PublicHalf() SignedPreKeyPublic {
	return SignedPreKeyPublic{KeyID: r.KeyID, Public: r.Public, Signature: r.Signature.Clone()}
}

// SignedPreKeyPublic is what peers receive: public key plus signature.
type SignedPreKeyPublic struct {
	KeyID     SignedPreKeyID `json:"keyId"`
	Public    X25519Public   `json:"publicKey"`
	Signature Bytes          `json:"signature"`
}

// OneTimePreKeyRecord is a one-time prekey kept on the device.
type OneTimePreKeyRecord struct {
	KeyID   OneTimePreKeyID `json:"key_id"`
	Public  X25519Public    `json:"public"`
	Private X25519Private   `json:"private"`
}

// PublicHalf strips the private key.
func (r OneTimePreKeyRecord) PublicHalf() OneTimePreKeyPublic {
	return OneTimePreKeyPublic{KeyID: r.KeyID, Public: r.Public}
}

// OneTimePreKeyPublic is the uploaded half of a one-time prekey.
type OneTimePreKeyPublic struct {
	KeyID  OneTimePreKeyID `json:"keyId"`
	Public X25519Public    `json:"publicKey"`
}

// DeviceBundle is everything the generator produces for a new device.
type DeviceBundle struct {
	Identity       IdentityKeyPair
	RegistrationID RegistrationID
	SignedPreKey   SignedPreKeyRecord
	OneTimePreKeys []OneTimePreKeyRecord
}

// OneTimePublics returns the public halves of all one-time prekeys.
func (b DeviceBundle) OneTimePublics() []OneTimePreKeyPublic {
	out := make([]OneTimePreKeyPublic, 0, len(b.OneTimePreKeys))
	for _, k := range b.OneTimePreKeys {
		out = append(out, k.PublicHalf())
	}
	return out
}

// PreKeyBundle is the agreement bundle a peer fetches for one device.
// OneTimePreKey is nil when the device's pool was exhausted.
type PreKeyBundle struct {
	UserID         UserID               `json:"userId"`
	DeviceID       DeviceID             `json:"deviceId"`
	RegistrationID RegistrationID       `json:"registrationId"`
	IdentityKey    IdentityPublic       `json:"identityKey"`
	SignedPreKey   SignedPreKeyPublic   `json:"signedPreKey"`
	OneTimePreKey  *OneTimePreKeyPublic `json:"preKey,omitempty"`
}

// Address returns the bundle's userId:deviceId address.
func (b PreKeyBundle) Address() Address { return Address{UserID: b.UserID, DeviceID: b.DeviceID} }

// PreKeyMessage carries the X3DH parameters in an initiator's first message.
type PreKeyMessage struct {
	RegistrationID       RegistrationID   `json:"registrationId"`
	InitiatorIdentityKey X25519Public     `json:"initiatorIdentityKey"`
	EphemeralKey         X25519Public     `json:"ephemeralKey"`
	SignedPreKeyID       SignedPreKeyID   `json:"signedPreKeyId"`
	OneTimePreKeyID      *OneTimePreKeyID `json:"preKeyId,omitempty"`
}
