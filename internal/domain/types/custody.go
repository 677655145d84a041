package types

import "time"

// SealedField is one AES-GCM ciphertext with its IV.
type SealedField struct {
	Ciphertext Bytes `json:"ciphertext"`
	IV         Bytes `json:"iv"`
}

// SealedOneTimePreKey is a custodied one-time prekey private half.
type SealedOneTimePreKey struct {
	KeyID OneTimePreKeyID `json:"keyId"`
	Key   SealedField     `json:"key"`
}

// EncryptedPrivateKeyBundle is the custody copy of a device's private keys.
//
// Every private half is sealed independently under the password-derived
// encryption key. Signatures, ids and timestamps are public already and are
// stored in the clear so the records can be rebuilt on recovery. The bundle
// is written once and never mutated.
type EncryptedPrivateKeyBundle struct {
	UserID                UserID                `json:"userId"`
	DeviceID              DeviceID              `json:"deviceId"`
	RegistrationID        RegistrationID        `json:"registrationId"`
	IdentityKey           SealedField           `json:"identityKey"`
	SignedPreKeyID        SignedPreKeyID        `json:"signedPreKeyId"`
	SignedPreKey          SealedField           `json:"signedPreKey"`
	SignedPreKeySignature Bytes                 `json:"signedPreKeySignature"`
	SignedPreKeyTimestamp time.Time             `json:"signedPreKeyTimestamp"`
	OneTimePreKeys        []SealedOneTimePreKey `json:"oneTimePreKeys"`
	CreatedAt             time.Time             `json:"createdAt"`
}

// Owner returns the device address the bundle belongs to.
func (b EncryptedPrivateKeyBundle) Owner() Address {
	return Address{UserID: b.UserID, DeviceID: b.DeviceID}
}
