package types

import "time"

// Session holds the X3DH-derived root key and metadata for one remote device.
//
// The ratchet built on top of RootKey is owned by the messaging layer; this
// record is what gets persisted per userId:deviceId and never shared across
// devices.
type Session struct {
	Peer            Address          `json:"peer"`
	PeerIdentity    IdentityPublic   `json:"peer_identity"`
	RootKey         Bytes            `json:"root_key"`
	Initiator       bool             `json:"initiator"`
	SignedPreKeyID  SignedPreKeyID   `json:"signed_pre_key_id"`
	OneTimePreKeyID *OneTimePreKeyID `json:"one_time_pre_key_id,omitempty"`
	EphemeralKey    X25519Public     `json:"ephemeral_key"`
	CreatedAt       time.Time        `json:"created_at"`
}

// Degraded reports whether the agreement ran without a one-time prekey.
func (s Session) Degraded() bool { return s.OneTimePreKeyID == nil }
