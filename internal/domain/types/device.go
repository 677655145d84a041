package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UserID identifies an account on the key directory.
type UserID = uuid.UUID

// DeviceID identifies one device of an account.
type DeviceID = uuid.UUID

// Address is the userId:deviceId unit used for delivery and session lookup.
type Address struct {
	UserID   UserID   `json:"userId"`
	DeviceID DeviceID `json:"deviceId"`
}

// String returns "userId:deviceId".
func (a Address) String() string { return a.UserID.String() + ":" + a.DeviceID.String() }

// ParseAddress parses the String form.
func ParseAddress(s string) (Address, error) {
	if len(s) != 73 || s[36] != ':' {
		return Address{}, fmt.Errorf("invalid address %q", s)
	}
	u, err := uuid.Parse(s[:36])
	if err != nil {
		return Address{}, fmt.Errorf("invalid address user: %w", err)
	}
	d, err := uuid.Parse(s[37:])
	if err != nil {
		return Address{}, fmt.Errorf("invalid address device: %w", err)
	}
	return Address{UserID: u, DeviceID: d}, nil
}

// RegistrationState tracks how far a device got through registration.
type RegistrationState string

const (
	StatePending       RegistrationState = "pending"
	StateKeysUploaded  RegistrationState = "keys_uploaded"
	StateCustodyStored RegistrationState = "custody_stored"
	StateActive        RegistrationState = "active"
)

// Next returns the state that follows s, or false when s is terminal or unknown.
func (s RegistrationState) Next() (RegistrationState, bool) {
	switch s {
	case StatePending:
		return StateKeysUploaded, true
	case StateKeysUploaded:
		return StateCustodyStored, true
	case StateCustodyStored:
		return StateActive, true
	}
	return "", false
}

// Valid reports whether s is one of the known states.
func (s RegistrationState) Valid() bool {
	switch s {
	case StatePending, StateKeysUploaded, StateCustodyStored, StateActive:
		return true
	}
	return false
}

// CanTransition reports whether from -> to is a single legal step.
func CanTransition(from, to RegistrationState) bool {
	next, ok := from.Next()
	return ok && next == to
}

// DeviceRegistration is the server's public record of one device.
type DeviceRegistration struct {
	UserID         UserID             `json:"userId"`
	DeviceID       DeviceID           `json:"deviceId"`
	RegistrationID RegistrationID     `json:"registrationId"`
	IdentityKey    IdentityPublic     `json:"identityKey"`
	SignedPreKey   SignedPreKeyPublic `json:"signedPreKey"`
	State          RegistrationState  `json:"state"`
	CreatedAt      time.Time          `json:"createdAt"`
}

// Address returns the registration's address.
func (d DeviceRegistration) Address() Address {
	return Address{UserID: d.UserID, DeviceID: d.DeviceID}
}

// DeviceUpload is the public registration a device submits first.
type DeviceUpload struct {
	RegistrationID RegistrationID     `json:"registrationId"`
	IdentityKey    IdentityPublic     `json:"identityKey"`
	SignedPreKey   SignedPreKeyPublic `json:"signedPreKey"`
}

// DeviceStatus is the server's view of a device's progress and pool size.
// MaxPreKeyID is the highest one-time prekey id ever uploaded for the
// device; new batches start above it.
type DeviceStatus struct {
	DeviceID         DeviceID          `json:"deviceId"`
	State            RegistrationState `json:"state"`
	AvailablePreKeys int               `json:"availablePreKeys"`
	MaxPreKeyID      OneTimePreKeyID   `json:"maxPreKeyId"`
}
