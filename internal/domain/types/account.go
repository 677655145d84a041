package types

import "time"

// Credentials is what a successful verifier login yields.
type Credentials struct {
	UserID    UserID    `json:"userId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Account is the server-side record of a user.
//
// VerifierHash is a bcrypt hash of the password-derived verifier key; the
// verifier itself is never stored.
type Account struct {
	ID           UserID    `json:"id"`
	Username     Username  `json:"username"`
	Salt         Bytes     `json:"salt"`
	VerifierHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Profile is the device-local record of who we are on which server and how
// far registration of this device got.
type Profile struct {
	ServerURL string            `json:"server_url"`
	Username  Username          `json:"username"`
	UserID    UserID            `json:"user_id"`
	DeviceID  DeviceID          `json:"device_id"`
	Salt      Bytes             `json:"salt"`
	State     RegistrationState `json:"state"`
	Token     string            `json:"token,omitempty"`
	TokenExp  time.Time         `json:"token_exp,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// TokenValid reports whether the cached access token is usable at now.
func (p Profile) TokenValid(now time.Time) bool {
	return p.Token != "" && now.Add(30*time.Second).Before(p.TokenExp)
}

// Address returns our own device address.
func (p Profile) Address() Address { return Address{UserID: p.UserID, DeviceID: p.DeviceID} }
