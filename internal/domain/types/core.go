package types

import "regexp"

// Username is the account handle used to look up a user's devices.
type Username string

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,64}$`)

// String returns the string form of the username.
func (u Username) String() string { return string(u) }

// Valid reports whether u is 3 to 64 letters, digits, '_', '.' or '-'.
func (u Username) Valid() bool { return usernamePattern.MatchString(string(u)) }

// Fingerprint is a short identifier for public keys presented to users.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }
