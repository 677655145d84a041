// Package custody seals a device's private keys for storage on the server
// and opens them again at login.
//
// Each private half (identity, signed prekey, every one-time prekey) is
// sealed with AES-256-GCM under the password-derived encryption key with
// its own random 12-byte IV. The bundle-level helpers bind every field to
// its owner address and slot through the GCM additional data, so fields
// cannot be swapped between slots or devices without failing to open.
//
// # Errors
//
// Any authentication failure is DECRYPTION_FAILED. Callers must show it as
// "wrong password or cannot decrypt" and never retry on their own.
package custody
