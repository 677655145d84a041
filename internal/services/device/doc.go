// Package device generates the key material of a new device.
//
// A generated bundle holds:
//   - the long-term identity (X25519 for agreement, Ed25519 for signing)
//   - a 14-bit non-zero registration id
//   - one signed prekey with a random 31-bit key id
//   - a batch of one-time prekeys with sequential key ids starting at 1
//
// The generator persists nothing. Callers verify and store the bundle
// themselves so a failure half-way never leaves partial state behind.
package device
