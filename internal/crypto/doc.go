// Package crypto exposes the minimal primitives used by cipherkeep.
//
// Contents
//
//   - X25519 key generation, clamping and Diffie–Hellman (GenerateX25519,
//     PublicX25519, DH)
//   - Ed25519 key generation, signing and verification (GenerateEd25519,
//     SignEd25519, VerifyEd25519)
//   - Short public-key fingerprints and safety numbers for display
//     (Fingerprint, IdentityFingerprint, SafetyNumber)
//   - Uniform random integers for key and registration ids (RandomUint32)
//
// # Notes
//
// All functions return fixed-size array types defined in internal/domain to
// avoid accidental reallocations. The *From variants take an explicit
// entropy source so generators can be driven deterministically in tests.
package crypto
