// Package x3dh implements the signed prekey check and the X3DH key agreement
// that turns a fetched prekey bundle into a session root key.
//
// # Overview
//
// A bundle carries the responder's identity (X25519 and Ed25519 halves), a
// signed prekey with its Ed25519 signature and, when the pool was not
// exhausted, one one-time prekey.
//
// # Flows
//
// Initiator:
//  1. Verify the signed prekey signature (SIGNATURE_INVALID otherwise).
//  2. Generate an ephemeral X25519 key pair.
//  3. Compute IKa·SPKb, EKa·IKb, EKa·SPKb and, if present, EKa·OPKb.
//  4. HKDF-SHA256 over the transcript to a 32-byte root key.
//
// Responder:
//  1. Receive the PreKeyMessage.
//  2. Look up the signed prekey and, if named, the one-time prekey.
//  3. Compute the mirrored DH set and derive the same root key.
//
// An agreement without a one-time prekey is still valid but has weaker
// forward secrecy; the session records it as degraded.
package x3dh
