// Package envelope derives the password envelope: an encryption key for
// private-key custody and an independent verifier key for login.
//
// # Derivation
//
//	master   = Argon2id(password, salt, m=64MiB, t=3, p=1, 32 bytes)
//	enc      = HKDF-SHA256(master, salt, "E2E_PASSW_ENC")
//	verifier = HKDF-SHA256(master, salt, "E2E_PASSW_VERIFIER")
//
// The salt is 16 random bytes created at signup and stored with the
// account. Losing it makes the custody data unrecoverable.
//
// # Verifier storage
//
// The server keeps only bcrypt(verifier). The encryption key never leaves
// the client.
package envelope
