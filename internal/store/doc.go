// Package store provides the durable backends and at-rest sealing for the
// device key vault.
//
// Two backends implement vault.Backend:
//   - FileBackend keeps one JSON file per collection under the home
//     directory, replaced atomically on every write.
//   - SQLiteBackend keeps one table per collection in a single SQLite file
//     through gorm.
//
// PassphraseSealer implements vault.Sealer with a scrypt-derived key and
// XChaCha20-Poly1305. Each sealed value is a small self-describing JSON
// blob carrying its salt, KDF parameters and nonce, so parameters can be
// raised later without breaking existing vaults.
package store
