// Package vault is the device-local key store.
//
// A Vault keeps every value in an in-memory index guarded by a RWMutex and
// writes through to a Backend in the background. Writes are applied to the
// index immediately and handed to a single worker in the order they were
// made, so the backend never sees them reordered. Flush waits for the
// worker to drain and reports any backend failure since the previous
// flush. Open hydrates the index from the backend before returning; there
// is no lazy loading.
//
// Values live in named collections (identity, registration, signed and
// one-time prekeys, sessions, trusted identities, profile). Backends store
// each collection separately so no key ever needs to be parsed to find its
// collection.
//
// With WithSealer every value is sealed before it reaches the backend,
// using "collection/key" as additional data.
package vault
