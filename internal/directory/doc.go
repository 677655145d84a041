// Package directory is the server side of key management: accounts, device
// registrations, the one-time prekey pool of every device and the custody
// copies of device private keys.
//
// Two stores implement domain.DirectoryStore:
//   - PostgresStore, on bun with the pgdriver. One-time prekeys are claimed
//     with SELECT ... FOR UPDATE SKIP LOCKED inside a transaction so
//     concurrent fetches never hand out the same key.
//   - MemoryStore, a mutex-guarded store for tests and single-process use.
//
// A device moves through pending, keys_uploaded, custody_stored and active.
// Every transition is a conditional update on the current state, so a
// request racing another one for the same device fails with
// FAILED_PRECONDITION instead of skipping a step. Only active devices are
// visible to peers.
//
// Allocator wraps a store for bundle fetches and logs when a device's pool
// drops below its low-water mark.
package directory
