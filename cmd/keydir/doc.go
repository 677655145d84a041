// Package main runs the cipherkeep key directory.
//
// It stores account verifiers, device registrations, one-time prekeys and
// encrypted private-key custody bundles, and hands out prekey bundles to
// peers starting a session.
//
// HTTP API (all bodies JSON, all routes under /v1 except /healthz)
//
//	POST /accounts                              create an account
//	GET  /accounts/{username}/salt              password salt
//	POST /sessions                              log in, returns a bearer token
//	POST /devices                               register a device (pending)
//	GET  /devices/{deviceId}                    registration state and pool size
//	POST /devices/{deviceId}/prekeys            upload one-time prekeys
//	PUT  /devices/{deviceId}/custody            store encrypted private keys
//	POST /devices/{deviceId}/activate           publish the device
//	GET  /custody                               encrypted private keys of the caller
//	GET  /users/{username}/bundles              one bundle per active device
//	GET  /users/{username}/devices/{id}/bundle  bundle for one device
//
// Behaviour
//
//   - The store is in memory unless directory.store is "postgres".
//   - directory.mongo_uri moves custody bundles to MongoDB.
//   - Failures carry a stable code in {"code", "message"}.
//   - Bundle fetches are rate limited per caller and target user.
package main
