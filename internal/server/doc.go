// Package server exposes the key directory over HTTP with gin.
//
// Accounts are created with a salt and a password-derived verifier; the
// server only keeps a bcrypt hash of the verifier. Logging in with the
// verifier yields an HS256 bearer token whose subject is the user id.
// Authenticated clients register devices, upload one-time prekeys, store
// their custody bundle and activate the device, in that order. Peers fetch
// prekey bundles per user or per device; those routes are rate limited per
// requester and target.
//
// Every error response is {"code": REASON, "message": "..."} with the
// status derived from the failure reason.
package server
