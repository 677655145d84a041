// Package remote is the HTTP client for the key directory.
//
// HTTP implements domain.Directory. Requests are JSON and carry the bearer
// token once Authenticate or SetCredentials has run. A transport failure,
// including a timeout or cancelled context, becomes NETWORK_ERROR; a
// non-2xx response keeps the failure reason the server sent in its error
// body.
package remote
