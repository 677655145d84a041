// Package api holds the JSON request and response bodies of the key
// directory HTTP interface, shared by the server and the client. Binary
// fields are standard padded base64.
package api
