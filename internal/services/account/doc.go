// Package account runs signup, login and device registration against the
// key directory.
//
// Registration generates a device bundle, keeps the private halves in the
// local vault, seals a custody copy under the password-derived encryption
// key and then walks the server through pending, keys_uploaded,
// custody_stored and active. The state reached is recorded in the vault
// profile after each step so an interrupted registration can be resumed.
package account
