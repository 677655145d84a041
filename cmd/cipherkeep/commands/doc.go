// Package commands defines the cipherkeep CLI.
//
// Commands
//
//   - signup       Create an account and register this device
//   - login        Recover this account's device keys from custody
//   - register     Replace this device's keys with a new device identity
//   - resume       Finish an interrupted device registration
//   - status       Show this device's registration state and prekey pool
//   - replenish    Upload more one-time prekeys when the pool runs low
//   - fingerprint  Print this device's identity fingerprint
//   - start-chat   Set up sessions with every device of a peer
//   - accept       Accept a session started by a peer
//   - trust        Pin a peer device's new identity after verification
//
// The password is read from CIPHERKEEP_PASSWORD when set, otherwise from
// the terminal without echo.
package commands
