// Package app wires dependencies for both binaries.
//
// Open builds the client side from config: the vault on its chosen backend
// (optionally sealed with the account password), the directory client and
// the account and session services. NewDirectoryServer builds the key
// directory with its chosen store.
package app
