package domain

import (
	interfaces "cipherkeep/internal/domain/interfaces"
	types "cipherkeep/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	Bytes                     = types.Bytes
	Username                  = types.Username
	Fingerprint               = types.Fingerprint
	UserID                    = types.UserID
	DeviceID                  = types.DeviceID
	Address                   = types.Address
	RegistrationID            = types.RegistrationID
	RegistrationState         = types.RegistrationState
	SignedPreKeyID            = types.SignedPreKeyID
	OneTimePreKeyID           = types.OneTimePreKeyID
	IdentityKeyPair           = types.IdentityKeyPair
	IdentityPublic            = types.IdentityPublic
	SignedPreKeyRecord        = types.SignedPreKeyRecord
	SignedPreKeyPublic        = types.SignedPreKeyPublic
	OneTimePreKeyRecord       = types.OneTimePreKeyRecord
	OneTimePreKeyPublic       = types.OneTimePreKeyPublic
	DeviceBundle              = types.DeviceBundle
	PreKeyBundle              = types.PreKeyBundle
	PreKeyMessage             = types.PreKeyMessage
	DeviceRegistration        = types.DeviceRegistration
	DeviceUpload              = types.DeviceUpload
	DeviceStatus              = types.DeviceStatus
	SealedField               = types.SealedField
	SealedOneTimePreKey       = types.SealedOneTimePreKey
	EncryptedPrivateKeyBundle = types.EncryptedPrivateKeyBundle
	Account                   = types.Account
	Credentials               = types.Credentials
	Profile                   = types.Profile
	Session                   = types.Session
	X25519Public              = types.X25519Public
	X25519Private             = types.X25519Private
	Ed25519Public             = types.Ed25519Public
	Ed25519Private            = types.Ed25519Private
)

// Registration states.
const (
	StatePending       = types.StatePending
	StateKeysUploaded  = types.StateKeysUploaded
	StateCustodyStored = types.StateCustodyStored
	StateActive        = types.StateActive
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	IdentityStore     = interfaces.IdentityStore
	PreKeyStore       = interfaces.PreKeyStore
	SessionStore      = interfaces.SessionStore
	TrustStore        = interfaces.TrustStore
	ProfileStore      = interfaces.ProfileStore
	KeyVault          = interfaces.KeyVault
	AccountStore      = interfaces.AccountStore
	DeviceStore       = interfaces.DeviceStore
	OneTimePreKeyPool = interfaces.OneTimePreKeyPool
	CustodyStore      = interfaces.CustodyStore
	DirectoryStore    = interfaces.DirectoryStore
	Directory         = interfaces.Directory
	AccountService    = interfaces.AccountService
	SessionService    = interfaces.SessionService
)

// ParseAddress parses a userId:deviceId string.
var ParseAddress = types.ParseAddress

// CanTransition reports whether from -> to is a single registration step.
var CanTransition = types.CanTransition
