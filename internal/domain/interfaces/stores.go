package interfaces

import (
	"context"

	domaintypes "cipherkeep/internal/domain/types"
)

// IdentityStore holds this device's long-term identity and registration id.
type IdentityStore interface {
	SaveIdentityKeyPair(id domaintypes.IdentityKeyPair) error
	IdentityKeyPair() (domaintypes.IdentityKeyPair, bool, error)
	SaveRegistrationID(id domaintypes.RegistrationID) error
	RegistrationID() (domaintypes.RegistrationID, bool, error)
}

// PreKeyStore holds this device's signed and one-time prekey records.
type PreKeyStore interface {
	StoreSignedPreKey(rec domaintypes.SignedPreKeyRecord) error
	LoadSignedPreKey(id domaintypes.SignedPreKeyID) (domaintypes.SignedPreKeyRecord, bool, error)
	RemoveSignedPreKey(id domaintypes.SignedPreKeyID) error
	CurrentSignedPreKey() (domaintypes.SignedPreKeyRecord, bool, error)

	StorePreKeys(recs []domaintypes.OneTimePreKeyRecord) error
	LoadPreKey(id domaintypes.OneTimePreKeyID) (domaintypes.OneTimePreKeyRecord, bool, error)
	RemovePreKey(id domaintypes.OneTimePreKeyID) error
	MaxPreKeyID() domaintypes.OneTimePreKeyID
}

// SessionStore keeps per-peer session records keyed by userId:deviceId.
type SessionStore interface {
	StoreSession(s domaintypes.Session) error
	LoadSession(peer domaintypes.Address) (domaintypes.Session, bool, error)
	RemoveSession(peer domaintypes.Address) error
	Sessions() ([]domaintypes.Session, error)
}

// TrustStore pins peer identity keys.
type TrustStore interface {
	// CheckTrusted pins id on first sight of peer and otherwise reports
	// whether id matches the pinned key.
	CheckTrusted(peer domaintypes.Address, id domaintypes.IdentityPublic) (bool, error)
	// TrustIdentity replaces the pinned key after explicit verification.
	TrustIdentity(peer domaintypes.Address, id domaintypes.IdentityPublic) error
	PinnedIdentity(peer domaintypes.Address) (domaintypes.IdentityPublic, bool, error)
}

// ProfileStore keeps the local account profile.
type ProfileStore interface {
	SaveProfile(p domaintypes.Profile) error
	Profile() (domaintypes.Profile, bool, error)
}

// KeyVault is the full device-local key store.
type KeyVault interface {
	IdentityStore
	PreKeyStore
	SessionStore
	TrustStore
	ProfileStore

	// Flush blocks until queued writes reached the backend.
	Flush(ctx context.Context) error
	// Reset drops all device key material (identity, prekeys, sessions,
	// profile) while keeping pinned peer identities.
	Reset() error
}

// AccountStore persists accounts on the key directory.
type AccountStore interface {
	CreateAccount(ctx context.Context, acct *domaintypes.Account) error
	AccountByUsername(ctx context.Context, username domaintypes.Username) (domaintypes.Account, error)
	AccountByID(ctx context.Context, id domaintypes.UserID) (domaintypes.Account, error)
}

// DeviceStore persists device registrations and their state machine.
type DeviceStore interface {
	InsertDeviceRegistration(ctx context.Context, reg domaintypes.DeviceRegistration) error
	Device(ctx context.Context, addr domaintypes.Address) (domaintypes.DeviceRegistration, error)
	ListDevices(ctx context.Context, userID domaintypes.UserID) ([]domaintypes.DeviceRegistration, error)
	// TransitionDevice moves addr from -> to atomically; any other current
	// state is a FAILED_PRECONDITION.
	TransitionDevice(ctx context.Context, addr domaintypes.Address, from, to domaintypes.RegistrationState) error
}

// OneTimePreKeyPool is a device's server-side pool of one-time prekeys.
type OneTimePreKeyPool interface {
	InsertOneTimePreKeys(ctx context.Context, addr domaintypes.Address, batch []domaintypes.OneTimePreKeyPublic) error
	// ConsumeOneOneTimePreKey marks the smallest available key consumed and
	// returns it. ok is false when the pool is exhausted.
	ConsumeOneOneTimePreKey(ctx context.Context, addr domaintypes.Address) (key domaintypes.OneTimePreKeyPublic, ok bool, err error)
	CountAvailableOneTimePreKeys(ctx context.Context, addr domaintypes.Address) (int, error)
	// MaxOneTimePreKeyID returns the highest key id ever uploaded for addr,
	// consumed or not, and 0 when none was.
	MaxOneTimePreKeyID(ctx context.Context, addr domaintypes.Address) (domaintypes.OneTimePreKeyID, error)
}

// CustodyStore persists write-once encrypted private key bundles.
type CustodyStore interface {
	StoreEncryptedPrivateKeys(ctx context.Context, bundle domaintypes.EncryptedPrivateKeyBundle) error
	// LoadEncryptedPrivateKeys returns the user's bundles, newest first.
	LoadEncryptedPrivateKeys(ctx context.Context, userID domaintypes.UserID) ([]domaintypes.EncryptedPrivateKeyBundle, error)
}

// DirectoryStore is everything the key directory server persists.
type DirectoryStore interface {
	AccountStore
	DeviceStore
	OneTimePreKeyPool
	CustodyStore

	// FetchRegistrationBundle returns one bundle per active device of
	// userID, each consuming at most one one-time prekey.
	FetchRegistrationBundle(ctx context.Context, userID domaintypes.UserID) ([]domaintypes.PreKeyBundle, error)
}
