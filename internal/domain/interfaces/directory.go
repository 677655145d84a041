package interfaces

//go:generate mockgen -destination=../mocks/mock_directory.go -package=mocks cipherkeep/internal/domain/interfaces Directory

import (
	"context"

	domaintypes "cipherkeep/internal/domain/types"
)

// Directory is the client's view of the key directory server.
//
// Calls after Authenticate (or SetCredentials) carry the access token.
// Transport failures are NETWORK_ERROR; server rejections keep the reason
// the server reported.
type Directory interface {
	CreateAccount(
		ctx context.Context,
		username domaintypes.Username,
		salt domaintypes.Bytes,
		verifier domaintypes.Bytes,
	) (domaintypes.UserID, error)
	FetchSalt(ctx context.Context, username domaintypes.Username) (domaintypes.Bytes, error)
	Authenticate(
		ctx context.Context,
		username domaintypes.Username,
		verifier domaintypes.Bytes,
	) (domaintypes.Credentials, error)
	SetCredentials(creds domaintypes.Credentials)

	RegisterDevice(ctx context.Context, upload domaintypes.DeviceUpload) (domaintypes.DeviceStatus, error)
	UploadOneTimePreKeys(
		ctx context.Context,
		deviceID domaintypes.DeviceID,
		batch []domaintypes.OneTimePreKeyPublic,
	) (domaintypes.DeviceStatus, error)
	StoreEncryptedPrivateKeys(ctx context.Context, bundle domaintypes.EncryptedPrivateKeyBundle) (domaintypes.DeviceStatus, error)
	ActivateDevice(ctx context.Context, deviceID domaintypes.DeviceID) (domaintypes.DeviceStatus, error)
	DeviceStatus(ctx context.Context, deviceID domaintypes.DeviceID) (domaintypes.DeviceStatus, error)

	LoadEncryptedPrivateKeys(ctx context.Context) ([]domaintypes.EncryptedPrivateKeyBundle, error)
	FetchRegistrationBundle(ctx context.Context, username domaintypes.Username) ([]domaintypes.PreKeyBundle, error)
}
