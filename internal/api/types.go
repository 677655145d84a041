package api

import (
	"time"

	"cipherkeep/internal/domain"
)

// Route paths.
const (
	PathAccounts      = "/v1/accounts"
	PathSessions      = "/v1/sessions"
	PathDevices       = "/v1/devices"
	PathCustody       = "/v1/custody"
	PathHealth        = "/healthz"
	PathSaltFmt       = "/v1/accounts/%s/salt"
	PathDeviceFmt     = "/v1/devices/%s"
	PathPreKeysFmt    = "/v1/devices/%s/prekeys"
	PathCustodyFmt    = "/v1/devices/%s/custody"
	PathActivateFmt   = "/v1/devices/%s/activate"
	PathBundlesFmt    = "/v1/users/%s/bundles"
	PathDeviceBundFmt = "/v1/users/%s/devices/%s/bundle"
)

type CreateAccountRequest struct {
	Username domain.Username `json:"username"`
	Salt     domain.Bytes    `json:"salt"`
	Verifier domain.Bytes    `json:"verifier"`
}

type CreateAccountResponse struct {
	UserID domain.UserID `json:"userId"`
}

type SaltResponse struct {
	Salt domain.Bytes `json:"salt"`
}

type LoginRequest struct {
	Username domain.Username `json:"username"`
	Verifier domain.Bytes    `json:"verifier"`
}

type LoginResponse struct {
	UserID    domain.UserID `json:"userId"`
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
}

type UploadPreKeysRequest struct {
	PreKeys []domain.OneTimePreKeyPublic `json:"prekeys"`
}

type UploadPreKeysResponse struct {
	Uploaded int `json:"uploaded"`
	domain.DeviceStatus
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
