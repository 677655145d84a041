package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"cipherkeep/internal/api"
	"cipherkeep/internal/domain"
	"cipherkeep/internal/failure"
)

// DefaultTimeout bounds every request made with the default client.
const DefaultTimeout = 15 * time.Second

// HTTP talks to a key directory over HTTP.
type HTTP struct {
	Base string
	HTTP *http.Client

	mu    sync.RWMutex
	creds domain.Credentials
}

// NewHTTP returns a client for the directory at base.
func NewHTTP(base string) *HTTP {
	return &HTTP{
		Base: strings.TrimRight(base, "/"),
		HTTP: &http.Client{Timeout: DefaultTimeout},
	}
}

var _ domain.Directory = (*HTTP)(nil)

func (c *HTTP) CreateAccount(ctx context.Context, username domain.Username, salt, verifier domain.Bytes) (domain.UserID, error) {
	var out api.CreateAccountResponse
	in := api.CreateAccountRequest{Username: username, Salt: salt, Verifier: verifier}
	if err := c.do(ctx, http.MethodPost, api.PathAccounts, false, in, &out); err != nil {
		return domain.UserID{}, err
	}
	return out.UserID, nil
}

func (c *HTTP) FetchSalt(ctx context.Context, username domain.Username) (domain.Bytes, error) {
	var out api.SaltResponse
	path := fmt.Sprintf(api.PathSaltFmt, url.PathEscape(username.String()))
	if err := c.do(ctx, http.MethodGet, path, false, nil, &out); err != nil {
		return nil, err
	}
	return out.Salt, nil
}

// Authenticate logs in and keeps the returned token for later calls.
func (c *HTTP) Authenticate(ctx context.Context, username domain.Username, verifier domain.Bytes) (domain.Credentials, error) {
	var out api.LoginResponse
	in := api.LoginRequest{Username: username, Verifier: verifier}
	if err := c.do(ctx, http.MethodPost, api.PathSessions, false, in, &out); err != nil {
		return domain.Credentials{}, err
	}
	creds := domain.Credentials{UserID: out.UserID, Token: out.Token, ExpiresAt: out.ExpiresAt}
	c.SetCredentials(creds)
	return creds, nil
}

func (c *HTTP) SetCredentials(creds domain.Credentials) {
	c.mu.Lock()
	c.creds = creds
	c.mu.Unlock()
}

func (c *HTTP) RegisterDevice(ctx context.Context, up domain.DeviceUpload) (domain.DeviceStatus, error) {
	var out domain.DeviceStatus
	err := c.do(ctx, http.MethodPost, api.PathDevices, true, up, &out)
	return out, err
}

func (c *HTTP) UploadOneTimePreKeys(ctx context.Context, deviceID domain.DeviceID, batch []domain.OneTimePreKeyPublic) (domain.DeviceStatus, error) {
	var out api.UploadPreKeysResponse
	path := fmt.Sprintf(api.PathPreKeysFmt, deviceID)
	if err := c.do(ctx, http.MethodPost, path, true, api.UploadPreKeysRequest{PreKeys: batch}, &out); err != nil {
		return domain.DeviceStatus{}, err
	}
	return out.DeviceStatus, nil
}

func (c *HTTP) StoreEncryptedPrivateKeys(ctx context.Context, b domain.EncryptedPrivateKeyBundle) (domain.DeviceStatus, error) {
	var out domain.DeviceStatus
	err := c.do(ctx, http.MethodPut, fmt.Sprintf(api.PathCustodyFmt, b.DeviceID), true, b, &out)
	return out, err
}

func (c *HTTP) ActivateDevice(ctx context.Context, deviceID domain.DeviceID) (domain.DeviceStatus, error) {
	var out domain.DeviceStatus
	err := c.do(ctx, http.MethodPost, fmt.Sprintf(api.PathActivateFmt, deviceID), true, nil, &out)
	return out, err
}

func (c *HTTP) DeviceStatus(ctx context.Context, deviceID domain.DeviceID) (domain.DeviceStatus, error) {
	var out domain.DeviceStatus
	err := c.do(ctx, http.MethodGet, fmt.Sprintf(api.PathDeviceFmt, deviceID), true, nil, &out)
	return out, err
}

func (c *HTTP) LoadEncryptedPrivateKeys(ctx context.Context) ([]domain.EncryptedPrivateKeyBundle, error) {
	var out []domain.EncryptedPrivateKeyBundle
	err := c.do(ctx, http.MethodGet, api.PathCustody, true, nil, &out)
	return out, err
}

func (c *HTTP) FetchRegistrationBundle(ctx context.Context, username domain.Username) ([]domain.PreKeyBundle, error) {
	var out []domain.PreKeyBundle
	path := fmt.Sprintf(api.PathBundlesFmt, url.PathEscape(username.String()))
	err := c.do(ctx, http.MethodGet, path, true, nil, &out)
	return out, err
}

func (c *HTTP) do(ctx context.Context, method, path string, auth bool, in, out any) error {
	op := method + " " + path

	var body io.Reader
	if in != nil {
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(in); err != nil {
			return failure.Internal("encode "+op, err)
		}
		body = buf
	}
	req, err := http.NewRequestWithContext(ctx, method, c.Base+path, body)
	if err != nil {
		return failure.Internal("build "+op, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if auth {
		c.mu.RLock()
		token := c.creds.Token
		c.mu.RUnlock()
		if token == "" {
			return failure.New(failure.ReasonUnauthenticated, "not logged in")
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return failure.Network(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return decodeError(op, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return failure.Network(op, errors.Wrap(err, "decode response"))
	}
	return nil
}

// decodeError turns an error response into a failure carrying the server's
// reason. Bodies that are not error JSON fall back to the status code.
func decodeError(op string, resp *http.Response) error {
	var e api.ErrorResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode >= http.StatusInternalServerError {
		return failure.Network(op, errors.Errorf("server error %s", resp.Status))
	}
	if err := json.Unmarshal(raw, &e); err != nil || e.Code == "" {
		return failure.Wrap(reasonForStatus(resp.StatusCode), op,
			errors.Errorf("unexpected status %s", resp.Status))
	}
	return failure.Wrap(failure.Reason(e.Code), e.Message, errors.Errorf("%s: %s", op, resp.Status))
}

func reasonForStatus(code int) failure.Reason {
	switch code {
	case http.StatusBadRequest:
		return failure.ReasonInvalidArgument
	case http.StatusUnauthorized:
		return failure.ReasonUnauthenticated
	case http.StatusNotFound:
		return failure.ReasonNotFound
	case http.StatusConflict:
		return failure.ReasonFailedPrecondition
	case http.StatusTooManyRequests:
		return failure.ReasonRateLimited
	}
	return failure.ReasonNetworkError
}
