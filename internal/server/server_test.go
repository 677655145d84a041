package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cipherkeep/internal/api"
	"cipherkeep/internal/custody"
	"cipherkeep/internal/directory"
	"cipherkeep/internal/domain"
	"cipherkeep/internal/failure"
	"cipherkeep/internal/services/device"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestServer(t *testing.T, mutate ...func(*Config)) (*Server, *directory.MemoryStore) {
	t.Helper()
	cfg := Config{JWTSecret: testSecret, BundleRate: 100, BundleBurst: 100}
	for _, m := range mutate {
		m(&cfg)
	}
	store := directory.NewMemoryStore()
	s, err := New(cfg, store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return s, store
}

func call(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) failure.Reason {
	t.Helper()
	return failure.Reason(decode[api.ErrorResponse](t, rec).Code)
}

func verifier(b byte) domain.Bytes { return bytes.Repeat([]byte{b}, 32) }

// signUp creates username and returns a bearer token.
func signUp(t *testing.T, s *Server, username string) (domain.UserID, string) {
	t.Helper()
	rec := call(t, s, http.MethodPost, api.PathAccounts, "", api.CreateAccountRequest{
		Username: domain.Username(username),
		Salt:     bytes.Repeat([]byte{7}, 16),
		Verifier: verifier(1),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = call(t, s, http.MethodPost, api.PathSessions, "", api.LoginRequest{Username: domain.Username(username), Verifier: verifier(1)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[api.LoginResponse](t, rec)
	return resp.UserID, resp.Token
}

// registerActive runs the full device registration with n one-time prekeys.
func registerActive(t *testing.T, s *Server, userID domain.UserID, token string, n int) (domain.DeviceBundle, domain.DeviceID) {
	t.Helper()
	gen, err := device.New(device.WithPreKeyCount(n))
	require.NoError(t, err)
	b, err := gen.Generate(context.Background())
	require.NoError(t, err)

	rec := call(t, s, http.MethodPost, api.PathDevices, token, domain.DeviceUpload{
		RegistrationID: b.RegistrationID,
		IdentityKey:    b.Identity.Public(),
		SignedPreKey:   b.SignedPreKey.PublicHalf(),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	st := decode[domain.DeviceStatus](t, rec)
	assert.Equal(t, domain.StatePending, st.State)
	id := st.DeviceID.String()

	rec = call(t, s, http.MethodPost, "/v1/devices/"+id+"/prekeys", token, api.UploadPreKeysRequest{PreKeys: b.OneTimePublics()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	up := decode[api.UploadPreKeysResponse](t, rec)
	assert.Equal(t, n, up.Uploaded)
	assert.Equal(t, domain.StateKeysUploaded, up.State)

	sealed, err := custody.SealDevice([32]byte{9}, domain.Address{UserID: userID, DeviceID: st.DeviceID}, b)
	require.NoError(t, err)
	rec = call(t, s, http.MethodPut, "/v1/devices/"+id+"/custody", token, sealed)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.StateCustodyStored, decode[domain.DeviceStatus](t, rec).State)

	rec = call(t, s, http.MethodPost, "/v1/devices/"+id+"/activate", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.StateActive, decode[domain.DeviceStatus](t, rec).State)
	return b, st.DeviceID
}

func TestNew_RejectsShortSecret(t *testing.T) {
	_, err := New(Config{JWTSecret: "short"}, directory.NewMemoryStore(), nil)
	assert.Error(t, err)
}

func TestAccounts(t *testing.T) {
	s, _ := newTestServer(t)
	_, _ = signUp(t, s, "alice")

	t.Run("duplicate username", func(t *testing.T) {
		rec := call(t, s, http.MethodPost, api.PathAccounts, "", api.CreateAccountRequest{
			Username: "alice", Salt: bytes.Repeat([]byte{1}, 16), Verifier: verifier(2),
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, failure.ReasonAlreadyExists, errorCode(t, rec))
	})

	t.Run("short salt", func(t *testing.T) {
		rec := call(t, s, http.MethodPost, api.PathAccounts, "", api.CreateAccountRequest{
			Username: "bob", Salt: []byte{1, 2, 3}, Verifier: verifier(2),
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bad username", func(t *testing.T) {
		rec := call(t, s, http.MethodPost, api.PathAccounts, "", api.CreateAccountRequest{
			Username: "a b", Salt: bytes.Repeat([]byte{1}, 16), Verifier: verifier(2),
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("salt", func(t *testing.T) {
		rec := call(t, s, http.MethodGet, "/v1/accounts/alice/salt", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, domain.Bytes(bytes.Repeat([]byte{7}, 16)), decode[api.SaltResponse](t, rec).Salt)
	})

	t.Run("unknown user gets a stable salt", func(t *testing.T) {
		a := decode[api.SaltResponse](t, call(t, s, http.MethodGet, "/v1/accounts/nobody/salt", "", nil))
		b := decode[api.SaltResponse](t, call(t, s, http.MethodGet, "/v1/accounts/nobody/salt", "", nil))
		c := decode[api.SaltResponse](t, call(t, s, http.MethodGet, "/v1/accounts/someone/salt", "", nil))
		assert.Len(t, a.Salt, 16)
		assert.Equal(t, a.Salt, b.Salt)
		assert.NotEqual(t, a.Salt, c.Salt)
	})

	t.Run("wrong verifier", func(t *testing.T) {
		rec := call(t, s, http.MethodPost, api.PathSessions, "", api.LoginRequest{Username: "alice", Verifier: verifier(3)})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, failure.ReasonUnauthenticated, errorCode(t, rec))
	})

	t.Run("unknown user login", func(t *testing.T) {
		rec := call(t, s, http.MethodPost, api.PathSessions, "", api.LoginRequest{Username: "nobody", Verifier: verifier(1)})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAuthRequired(t *testing.T) {
	s, _ := newTestServer(t)

	rec := call(t, s, http.MethodGet, api.PathCustody, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(t, s, http.MethodGet, api.PathCustody, "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	other := newTokenIssuer([]byte("another-secret-another-secret-xx"), "keydir", 0)
	forged, _, err := other.issue(uuid.New())
	require.NoError(t, err)
	rec = call(t, s, http.MethodGet, api.PathCustody, forged, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterDevice_RejectsBadSignature(t *testing.T) {
	s, _ := newTestServer(t)
	_, token := signUp(t, s, "alice")

	gen, err := device.New(device.WithPreKeyCount(1))
	require.NoError(t, err)
	b, err := gen.Generate(context.Background())
	require.NoError(t, err)
	spk := b.SignedPreKey.PublicHalf()
	spk.Signature[0] ^= 0xff

	rec := call(t, s, http.MethodPost, api.PathDevices, token, domain.DeviceUpload{
		RegistrationID: b.RegistrationID,
		IdentityKey:    b.Identity.Public(),
		SignedPreKey:   spk,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, failure.ReasonSignatureInvalid, errorCode(t, rec))

	rec = call(t, s, http.MethodPost, api.PathDevices, token, domain.DeviceUpload{
		RegistrationID: device.MaxRegistrationID + 1,
		IdentityKey:    b.Identity.Public(),
		SignedPreKey:   b.SignedPreKey.PublicHalf(),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegistrationFlowAndBundles(t *testing.T) {
	s, _ := newTestServer(t)
	aliceID, aliceTok := signUp(t, s, "alice")
	_, bobTok := signUp(t, s, "bob")

	b, deviceID := registerActive(t, s, aliceID, aliceTok, 2)

	rec := call(t, s, http.MethodGet, api.PathCustody, aliceTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stored := decode[[]domain.EncryptedPrivateKeyBundle](t, rec)
	require.Len(t, stored, 1)
	opened, err := custody.OpenDevice([32]byte{9}, stored[0])
	require.NoError(t, err)
	assert.Equal(t, b.Identity, opened.Identity)

	// Bob sees exactly one bundle per fetch and the pool drains in key order.
	for _, want := range []domain.OneTimePreKeyID{1, 2} {
		rec = call(t, s, http.MethodGet, "/v1/users/alice/bundles", bobTok, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		bundles := decode[[]domain.PreKeyBundle](t, rec)
		require.Len(t, bundles, 1)
		assert.Equal(t, deviceID, bundles[0].DeviceID)
		require.NotNil(t, bundles[0].OneTimePreKey)
		assert.Equal(t, want, bundles[0].OneTimePreKey.KeyID)
	}

	rec = call(t, s, http.MethodGet, "/v1/users/alice/devices/"+deviceID.String()+"/bundle", bobTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	degraded := decode[domain.PreKeyBundle](t, rec)
	assert.Nil(t, degraded.OneTimePreKey)
	assert.Equal(t, b.SignedPreKey.Public, degraded.SignedPreKey.Public)

	rec = call(t, s, http.MethodGet, "/v1/devices/"+deviceID.String(), aliceTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[domain.DeviceStatus](t, rec).AvailablePreKeys)

	// Activation is idempotent; custody is write-once.
	rec = call(t, s, http.MethodPost, "/v1/devices/"+deviceID.String()+"/activate", aliceTok, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = call(t, s, http.MethodPut, "/v1/devices/"+deviceID.String()+"/custody", aliceTok, stored[0])
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, failure.ReasonAlreadyExists, errorCode(t, rec))

	// Replenished keys continue the pool.
	more := []domain.OneTimePreKeyPublic{{KeyID: 3, Public: domain.X25519Public{3}}}
	rec = call(t, s, http.MethodPost, "/v1/devices/"+deviceID.String()+"/prekeys", aliceTok, api.UploadPreKeysRequest{PreKeys: more})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	up := decode[api.UploadPreKeysResponse](t, rec)
	assert.Equal(t, 1, up.AvailablePreKeys)
	assert.Equal(t, domain.StateActive, up.State)
}

func TestDeviceRoutes_OtherUsersDevice(t *testing.T) {
	s, _ := newTestServer(t)
	aliceID, aliceTok := signUp(t, s, "alice")
	_, bobTok := signUp(t, s, "bob")
	_, deviceID := registerActive(t, s, aliceID, aliceTok, 1)

	rec := call(t, s, http.MethodGet, "/v1/devices/"+deviceID.String(), bobTok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCustody_BeforePreKeys(t *testing.T) {
	s, _ := newTestServer(t)
	userID, token := signUp(t, s, "alice")

	gen, err := device.New(device.WithPreKeyCount(1))
	require.NoError(t, err)
	b, err := gen.Generate(context.Background())
	require.NoError(t, err)
	rec := call(t, s, http.MethodPost, api.PathDevices, token, domain.DeviceUpload{
		RegistrationID: b.RegistrationID,
		IdentityKey:    b.Identity.Public(),
		SignedPreKey:   b.SignedPreKey.PublicHalf(),
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	st := decode[domain.DeviceStatus](t, rec)

	sealed, err := custody.SealDevice([32]byte{1}, domain.Address{UserID: userID, DeviceID: st.DeviceID}, b)
	require.NoError(t, err)
	rec = call(t, s, http.MethodPut, "/v1/devices/"+st.DeviceID.String()+"/custody", token, sealed)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, failure.ReasonFailedPrecondition, errorCode(t, rec))

	rec = call(t, s, http.MethodPost, "/v1/devices/"+st.DeviceID.String()+"/activate", token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	sealed.SignedPreKeyID++
	rec = call(t, s, http.MethodPost, "/v1/devices/"+st.DeviceID.String()+"/prekeys", token, api.UploadPreKeysRequest{PreKeys: b.OneTimePublics()})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = call(t, s, http.MethodPut, "/v1/devices/"+st.DeviceID.String()+"/custody", token, sealed)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBundles_RateLimited(t *testing.T) {
	s, _ := newTestServer(t, func(c *Config) { c.BundleRate = 0.001; c.BundleBurst = 2 })
	aliceID, aliceTok := signUp(t, s, "alice")
	_, bobTok := signUp(t, s, "bob")
	registerActive(t, s, aliceID, aliceTok, 5)

	for i := 0; i < 2; i++ {
		rec := call(t, s, http.MethodGet, "/v1/users/alice/bundles", bobTok, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := call(t, s, http.MethodGet, "/v1/users/alice/bundles", bobTok, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, failure.ReasonRateLimited, errorCode(t, rec))

	// Another requester has its own budget.
	rec = call(t, s, http.MethodGet, "/v1/users/alice/bundles", aliceTok, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBundles_UnknownUserAndNoDevices(t *testing.T) {
	s, _ := newTestServer(t)
	_, tok := signUp(t, s, "alice")
	_, _ = signUp(t, s, "bob")

	rec := call(t, s, http.MethodGet, "/v1/users/carol/bundles", tok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = call(t, s, http.MethodGet, "/v1/users/bob/bundles", tok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := call(t, s, http.MethodGet, api.PathHealth, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
