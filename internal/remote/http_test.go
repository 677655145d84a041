package remote_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cipherkeep/internal/custody"
	"cipherkeep/internal/directory"
	"cipherkeep/internal/domain"
	"cipherkeep/internal/failure"
	"cipherkeep/internal/remote"
	"cipherkeep/internal/server"
	"cipherkeep/internal/services/device"
)

func newDirectory(t *testing.T) *httptest.Server {
	t.Helper()
	s, err := server.New(server.Config{JWTSecret: "0123456789abcdef0123456789abcdef"},
		directory.NewMemoryStore(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestHTTP_RegistrationRoundTrip(t *testing.T) {
	ctx := context.Background()
	ts := newDirectory(t)
	c := remote.NewHTTP(ts.URL + "/")

	salt := domain.Bytes(bytes.Repeat([]byte{5}, 16))
	verifier := domain.Bytes(bytes.Repeat([]byte{6}, 32))
	userID, err := c.CreateAccount(ctx, "alice", salt, verifier)
	require.NoError(t, err)

	got, err := c.FetchSalt(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, salt, got)

	_, err = c.RegisterDevice(ctx, domain.DeviceUpload{})
	assert.True(t, failure.Has(err, failure.ReasonUnauthenticated), "got %v", err)

	creds, err := c.Authenticate(ctx, "alice", verifier)
	require.NoError(t, err)
	assert.Equal(t, userID, creds.UserID)
	assert.True(t, creds.ExpiresAt.After(time.Now()))

	gen, err := device.New(device.WithPreKeyCount(3))
	require.NoError(t, err)
	b, err := gen.Generate(ctx)
	require.NoError(t, err)

	st, err := c.RegisterDevice(ctx, domain.DeviceUpload{
		RegistrationID: b.RegistrationID,
		IdentityKey:    b.Identity.Public(),
		SignedPreKey:   b.SignedPreKey.PublicHalf(),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatePending, st.State)

	st, err = c.UploadOneTimePreKeys(ctx, st.DeviceID, b.OneTimePublics())
	require.NoError(t, err)
	assert.Equal(t, domain.StateKeysUploaded, st.State)
	assert.Equal(t, 3, st.AvailablePreKeys)

	sealed, err := custody.SealDevice([32]byte{1}, domain.Address{UserID: userID, DeviceID: st.DeviceID}, b)
	require.NoError(t, err)
	st, err = c.StoreEncryptedPrivateKeys(ctx, sealed)
	require.NoError(t, err)
	assert.Equal(t, domain.StateCustodyStored, st.State)

	st, err = c.ActivateDevice(ctx, st.DeviceID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateActive, st.State)

	st, err = c.DeviceStatus(ctx, st.DeviceID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateActive, st.State)

	bundles, err := c.LoadEncryptedPrivateKeys(ctx)
	require.NoError(t, err)
	require.Len(t, bundles, 1)
	assert.Equal(t, sealed.IdentityKey, bundles[0].IdentityKey)

	fetched, err := c.FetchRegistrationBundle(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, fetched, 1)
	require.NotNil(t, fetched[0].OneTimePreKey)
	assert.Equal(t, domain.OneTimePreKeyID(1), fetched[0].OneTimePreKey.KeyID)
}

func TestHTTP_ServerReasonsSurvive(t *testing.T) {
	ctx := context.Background()
	c := remote.NewHTTP(newDirectory(t).URL)

	v := domain.Bytes(bytes.Repeat([]byte{6}, 32))
	_, err := c.CreateAccount(ctx, "alice", bytes.Repeat([]byte{5}, 16), v)
	require.NoError(t, err)
	_, err = c.CreateAccount(ctx, "alice", bytes.Repeat([]byte{5}, 16), v)
	assert.ErrorIs(t, err, failure.ErrAlreadyExists)

	_, err = c.Authenticate(ctx, "alice", bytes.Repeat([]byte{7}, 32))
	assert.ErrorIs(t, err, failure.ErrUnauthenticated)
}

func TestHTTP_NetworkErrors(t *testing.T) {
	ctx := context.Background()

	ts := httptest.NewServer(http.NotFoundHandler())
	ts.Close()
	_, err := remote.NewHTTP(ts.URL).FetchSalt(ctx, "alice")
	assert.True(t, failure.Has(err, failure.ReasonNetworkError), "got %v", err)

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer broken.Close()
	_, err = remote.NewHTTP(broken.URL).FetchSalt(ctx, "alice")
	assert.True(t, failure.Has(err, failure.ReasonNetworkError), "got %v", err)

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer slow.Close()
	cctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = remote.NewHTTP(slow.URL).FetchSalt(cctx, "alice")
	assert.True(t, failure.Has(err, failure.ReasonNetworkError), "got %v", err)
}

func TestHTTP_PlainErrorBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer ts.Close()
	_, err := remote.NewHTTP(ts.URL).FetchSalt(context.Background(), "alice")
	assert.ErrorIs(t, err, failure.ErrNotFound)
}
