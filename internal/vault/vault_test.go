package vault_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cipherkeep/internal/domain"
	"cipherkeep/internal/failure"
	"cipherkeep/internal/vault"
)

// memBackend records writes in order and can be told to fail.
type memBackend struct {
	mu     sync.Mutex
	data   map[vault.Collection]map[string][]byte
	log    []string
	fail   error
	closed bool
}

func newMemBackend() *memBackend {
	return &memBackend{data: map[vault.Collection]map[string][]byte{}}
}

func (m *memBackend) Load(context.Context) (map[vault.Collection]map[string][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[vault.Collection]map[string][]byte{}
	for c, kv := range m.data {
		out[c] = map[string][]byte{}
		for k, v := range kv {
			out[c][k] = append([]byte(nil), v...)
		}
	}
	return out, nil
}

func (m *memBackend) Put(_ context.Context, c vault.Collection, k string, v []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	if m.data[c] == nil {
		m.data[c] = map[string][]byte{}
	}
	m.data[c][k] = append([]byte(nil), v...)
	m.log = append(m.log, fmt.Sprintf("put %s/%s", c, k))
	return nil
}

func (m *memBackend) Delete(_ context.Context, c vault.Collection, k string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	delete(m.data[c], k)
	m.log = append(m.log, fmt.Sprintf("del %s/%s", c, k))
	return nil
}

func (m *memBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// xorSealer is a reversible stand-in that also checks the additional data.
type xorSealer struct{}

func (xorSealer) Seal(ad, pt []byte) ([]byte, error) {
	out := append([]byte(nil), ad...)
	out = append(out, 0)
	for _, b := range pt {
		out = append(out, b^0x5a)
	}
	return out, nil
}

func (xorSealer) Open(ad, sealed []byte) ([]byte, error) {
	if len(sealed) <= len(ad) || string(sealed[:len(ad)]) != string(ad) {
		return nil, errors.New("additional data mismatch")
	}
	out := make([]byte, 0, len(sealed)-len(ad)-1)
	for _, b := range sealed[len(ad)+1:] {
		out = append(out, b^0x5a)
	}
	return out, nil
}

func open(t *testing.T, b vault.Backend, opts ...vault.Option) *vault.Vault {
	t.Helper()
	v, err := vault.Open(context.Background(), b, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = v.Close(context.Background()) })
	return v
}

func addr() domain.Address { return domain.Address{UserID: uuid.New(), DeviceID: uuid.New()} }

func TestVault_PutGetFlush(t *testing.T) {
	b := newMemBackend()
	v := open(t, b)

	require.NoError(t, v.Put(vault.Sessions, "a", []byte("1")))
	got, ok := v.Get(vault.Sessions, "a")
	require.True(t, ok)
	assert.Equal(t, []byte("1"), got)

	require.NoError(t, v.Flush(context.Background()))
	assert.Equal(t, []byte("1"), b.data[vault.Sessions]["a"])
}

func TestVault_WritesReachBackendInOrder(t *testing.T) {
	b := newMemBackend()
	v := open(t, b)

	for i := 0; i < 50; i++ {
		require.NoError(t, v.Put(vault.OneTimePreKeys, fmt.Sprint(i), []byte{byte(i)}))
	}
	require.NoError(t, v.Delete(vault.OneTimePreKeys, "3"))
	require.NoError(t, v.Put(vault.OneTimePreKeys, "3", []byte("again")))
	require.NoError(t, v.Flush(context.Background()))

	require.Len(t, b.log, 52)
	assert.Equal(t, "put one_time_prekeys/0", b.log[0])
	assert.Equal(t, "del one_time_prekeys/3", b.log[50])
	assert.Equal(t, "put one_time_prekeys/3", b.log[51])
	assert.Equal(t, []byte("again"), b.data[vault.OneTimePreKeys]["3"])
}

func TestVault_FlushReportsBackendFailure(t *testing.T) {
	b := newMemBackend()
	b.fail = errors.New("disk full")
	v := open(t, b)

	require.NoError(t, v.Put(vault.Profile, "profile", []byte("x")))
	err := v.Flush(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	// Failures are reported once.
	b.mu.Lock()
	b.fail = nil
	b.mu.Unlock()
	assert.NoError(t, v.Flush(context.Background()))
}

func TestVault_HydratesOnOpen(t *testing.T) {
	b := newMemBackend()
	v1, err := vault.Open(context.Background(), b, vault.WithSealer(xorSealer{}))
	require.NoError(t, err)

	id := domain.IdentityKeyPair{XPub: domain.X25519Public{1}, XPriv: domain.X25519Private{2}, EdPub: domain.Ed25519Public{3}, EdPriv: domain.Ed25519Private{4}}
	require.NoError(t, v1.SaveIdentityKeyPair(id))
	require.NoError(t, v1.SaveRegistrationID(77))
	require.NoError(t, v1.Close(context.Background()))
	assert.True(t, b.closed)

	// Values at rest are sealed.
	assert.NotContains(t, string(b.data[vault.Registration]["registration_id"]), "77")

	v2 := open(t, b, vault.WithSealer(xorSealer{}))
	got, ok, err := v2.IdentityKeyPair()
	require.NoError(t, err)
	require.True(t, ok)
	if diff := cmp.Diff(id, got); diff != "" {
		t.Fatalf("identity mismatch (-want +got):\n%s", diff)
	}
	reg, ok, err := v2.RegistrationID()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.RegistrationID(77), reg)
}

func TestVault_OpenFailsOnBadSeal(t *testing.T) {
	b := newMemBackend()
	b.data[vault.Profile] = map[string][]byte{"profile": []byte("garbage")}
	_, err := vault.Open(context.Background(), b, vault.WithSealer(xorSealer{}))
	assert.ErrorIs(t, err, failure.ErrDecryptionFailed)
}

func TestVault_ClosedRejectsWrites(t *testing.T) {
	v, err := vault.Open(context.Background(), newMemBackend())
	require.NoError(t, err)
	require.NoError(t, v.Close(context.Background()))
	assert.ErrorIs(t, v.Put(vault.Profile, "k", nil), vault.ErrClosed)
	assert.NoError(t, v.Close(context.Background()))
}

func TestVault_UnknownCollection(t *testing.T) {
	v := open(t, newMemBackend())
	err := v.Put(vault.Collection("nope"), "k", nil)
	assert.True(t, failure.Has(err, failure.ReasonInvalidArgument))
}

func TestVault_PreKeys(t *testing.T) {
	v := open(t, newMemBackend())

	old := domain.SignedPreKeyRecord{KeyID: 10, Timestamp: time.Unix(100, 0).UTC(), Signature: domain.Bytes{1}}
	cur := domain.SignedPreKeyRecord{KeyID: 5, Timestamp: time.Unix(200, 0).UTC(), Signature: domain.Bytes{2}}
	require.NoError(t, v.StoreSignedPreKey(old))
	require.NoError(t, v.StoreSignedPreKey(cur))

	got, ok, err := v.CurrentSignedPreKey()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, cur.KeyID, got.KeyID)

	require.NoError(t, v.StorePreKeys([]domain.OneTimePreKeyRecord{{KeyID: 1}, {KeyID: 2}, {KeyID: 3}}))
	assert.Equal(t, domain.OneTimePreKeyID(3), v.MaxPreKeyID())

	require.NoError(t, v.RemovePreKey(3))
	_, ok, err = v.LoadPreKey(3)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, domain.OneTimePreKeyID(3), v.MaxPreKeyID(), "high-water mark survives removal")
}

func TestVault_SessionsKeyedByAddress(t *testing.T) {
	v := open(t, newMemBackend())
	a, b := addr(), addr()
	b.UserID = a.UserID

	require.NoError(t, v.StoreSession(domain.Session{Peer: a, RootKey: domain.Bytes{1}}))
	require.NoError(t, v.StoreSession(domain.Session{Peer: b, RootKey: domain.Bytes{2}}))

	sa, ok, err := v.LoadSession(a)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.Bytes{1}, sa.RootKey)

	all, err := v.Sessions()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestVault_TrustOnFirstUse(t *testing.T) {
	v := open(t, newMemBackend())
	peer := addr()
	first := domain.IdentityPublic{DH: domain.X25519Public{1}, Signing: domain.Ed25519Public{1}}
	other := domain.IdentityPublic{DH: domain.X25519Public{2}, Signing: domain.Ed25519Public{2}}

	ok, err := v.CheckTrusted(peer, first)
	require.NoError(t, err)
	assert.True(t, ok, "first sight pins")

	ok, err = v.CheckTrusted(peer, other)
	require.NoError(t, err)
	assert.False(t, ok, "changed identity is untrusted")

	require.NoError(t, v.TrustIdentity(peer, other))
	ok, err = v.CheckTrusted(peer, other)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVault_ConcurrentFirstSightPinsOnce(t *testing.T) {
	v := open(t, newMemBackend())
	for round := 0; round < 20; round++ {
		peer := addr()
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			winners []domain.IdentityPublic
			start   = make(chan struct{})
		)
		for g := 0; g < 8; g++ {
			id := domain.IdentityPublic{DH: domain.X25519Public{byte(g + 1)}, Signing: domain.Ed25519Public{byte(g + 1)}}
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				ok, err := v.CheckTrusted(peer, id)
				assert.NoError(t, err)
				if ok {
					mu.Lock()
					winners = append(winners, id)
					mu.Unlock()
				}
			}()
		}
		close(start)
		wg.Wait()

		require.Len(t, winners, 1, "exactly one identity is trusted")
		pinned, ok, err := v.PinnedIdentity(peer)
		require.NoError(t, err)
		require.True(t, ok)
		assert.True(t, pinned.Equal(winners[0]))
	}
}

func TestVault_ResetKeepsPins(t *testing.T) {
	v := open(t, newMemBackend())
	peer := addr()
	require.NoError(t, v.SaveProfile(domain.Profile{Username: "alice"}))
	require.NoError(t, v.StorePreKeys([]domain.OneTimePreKeyRecord{{KeyID: 1}}))
	require.NoError(t, v.TrustIdentity(peer, domain.IdentityPublic{DH: domain.X25519Public{9}}))

	require.NoError(t, v.Reset())

	_, ok, err := v.Profile()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, v.Len(vault.OneTimePreKeys))
	_, ok, err = v.PinnedIdentity(peer)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVault_ConcurrentAccess(t *testing.T) {
	v := open(t, newMemBackend())
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				key := fmt.Sprintf("%d-%d", g, i)
				assert.NoError(t, v.Put(vault.Sessions, key, []byte(key)))
				_, _ = v.Get(vault.Sessions, key)
			}
		}(g)
	}
	wg.Wait()
	require.NoError(t, v.Flush(context.Background()))
	assert.Equal(t, 800, v.Len(vault.Sessions))
}
