package directory

import (
	"context"
	"sort"
	"sync"
	"time"

	"cipherkeep/internal/domain"
	"cipherkeep/internal/failure"
)

type memPool struct {
	available []domain.OneTimePreKeyPublic // sorted by KeyID
	seen      map[domain.OneTimePreKeyID]bool
	maxID     domain.OneTimePreKeyID
}

// MemoryStore keeps the directory in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[domain.UserID]domain.Account
	byName   map[domain.Username]domain.UserID
	devices  map[domain.Address]domain.DeviceRegistration
	pools    map[domain.Address]*memPool
	custody  map[domain.Address]domain.EncryptedPrivateKeyBundle
	now      func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[domain.UserID]domain.Account),
		byName:   make(map[domain.Username]domain.UserID),
		devices:  make(map[domain.Address]domain.DeviceRegistration),
		pools:    make(map[domain.Address]*memPool),
		custody:  make(map[domain.Address]domain.EncryptedPrivateKeyBundle),
		now:      time.Now,
	}
}

func (m *MemoryStore) CreateAccount(_ context.Context, a *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byName[a.Username]; ok {
		return failure.Wrap(failure.ReasonAlreadyExists, "username "+a.Username.String(), failure.ErrAlreadyExists)
	}
	if _, ok := m.accounts[a.ID]; ok {
		return failure.ErrAlreadyExists
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = m.now().UTC()
	}
	m.accounts[a.ID] = *a
	m.byName[a.Username] = a.ID
	return nil
}

func (m *MemoryStore) AccountByUsername(_ context.Context, u domain.Username) (domain.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byName[u]
	if !ok {
		return domain.Account{}, failure.ErrNotFound
	}
	return m.accounts[id], nil
}

func (m *MemoryStore) AccountByID(_ context.Context, id domain.UserID) (domain.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[id]
	if !ok {
		return domain.Account{}, failure.ErrNotFound
	}
	return a, nil
}

func (m *MemoryStore) InsertDeviceRegistration(_ context.Context, d domain.DeviceRegistration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[d.UserID]; !ok {
		return failure.ErrNotFound
	}
	addr := d.Address()
	if _, ok := m.devices[addr]; ok {
		return failure.ErrAlreadyExists
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = m.now().UTC()
	}
	m.devices[addr] = d
	m.pools[addr] = &memPool{seen: make(map[domain.OneTimePreKeyID]bool)}
	return nil
}

func (m *MemoryStore) Device(_ context.Context, addr domain.Address) (domain.DeviceRegistration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.devices[addr]
	if !ok {
		return domain.DeviceRegistration{}, failure.ErrNotFound
	}
	return d, nil
}

func (m *MemoryStore) ListDevices(_ context.Context, userID domain.UserID) ([]domain.DeviceRegistration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listLocked(userID, false), nil
}

func (m *MemoryStore) listLocked(userID domain.UserID, activeOnly bool) []domain.DeviceRegistration {
	var out []domain.DeviceRegistration
	for _, d := range m.devices {
		if d.UserID != userID || (activeOnly && d.State != domain.StateActive) {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].DeviceID.String() < out[j].DeviceID.String()
	})
	return out
}

func (m *MemoryStore) TransitionDevice(_ context.Context, addr domain.Address, from, to domain.RegistrationState) error {
	if err := checkTransition(from, to); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.devices[addr]
	if !ok {
		return failure.ErrNotFound
	}
	if d.State != from {
		return failure.Newf(failure.ReasonFailedPrecondition, "device is %s, not %s", d.State, from)
	}
	d.State = to
	m.devices[addr] = d
	return nil
}

func (m *MemoryStore) InsertOneTimePreKeys(_ context.Context, addr domain.Address, batch []domain.OneTimePreKeyPublic) error {
	if err := checkBatch(batch); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pools[addr]
	if !ok {
		return failure.ErrNotFound
	}
	for _, k := range batch {
		if p.seen[k.KeyID] {
			return failure.Newf(failure.ReasonAlreadyExists, "one-time prekey %d already uploaded", k.KeyID)
		}
	}
	for _, k := range batch {
		p.seen[k.KeyID] = true
		p.available = append(p.available, k)
		if k.KeyID > p.maxID {
			p.maxID = k.KeyID
		}
	}
	sort.Slice(p.available, func(i, j int) bool { return p.available[i].KeyID < p.available[j].KeyID })
	return nil
}

func (m *MemoryStore) ConsumeOneOneTimePreKey(_ context.Context, addr domain.Address) (domain.OneTimePreKeyPublic, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.devices[addr]; !ok {
		return domain.OneTimePreKeyPublic{}, false, failure.ErrNotFound
	}
	k, ok := m.consumeLocked(addr)
	return k, ok, nil
}

func (m *MemoryStore) consumeLocked(addr domain.Address) (domain.OneTimePreKeyPublic, bool) {
	p := m.pools[addr]
	if p == nil || len(p.available) == 0 {
		return domain.OneTimePreKeyPublic{}, false
	}
	k := p.available[0]
	p.available = p.available[1:]
	return k, true
}

func (m *MemoryStore) CountAvailableOneTimePreKeys(_ context.Context, addr domain.Address) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pools[addr]
	if !ok {
		return 0, failure.ErrNotFound
	}
	return len(p.available), nil
}

func (m *MemoryStore) MaxOneTimePreKeyID(_ context.Context, addr domain.Address) (domain.OneTimePreKeyID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pools[addr]
	if !ok {
		return 0, failure.ErrNotFound
	}
	return p.maxID, nil
}

func (m *MemoryStore) StoreEncryptedPrivateKeys(_ context.Context, b domain.EncryptedPrivateKeyBundle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	addr := b.Owner()
	if _, ok := m.devices[addr]; !ok {
		return failure.ErrNotFound
	}
	if _, ok := m.custody[addr]; ok {
		return failure.Wrap(failure.ReasonAlreadyExists, "custody bundle is write-once", failure.ErrAlreadyExists)
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = m.now().UTC()
	}
	m.custody[addr] = b
	return nil
}

func (m *MemoryStore) LoadEncryptedPrivateKeys(_ context.Context, userID domain.UserID) ([]domain.EncryptedPrivateKeyBundle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.EncryptedPrivateKeyBundle
	for addr, b := range m.custody {
		if addr.UserID == userID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) FetchRegistrationBundle(_ context.Context, userID domain.UserID) ([]domain.PreKeyBundle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[userID]; !ok {
		return nil, failure.ErrNotFound
	}
	devices := m.listLocked(userID, true)
	out := make([]domain.PreKeyBundle, 0, len(devices))
	for _, d := range devices {
		out = append(out, m.bundleLocked(d))
	}
	return out, nil
}

func (m *MemoryStore) bundleLocked(d domain.DeviceRegistration) domain.PreKeyBundle {
	var opk *domain.OneTimePreKeyPublic
	if k, ok := m.consumeLocked(d.Address()); ok {
		opk = &k
	}
	return bundleFor(d, opk)
}
