package vault

import (
	"encoding/json"
	"strconv"

	"cipherkeep/internal/domain"
	"cipherkeep/internal/failure"
)

const (
	identityKey     = "keypair"
	registrationKey = "registration_id"
	preKeyHighWater = "prekey_high_water"
	profileKey      = "profile"
)

var _ domain.KeyVault = (*Vault)(nil)

// SaveIdentityKeyPair stores the device identity.
func (v *Vault) SaveIdentityKeyPair(id domain.IdentityKeyPair) error {
	return v.putJSON(Identity, identityKey, id)
}

// IdentityKeyPair returns the device identity.
func (v *Vault) IdentityKeyPair() (domain.IdentityKeyPair, bool, error) {
	var id domain.IdentityKeyPair
	ok, err := v.getJSON(Identity, identityKey, &id)
	return id, ok, err
}

// SaveRegistrationID stores the device registration id.
func (v *Vault) SaveRegistrationID(id domain.RegistrationID) error {
	return v.putJSON(Registration, registrationKey, id)
}

// RegistrationID returns the device registration id.
func (v *Vault) RegistrationID() (domain.RegistrationID, bool, error) {
	var id domain.RegistrationID
	ok, err := v.getJSON(Registration, registrationKey, &id)
	return id, ok, err
}

// StoreSignedPreKey stores rec under its key id.
func (v *Vault) StoreSignedPreKey(rec domain.SignedPreKeyRecord) error {
	return v.putJSON(SignedPreKeys, idKey(uint32(rec.KeyID)), rec)
}

// LoadSignedPreKey returns the signed prekey with id.
func (v *Vault) LoadSignedPreKey(id domain.SignedPreKeyID) (domain.SignedPreKeyRecord, bool, error) {
	var rec domain.SignedPreKeyRecord
	ok, err := v.getJSON(SignedPreKeys, idKey(uint32(id)), &rec)
	return rec, ok, err
}

// RemoveSignedPreKey deletes the signed prekey with id.
func (v *Vault) RemoveSignedPreKey(id domain.SignedPreKeyID) error {
	return v.Delete(SignedPreKeys, idKey(uint32(id)))
}

// CurrentSignedPreKey returns the most recently signed prekey.
func (v *Vault) CurrentSignedPreKey() (domain.SignedPreKeyRecord, bool, error) {
	var (
		cur   domain.SignedPreKeyRecord
		found bool
	)
	for _, k := range v.Keys(SignedPreKeys) {
		var rec domain.SignedPreKeyRecord
		ok, err := v.getJSON(SignedPreKeys, k, &rec)
		if err != nil {
			return domain.SignedPreKeyRecord{}, false, err
		}
		if ok && (!found || rec.Timestamp.After(cur.Timestamp)) {
			cur, found = rec, true
		}
	}
	return cur, found, nil
}

// StorePreKeys stores one-time prekeys and raises the id high-water mark.
func (v *Vault) StorePreKeys(recs []domain.OneTimePreKeyRecord) error {
	high := v.MaxPreKeyID()
	for _, r := range recs {
		if err := v.putJSON(OneTimePreKeys, idKey(uint32(r.KeyID)), r); err != nil {
			return err
		}
		if r.KeyID > high {
			high = r.KeyID
		}
	}
	return v.putJSON(Registration, preKeyHighWater, high)
}

// LoadPreKey returns the one-time prekey with id.
func (v *Vault) LoadPreKey(id domain.OneTimePreKeyID) (domain.OneTimePreKeyRecord, bool, error) {
	var rec domain.OneTimePreKeyRecord
	ok, err := v.getJSON(OneTimePreKeys, idKey(uint32(id)), &rec)
	return rec, ok, err
}

// RemovePreKey deletes the one-time prekey with id.
func (v *Vault) RemovePreKey(id domain.OneTimePreKeyID) error {
	return v.Delete(OneTimePreKeys, idKey(uint32(id)))
}

// MaxPreKeyID returns the highest one-time prekey id ever stored, so that
// replenished batches never reuse an id the server already saw.
func (v *Vault) MaxPreKeyID() domain.OneTimePreKeyID {
	var high domain.OneTimePreKeyID
	_, _ = v.getJSON(Registration, preKeyHighWater, &high)
	for _, k := range v.Keys(OneTimePreKeys) {
		n, err := strconv.ParseUint(k, 10, 32)
		if err == nil && domain.OneTimePreKeyID(n) > high {
			high = domain.OneTimePreKeyID(n)
		}
	}
	return high
}

// StoreSession stores s under its peer address.
func (v *Vault) StoreSession(s domain.Session) error {
	return v.putJSON(Sessions, s.Peer.String(), s)
}

// LoadSession returns the session with peer.
func (v *Vault) LoadSession(peer domain.Address) (domain.Session, bool, error) {
	var s domain.Session
	ok, err := v.getJSON(Sessions, peer.String(), &s)
	return s, ok, err
}

// RemoveSession deletes the session with peer.
func (v *Vault) RemoveSession(peer domain.Address) error {
	return v.Delete(Sessions, peer.String())
}

// Sessions returns every stored session ordered by peer address.
func (v *Vault) Sessions() ([]domain.Session, error) {
	keys := v.Keys(Sessions)
	out := make([]domain.Session, 0, len(keys))
	for _, k := range keys {
		var s domain.Session
		ok, err := v.getJSON(Sessions, k, &s)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, s)
		}
	}
	return out, nil
}

// CheckTrusted pins id on first sight of peer, otherwise compares it with
// the pinned identity. Concurrent first sightings pin exactly one identity.
func (v *Vault) CheckTrusted(peer domain.Address, id domain.IdentityPublic) (bool, error) {
	v.trustMu.Lock()
	defer v.trustMu.Unlock()
	pinned, ok, err := v.pinned(peer)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, v.putJSON(TrustedIdentities, peer.String(), id)
	}
	return pinned.Equal(id), nil
}

// TrustIdentity pins id for peer, replacing any previous pin.
func (v *Vault) TrustIdentity(peer domain.Address, id domain.IdentityPublic) error {
	v.trustMu.Lock()
	defer v.trustMu.Unlock()
	return v.putJSON(TrustedIdentities, peer.String(), id)
}

// PinnedIdentity returns the identity pinned for peer.
func (v *Vault) PinnedIdentity(peer domain.Address) (domain.IdentityPublic, bool, error) {
	v.trustMu.Lock()
	defer v.trustMu.Unlock()
	return v.pinned(peer)
}

func (v *Vault) pinned(peer domain.Address) (domain.IdentityPublic, bool, error) {
	var id domain.IdentityPublic
	ok, err := v.getJSON(TrustedIdentities, peer.String(), &id)
	return id, ok, err
}

// SaveProfile stores the local profile.
func (v *Vault) SaveProfile(p domain.Profile) error {
	return v.putJSON(Profile, profileKey, p)
}

// Profile returns the local profile.
func (v *Vault) Profile() (domain.Profile, bool, error) {
	var p domain.Profile
	ok, err := v.getJSON(Profile, profileKey, &p)
	return p, ok, err
}

// Reset deletes all device key material and the profile. Pinned peer
// identities survive.
func (v *Vault) Reset() error {
	for _, c := range Collections() {
		if c == TrustedIdentities {
			continue
		}
		for _, k := range v.Keys(c) {
			if err := v.Delete(c, k); err != nil {
				return err
			}
		}
	}
	return nil
}

func (v *Vault) putJSON(c Collection, key string, val any) error {
	b, err := json.Marshal(val)
	if err != nil {
		return failure.Internal("encode "+string(c), err)
	}
	return v.Put(c, key, b)
}

func (v *Vault) getJSON(c Collection, key string, out any) (bool, error) {
	b, ok := v.Get(c, key)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return false, failure.Internal("decode "+string(c)+"/"+key, err)
	}
	return true, nil
}

func idKey(id uint32) string { return strconv.FormatUint(uint64(id), 10) }
