package directory

import (
	"context"

	"cipherkeep/internal/domain"
	"cipherkeep/internal/failure"
)

// Store is everything the key directory persists.
type Store = domain.DirectoryStore

// WithCustody returns s with its custody methods served by c.
func WithCustody(s Store, c domain.CustodyStore) Store {
	return &splitStore{Store: s, custody: c}
}

type splitStore struct {
	Store
	custody domain.CustodyStore
}

func (s *splitStore) StoreEncryptedPrivateKeys(ctx context.Context, b domain.EncryptedPrivateKeyBundle) error {
	return s.custody.StoreEncryptedPrivateKeys(ctx, b)
}

func (s *splitStore) LoadEncryptedPrivateKeys(ctx context.Context, userID domain.UserID) ([]domain.EncryptedPrivateKeyBundle, error) {
	return s.custody.LoadEncryptedPrivateKeys(ctx, userID)
}

func bundleFor(d domain.DeviceRegistration, opk *domain.OneTimePreKeyPublic) domain.PreKeyBundle {
	return domain.PreKeyBundle{
		UserID:         d.UserID,
		DeviceID:       d.DeviceID,
		RegistrationID: d.RegistrationID,
		IdentityKey:    d.IdentityKey,
		SignedPreKey:   d.SignedPreKey,
		OneTimePreKey:  opk,
	}
}

func checkTransition(from, to domain.RegistrationState) error {
	if !domain.CanTransition(from, to) {
		return failure.Newf(failure.ReasonInvalidArgument, "illegal device transition %s -> %s", from, to)
	}
	return nil
}

func checkBatch(batch []domain.OneTimePreKeyPublic) error {
	if len(batch) == 0 {
		return failure.InvalidArg("empty one-time prekey batch")
	}
	seen := make(map[domain.OneTimePreKeyID]bool, len(batch))
	for _, k := range batch {
		if k.KeyID == 0 {
			return failure.InvalidArg("one-time prekey id 0 is reserved")
		}
		if seen[k.KeyID] {
			return failure.Newf(failure.ReasonInvalidArgument, "duplicate one-time prekey id %d in batch", k.KeyID)
		}
		seen[k.KeyID] = true
	}
	return nil
}

func notActive(addr domain.Address) error {
	return failure.Wrap(failure.ReasonNotFound, "no active device "+addr.String(), failure.ErrNotFound)
}
