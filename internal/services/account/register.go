package account

import (
	"context"
	"fmt"

	"cipherkeep/internal/custody"
	"cipherkeep/internal/domain"
	"cipherkeep/internal/envelope"
	"cipherkeep/internal/failure"
	"cipherkeep/internal/protocol/x3dh"
)

// register generates a new device and walks it to active. Only one
// registration runs at a time per Service.
func (s *Service) register(ctx context.Context, p domain.Profile, keys *envelope.Keys) (domain.Profile, error) {
	if !s.registering.TryLock() {
		return domain.Profile{}, failure.ErrRegistrationInProgress
	}
	defer s.registering.Unlock()

	b, err := s.gen.Generate(ctx)
	if err != nil {
		return domain.Profile{}, err
	}
	if err := x3dh.VerifyBundle(publicBundle(b)); err != nil {
		return domain.Profile{}, err
	}

	if err := s.vault.Reset(); err != nil {
		return domain.Profile{}, err
	}
	if err := s.storeLocal(b); err != nil {
		return domain.Profile{}, err
	}
	p.DeviceID = domain.DeviceID{}
	p.State = ""
	if err := s.saveProfile(ctx, &p); err != nil {
		return domain.Profile{}, err
	}

	st, err := s.dir.RegisterDevice(ctx, domain.DeviceUpload{
		RegistrationID: b.RegistrationID,
		IdentityKey:    b.Identity.Public(),
		SignedPreKey:   b.SignedPreKey.PublicHalf(),
	})
	if err != nil {
		return p, stopped(p, err)
	}
	p.DeviceID = st.DeviceID
	p.State = st.State
	if err := s.saveProfile(ctx, &p); err != nil {
		return domain.Profile{}, err
	}
	s.log.InfoContext(ctx, "device registered", "device", p.Address().String(), "registration_id", b.RegistrationID)
	return s.advance(ctx, p, keys, b)
}

// advance runs the remaining server steps from p.State, recording each
// state reached.
func (s *Service) advance(ctx context.Context, p domain.Profile, keys *envelope.Keys, b domain.DeviceBundle) (domain.Profile, error) {
	for p.State != domain.StateActive {
		var (
			st  domain.DeviceStatus
			err error
		)
		switch p.State {
		case domain.StatePending:
			st, err = s.dir.UploadOneTimePreKeys(ctx, p.DeviceID, b.OneTimePublics())
		case domain.StateKeysUploaded:
			var sealed domain.EncryptedPrivateKeyBundle
			if sealed, err = custody.SealDevice(keys.Enc, p.Address(), b); err != nil {
				return p, err
			}
			st, err = s.dir.StoreEncryptedPrivateKeys(ctx, sealed)
		case domain.StateCustodyStored:
			st, err = s.dir.ActivateDevice(ctx, p.DeviceID)
		default:
			return p, failure.Newf(failure.ReasonFailedPrecondition, "unknown registration state %q", p.State)
		}
		if err != nil {
			return p, stopped(p, err)
		}
		if next, _ := p.State.Next(); st.State != next {
			return p, failure.Newf(failure.ReasonInternal, "server moved device from %s to %s", p.State, st.State)
		}
		s.log.DebugContext(ctx, "registration step", "device", p.Address().String(), "from", p.State, "to", st.State)
		p.State = st.State
		if err := s.saveProfile(ctx, &p); err != nil {
			return p, err
		}
	}
	s.log.InfoContext(ctx, "device active", "device", p.Address().String())
	return p, nil
}

// stopped annotates a failed network step with the state recorded so far.
func stopped(p domain.Profile, err error) error {
	state := p.State
	if state == "" {
		state = "unregistered"
	}
	return failure.Wrap(failure.ReasonOf(err), fmt.Sprintf("registration stopped at %s", state), err)
}

func (s *Service) storeLocal(b domain.DeviceBundle) error {
	if err := s.vault.SaveIdentityKeyPair(b.Identity); err != nil {
		return err
	}
	if err := s.vault.SaveRegistrationID(b.RegistrationID); err != nil {
		return err
	}
	if err := s.vault.StoreSignedPreKey(b.SignedPreKey); err != nil {
		return err
	}
	if len(b.OneTimePreKeys) == 0 {
		return nil
	}
	return s.vault.StorePreKeys(b.OneTimePreKeys)
}

// localBundle rebuilds the generated bundle from the vault.
func (s *Service) localBundle() (domain.DeviceBundle, error) {
	var b domain.DeviceBundle
	id, ok, err := s.vault.IdentityKeyPair()
	if err != nil {
		return b, err
	}
	if !ok {
		return b, failure.FailedPrecondition("no local identity; register the device again")
	}
	regID, _, err := s.vault.RegistrationID()
	if err != nil {
		return b, err
	}
	spk, ok, err := s.vault.CurrentSignedPreKey()
	if err != nil {
		return b, err
	}
	if !ok {
		return b, failure.FailedPrecondition("no local signed prekey; register the device again")
	}
	b.Identity, b.RegistrationID, b.SignedPreKey = id, regID, spk
	for k := domain.OneTimePreKeyID(1); k <= s.vault.MaxPreKeyID(); k++ {
		rec, ok, err := s.vault.LoadPreKey(k)
		if err != nil {
			return b, err
		}
		if ok {
			b.OneTimePreKeys = append(b.OneTimePreKeys, rec)
		}
	}
	return b, nil
}

func publicBundle(b domain.DeviceBundle) domain.PreKeyBundle {
	return domain.PreKeyBundle{
		RegistrationID: b.RegistrationID,
		IdentityKey:    b.Identity.Public(),
		SignedPreKey:   b.SignedPreKey.PublicHalf(),
	}
}
