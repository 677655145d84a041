package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cipherkeep/internal/domain"
	"cipherkeep/internal/failure"
	"cipherkeep/internal/protocol/x3dh"
)

// Service performs X3DH as initiator and responder and persists sessions.
type Service struct {
	dir   domain.Directory
	vault domain.KeyVault
	log   *slog.Logger
	now   func() time.Time
}

// New constructs a Service.
func New(dir domain.Directory, vault domain.KeyVault, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{dir: dir, vault: vault, log: log, now: time.Now}
}

var _ domain.SessionService = (*Service)(nil)

// StartChat creates a session with each active device of peer. Devices
// whose bundle does not verify, or whose identity differs from the pinned
// one, are skipped; their errors are joined into the returned error
// alongside the sessions that were created. A device whose pool was empty
// still gets a degraded session and adds PREKEYS_EXHAUSTED to the error,
// so failure.Only(err, failure.ReasonPreKeysExhausted) means every device
// has a session.
func (s *Service) StartChat(ctx context.Context, peer domain.Username) ([]domain.Session, error) {
	id, self, err := s.local()
	if err != nil {
		return nil, err
	}
	bundles, err := s.dir.FetchRegistrationBundle(ctx, peer)
	if err != nil {
		return nil, err
	}

	var (
		sessions []domain.Session
		skipped  []error
	)
	for _, b := range bundles {
		addr := b.Address()
		if addr == self {
			continue
		}
		sess, err := s.initiate(id, b)
		if err != nil {
			s.log.WarnContext(ctx, "skipping peer device", "peer", addr.String(), "reason", failure.ReasonOf(err))
			skipped = append(skipped, fmt.Errorf("device %s: %w", addr, err))
			continue
		}
		if sess.Degraded() {
			s.log.InfoContext(ctx, "session without one-time prekey", "peer", addr.String())
			skipped = append(skipped, fmt.Errorf("device %s: %w", addr, failure.ErrPreKeysExhausted))
		}
		sessions = append(sessions, sess)
	}
	if len(sessions) > 0 {
		if err := s.vault.Flush(ctx); err != nil {
			return nil, err
		}
	}
	return sessions, errors.Join(skipped...)
}

func (s *Service) initiate(id domain.IdentityKeyPair, b domain.PreKeyBundle) (domain.Session, error) {
	if err := x3dh.VerifyBundle(b); err != nil {
		return domain.Session{}, err
	}
	if err := s.checkTrusted(b.Address(), b.IdentityKey); err != nil {
		return domain.Session{}, err
	}
	res, err := x3dh.InitiatorRoot(id, b)
	if err != nil {
		return domain.Session{}, err
	}
	sess := domain.Session{
		Peer:            b.Address(),
		PeerIdentity:    b.IdentityKey,
		RootKey:         res.RootKey,
		Initiator:       true,
		SignedPreKeyID:  res.SignedPreKeyID,
		OneTimePreKeyID: res.OneTimePreKeyID,
		EphemeralKey:    res.EphemeralKey,
		CreatedAt:       s.now().UTC(),
	}
	if err := s.vault.StoreSession(sess); err != nil {
		return domain.Session{}, err
	}
	return sess, nil
}

// PreKeyMessage returns the parameters the peer of sess needs to accept it.
func (s *Service) PreKeyMessage(sess domain.Session) (domain.PreKeyMessage, error) {
	if !sess.Initiator {
		return domain.PreKeyMessage{}, failure.InvalidArg("only the initiator sends a prekey message")
	}
	id, _, err := s.local()
	if err != nil {
		return domain.PreKeyMessage{}, err
	}
	regID, _, err := s.vault.RegistrationID()
	if err != nil {
		return domain.PreKeyMessage{}, err
	}
	return domain.PreKeyMessage{
		RegistrationID:       regID,
		InitiatorIdentityKey: id.XPub,
		EphemeralKey:         sess.EphemeralKey,
		SignedPreKeyID:       sess.SignedPreKeyID,
		OneTimePreKeyID:      sess.OneTimePreKeyID,
	}, nil
}

// Accept derives the responder side of a session started by from. The
// one-time prekey it used is deleted afterwards.
func (s *Service) Accept(
	ctx context.Context,
	from domain.Address,
	peerIdentity domain.IdentityPublic,
	msg domain.PreKeyMessage,
) (domain.Session, error) {
	if msg.InitiatorIdentityKey != peerIdentity.DH {
		return domain.Session{}, failure.InvalidArg("prekey message identity does not match the sender")
	}
	if err := s.checkTrusted(from, peerIdentity); err != nil {
		return domain.Session{}, err
	}
	id, _, err := s.local()
	if err != nil {
		return domain.Session{}, err
	}
	spk, ok, err := s.vault.LoadSignedPreKey(msg.SignedPreKeyID)
	if err != nil {
		return domain.Session{}, err
	}
	if !ok {
		return domain.Session{}, failure.Newf(failure.ReasonNotFound, "signed prekey %d not found", msg.SignedPreKeyID)
	}
	var opk *domain.X25519Private
	if msg.OneTimePreKeyID != nil {
		rec, ok, err := s.vault.LoadPreKey(*msg.OneTimePreKeyID)
		if err != nil {
			return domain.Session{}, err
		}
		if !ok {
			return domain.Session{}, failure.Newf(failure.ReasonNotFound, "one-time prekey %d not found or already used", *msg.OneTimePreKeyID)
		}
		opk = &rec.Private
	}

	root, err := x3dh.ResponderRoot(id, spk.Private, opk, msg)
	if err != nil {
		return domain.Session{}, err
	}
	sess := domain.Session{
		Peer:            from,
		PeerIdentity:    peerIdentity,
		RootKey:         root,
		SignedPreKeyID:  msg.SignedPreKeyID,
		OneTimePreKeyID: msg.OneTimePreKeyID,
		EphemeralKey:    msg.EphemeralKey,
		CreatedAt:       s.now().UTC(),
	}
	if err := s.vault.StoreSession(sess); err != nil {
		return domain.Session{}, err
	}
	if msg.OneTimePreKeyID != nil {
		if err := s.vault.RemovePreKey(*msg.OneTimePreKeyID); err != nil {
			return domain.Session{}, err
		}
	}
	if err := s.vault.Flush(ctx); err != nil {
		return domain.Session{}, err
	}
	return sess, nil
}

// Trust pins identity for peer after the user compared safety numbers.
func (s *Service) Trust(peer domain.Address, identity domain.IdentityPublic) error {
	if err := s.vault.TrustIdentity(peer, identity); err != nil {
		return err
	}
	s.log.Info("identity re-pinned", "peer", peer.String())
	return nil
}

// GetSession returns the stored session with peer.
func (s *Service) GetSession(peer domain.Address) (domain.Session, bool, error) {
	return s.vault.LoadSession(peer)
}

func (s *Service) checkTrusted(peer domain.Address, id domain.IdentityPublic) error {
	ok, err := s.vault.CheckTrusted(peer, id)
	if err != nil {
		return err
	}
	if !ok {
		return failure.Wrap(failure.ReasonUntrustedIdentity, "identity of "+peer.String()+" changed", failure.ErrUntrustedIdentity)
	}
	return nil
}

func (s *Service) local() (domain.IdentityKeyPair, domain.Address, error) {
	id, ok, err := s.vault.IdentityKeyPair()
	if err != nil {
		return domain.IdentityKeyPair{}, domain.Address{}, err
	}
	if !ok {
		return domain.IdentityKeyPair{}, domain.Address{}, failure.FailedPrecondition("no local identity; sign up or log in first")
	}
	p, _, err := s.vault.Profile()
	if err != nil {
		return domain.IdentityKeyPair{}, domain.Address{}, err
	}
	return id, p.Address(), nil
}
