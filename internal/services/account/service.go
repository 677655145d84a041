package account

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"cipherkeep/internal/custody"
	"cipherkeep/internal/domain"
	"cipherkeep/internal/envelope"
	"cipherkeep/internal/failure"
	"cipherkeep/internal/services/device"
)

// KeyGenerator creates device key material.
type KeyGenerator interface {
	Generate(ctx context.Context) (domain.DeviceBundle, error)
	GenerateOneTimePreKeys(ctx context.Context, first domain.OneTimePreKeyID, n int) ([]domain.OneTimePreKeyRecord, error)
}

// Service implements domain.AccountService.
type Service struct {
	dir    domain.Directory
	vault  domain.KeyVault
	gen    KeyGenerator
	params envelope.Params
	server string
	batch  int
	log    *slog.Logger
	now    func() time.Time

	// registering is held for the whole of a registration run.
	registering sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithGenerator replaces the default key generator.
func WithGenerator(g KeyGenerator) Option { return func(s *Service) { s.gen = g } }

// WithParams sets the Argon2id parameters.
func WithParams(p envelope.Params) Option { return func(s *Service) { s.params = p } }

// WithServerURL records the directory URL in the local profile.
func WithServerURL(u string) Option { return func(s *Service) { s.server = u } }

// WithReplenishBatch sets the smallest replenishment batch.
func WithReplenishBatch(n int) Option { return func(s *Service) { s.batch = n } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.log = l } }

// WithClock sets the time source.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// New returns a Service talking to dir and keeping keys in vault.
func New(dir domain.Directory, vault domain.KeyVault, opts ...Option) (*Service, error) {
	s := &Service{
		dir:    dir,
		vault:  vault,
		params: envelope.DefaultParams(),
		batch:  device.DefaultPreKeyCount,
		log:    slog.Default(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	if s.gen == nil {
		g, err := device.New()
		if err != nil {
			return nil, err
		}
		s.gen = g
	}
	if s.batch < 1 || s.batch > device.MaxPreKeyCount {
		return nil, failure.Newf(failure.ReasonInvalidArgument, "replenish batch %d not in 1..%d", s.batch, device.MaxPreKeyCount)
	}
	return s, nil
}

var _ domain.AccountService = (*Service)(nil)

// SignUp creates the account and registers this device as its first.
func (s *Service) SignUp(ctx context.Context, username domain.Username, password string) (domain.Profile, error) {
	if err := envelope.CheckPasswordPolicy(password); err != nil {
		return domain.Profile{}, err
	}
	if !username.Valid() {
		return domain.Profile{}, failure.InvalidArg("username must be 3-64 letters, digits, '_', '.' or '-'")
	}
	salt, err := envelope.NewSalt()
	if err != nil {
		return domain.Profile{}, err
	}
	keys, err := envelope.Derive(password, salt, s.params)
	if err != nil {
		return domain.Profile{}, err
	}
	defer keys.Wipe()

	if _, err := s.dir.CreateAccount(ctx, username, salt, keys.Verifier[:]); err != nil {
		return domain.Profile{}, err
	}
	creds, err := s.dir.Authenticate(ctx, username, keys.Verifier[:])
	if err != nil {
		return domain.Profile{}, err
	}
	s.log.InfoContext(ctx, "account created", "username", username, "user_id", creds.UserID)

	p := domain.Profile{
		ServerURL: s.server,
		Username:  username,
		UserID:    creds.UserID,
		Salt:      salt,
	}
	withCredentials(&p, creds)
	return s.register(ctx, p, &keys)
}

// RegisterDevice replaces this device's keys with a freshly generated
// identity and registers it as a new device of the logged-in account.
func (s *Service) RegisterDevice(ctx context.Context, password string) (domain.Profile, error) {
	p, keys, err := s.session(ctx, password, true)
	if err != nil {
		return domain.Profile{}, err
	}
	defer keys.Wipe()
	return s.register(ctx, p, keys)
}

// Resume continues a registration interrupted after the device was
// created on the server.
func (s *Service) Resume(ctx context.Context, password string) (domain.Profile, error) {
	p, keys, err := s.session(ctx, password, true)
	if err != nil {
		return domain.Profile{}, err
	}
	defer keys.Wipe()
	if p.State == domain.StateActive {
		return p, nil
	}
	if p.DeviceID == (domain.DeviceID{}) {
		return s.register(ctx, p, keys)
	}
	if !s.registering.TryLock() {
		return domain.Profile{}, failure.ErrRegistrationInProgress
	}
	defer s.registering.Unlock()

	b, err := s.localBundle()
	if err != nil {
		return domain.Profile{}, err
	}
	// The last step may have reached the server without its reply.
	st, err := s.dir.DeviceStatus(ctx, p.DeviceID)
	if err != nil {
		return p, stopped(p, err)
	}
	p.State = st.State
	if err := s.saveProfile(ctx, &p); err != nil {
		return domain.Profile{}, err
	}
	s.log.InfoContext(ctx, "resuming registration", "device", p.Address().String(), "state", p.State)
	return s.advance(ctx, p, keys, b)
}

// LogIn recovers this account's device keys from custody onto this device.
func (s *Service) LogIn(ctx context.Context, username domain.Username, password string) (domain.Profile, error) {
	salt, err := s.dir.FetchSalt(ctx, username)
	if err != nil {
		return domain.Profile{}, err
	}
	keys, err := envelope.Derive(password, salt, s.params)
	if err != nil {
		return domain.Profile{}, err
	}
	defer keys.Wipe()

	creds, err := s.dir.Authenticate(ctx, username, keys.Verifier[:])
	if err != nil {
		return domain.Profile{}, err
	}
	bundles, err := s.dir.LoadEncryptedPrivateKeys(ctx)
	if err != nil {
		return domain.Profile{}, err
	}
	if len(bundles) == 0 {
		return domain.Profile{}, failure.New(failure.ReasonNotFound, "no device keys in custody for this account")
	}
	// Bundles come newest first.
	enc := bundles[0]
	b, err := custody.OpenDevice(keys.Enc, enc)
	if err != nil {
		return domain.Profile{}, err
	}

	st, err := s.dir.DeviceStatus(ctx, enc.DeviceID)
	if err != nil {
		return domain.Profile{}, err
	}
	if st.State == domain.StateCustodyStored {
		if st, err = s.dir.ActivateDevice(ctx, enc.DeviceID); err != nil {
			return domain.Profile{}, err
		}
	}

	if err := s.vault.Reset(); err != nil {
		return domain.Profile{}, err
	}
	if err := s.storeLocal(b); err != nil {
		return domain.Profile{}, err
	}
	p := domain.Profile{
		ServerURL: s.server,
		Username:  username,
		UserID:    creds.UserID,
		DeviceID:  enc.DeviceID,
		Salt:      salt,
		State:     st.State,
	}
	withCredentials(&p, creds)
	if err := s.saveProfile(ctx, &p); err != nil {
		return domain.Profile{}, err
	}
	s.log.InfoContext(ctx, "device keys recovered", "device", p.Address().String(), "one_time_prekeys", len(b.OneTimePreKeys))
	return p, nil
}

// Replenish uploads a new batch of one-time prekeys when the server holds
// fewer than minimum. It returns the number uploaded.
func (s *Service) Replenish(ctx context.Context, password string, minimum int) (int, error) {
	p, _, err := s.session(ctx, password, false)
	if err != nil {
		return 0, err
	}
	if p.DeviceID == (domain.DeviceID{}) || p.State == domain.StatePending {
		return 0, failure.FailedPrecondition("finish device registration first")
	}
	st, err := s.dir.DeviceStatus(ctx, p.DeviceID)
	if err != nil {
		return 0, err
	}
	if st.AvailablePreKeys >= minimum {
		return 0, nil
	}
	n := minimum - st.AvailablePreKeys
	if n < s.batch {
		n = s.batch
	}
	if n > device.MaxPreKeyCount {
		n = device.MaxPreKeyCount
	}

	// Another client logged in to this device may have uploaded ids this
	// vault never saw.
	first := s.vault.MaxPreKeyID()
	if st.MaxPreKeyID > first {
		first = st.MaxPreKeyID
	}
	recs, err := s.gen.GenerateOneTimePreKeys(ctx, first+1, n)
	if err != nil {
		return 0, err
	}
	// Private halves must be durable before a peer can consume the publics.
	if err := s.vault.StorePreKeys(recs); err != nil {
		return 0, err
	}
	if err := s.vault.Flush(ctx); err != nil {
		return 0, err
	}
	publics := make([]domain.OneTimePreKeyPublic, 0, len(recs))
	for _, r := range recs {
		publics = append(publics, r.PublicHalf())
	}
	st, err = s.dir.UploadOneTimePreKeys(ctx, p.DeviceID, publics)
	if err != nil {
		s.dropPreKeys(ctx, recs)
		return 0, err
	}
	s.log.InfoContext(ctx, "one-time prekeys replenished",
		"device", p.Address().String(), "uploaded", len(publics), "available", st.AvailablePreKeys)
	return len(publics), nil
}

// dropPreKeys removes records whose public halves never reached the
// server, so that no private key sits behind an id published by someone else.
func (s *Service) dropPreKeys(ctx context.Context, recs []domain.OneTimePreKeyRecord) {
	for _, r := range recs {
		if err := s.vault.RemovePreKey(r.KeyID); err != nil {
			s.log.WarnContext(ctx, "drop unpublished prekey", "key_id", r.KeyID, "err", err)
		}
	}
	if err := s.vault.Flush(ctx); err != nil {
		s.log.WarnContext(ctx, "drop unpublished prekeys", "err", err)
	}
}

// Status reports the server's view of this device and records its state
// locally.
func (s *Service) Status(ctx context.Context, password string) (domain.DeviceStatus, error) {
	p, _, err := s.session(ctx, password, false)
	if err != nil {
		return domain.DeviceStatus{}, err
	}
	if p.DeviceID == (domain.DeviceID{}) {
		return domain.DeviceStatus{State: p.State}, nil
	}
	st, err := s.dir.DeviceStatus(ctx, p.DeviceID)
	if err != nil {
		return domain.DeviceStatus{}, err
	}
	if st.State != p.State {
		p.State = st.State
		if err := s.saveProfile(ctx, &p); err != nil {
			return domain.DeviceStatus{}, err
		}
	}
	return st, nil
}

// Authorize makes sure the directory client holds a valid token for the
// local account, logging in with password when the cached one expired.
func (s *Service) Authorize(ctx context.Context, password string) (domain.Profile, error) {
	p, _, err := s.session(ctx, password, false)
	return p, err
}

// session loads the profile and makes sure the directory client holds a
// valid token, logging in again when it expired. With needKeys the
// password is always verified by logging in, and the derived keys are
// returned for the caller to wipe.
func (s *Service) session(ctx context.Context, password string, needKeys bool) (domain.Profile, *envelope.Keys, error) {
	p, ok, err := s.vault.Profile()
	if err != nil {
		return domain.Profile{}, nil, err
	}
	if !ok {
		return domain.Profile{}, nil, failure.FailedPrecondition("no local account; sign up or log in first")
	}
	valid := p.TokenValid(s.now())
	if valid && !needKeys {
		s.dir.SetCredentials(domain.Credentials{UserID: p.UserID, Token: p.Token, ExpiresAt: p.TokenExp})
		return p, nil, nil
	}

	keys, err := envelope.Derive(password, p.Salt, s.params)
	if err != nil {
		return domain.Profile{}, nil, err
	}
	// Keys handed out may seal custody, so the password is always checked
	// against the server first; a live token proves nothing about it.
	creds, err := s.dir.Authenticate(ctx, p.Username, keys.Verifier[:])
	if err != nil {
		keys.Wipe()
		return domain.Profile{}, nil, err
	}
	withCredentials(&p, creds)
	if err := s.saveProfile(ctx, &p); err != nil {
		keys.Wipe()
		return domain.Profile{}, nil, err
	}
	if !needKeys {
		keys.Wipe()
		return p, nil, nil
	}
	return p, &keys, nil
}

func (s *Service) saveProfile(ctx context.Context, p *domain.Profile) error {
	p.UpdatedAt = s.now().UTC()
	if err := s.vault.SaveProfile(*p); err != nil {
		return err
	}
	return s.vault.Flush(ctx)
}

func withCredentials(p *domain.Profile, c domain.Credentials) {
	p.Token = c.Token
	p.TokenExp = c.ExpiresAt
}
