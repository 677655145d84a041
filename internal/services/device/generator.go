package device

import (
	"context"
	"crypto/rand"
	"io"
	"math"
	"time"

	"cipherkeep/internal/crypto"
	"cipherkeep/internal/domain"
	"cipherkeep/internal/failure"
)

const (
	// DefaultPreKeyCount is the size of the initial one-time prekey batch.
	DefaultPreKeyCount = 100
	// MaxPreKeyCount bounds a single batch.
	MaxPreKeyCount = 1000

	// MaxRegistrationID is the largest registration id; ids start at 1.
	MaxRegistrationID = 16380

	maxSignedPreKeyID = math.MaxInt32
)

// Generator creates device bundles and one-time prekey batches.
type Generator struct {
	count int
	rand  io.Reader
	now   func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithPreKeyCount sets the initial one-time prekey batch size.
func WithPreKeyCount(n int) Option { return func(g *Generator) { g.count = n } }

// WithRand replaces the entropy source.
func WithRand(r io.Reader) Option { return func(g *Generator) { g.rand = r } }

// WithClock replaces the clock used for signed prekey timestamps.
func WithClock(now func() time.Time) Option { return func(g *Generator) { g.now = now } }

// New returns a Generator. The batch size must be within 1..MaxPreKeyCount.
func New(opts ...Option) (*Generator, error) {
	g := &Generator{count: DefaultPreKeyCount, rand: rand.Reader, now: time.Now}
	for _, o := range opts {
		o(g)
	}
	if err := checkCount(g.count); err != nil {
		return nil, err
	}
	return g, nil
}

// Generate creates a complete device bundle. The signed prekey is signed by
// the new identity's Ed25519 key over its raw 32-byte public key.
func (g *Generator) Generate(ctx context.Context) (domain.DeviceBundle, error) {
	var b domain.DeviceBundle

	xPriv, xPub, err := crypto.GenerateX25519From(g.rand)
	if err != nil {
		return b, failure.Generation("identity key", err)
	}
	edPriv, edPub, err := crypto.GenerateEd25519From(g.rand)
	if err != nil {
		return b, failure.Generation("signing key", err)
	}
	b.Identity = domain.IdentityKeyPair{XPub: xPub, XPriv: xPriv, EdPub: edPub, EdPriv: edPriv}

	regID, err := crypto.RandomUint32(g.rand, 1, MaxRegistrationID)
	if err != nil {
		return b, failure.Generation("registration id", err)
	}
	b.RegistrationID = domain.RegistrationID(regID)

	if err := ctx.Err(); err != nil {
		return domain.DeviceBundle{}, err
	}
	if b.SignedPreKey, err = g.signedPreKey(b.Identity); err != nil {
		return domain.DeviceBundle{}, err
	}

	if b.OneTimePreKeys, err = g.GenerateOneTimePreKeys(ctx, 1, g.count); err != nil {
		return domain.DeviceBundle{}, err
	}
	return b, nil
}

// GenerateOneTimePreKeys creates n one-time prekeys with ids first..first+n-1.
func (g *Generator) GenerateOneTimePreKeys(ctx context.Context, first domain.OneTimePreKeyID, n int) ([]domain.OneTimePreKeyRecord, error) {
	if err := checkCount(n); err != nil {
		return nil, err
	}
	if first == 0 || uint64(first)+uint64(n)-1 > math.MaxUint32 {
		return nil, failure.InvalidArg("one-time prekey id range out of bounds")
	}
	out := make([]domain.OneTimePreKeyRecord, 0, n)
	for i := 0; i < n; i++ {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		priv, pub, err := crypto.GenerateX25519From(g.rand)
		if err != nil {
			return nil, failure.Generation("one-time prekey", err)
		}
		out = append(out, domain.OneTimePreKeyRecord{
			KeyID:   first + domain.OneTimePreKeyID(i),
			Public:  pub,
			Private: priv,
		})
	}
	return out, nil
}

func (g *Generator) signedPreKey(id domain.IdentityKeyPair) (domain.SignedPreKeyRecord, error) {
	keyID, err := crypto.RandomUint32(g.rand, 1, maxSignedPreKeyID)
	if err != nil {
		return domain.SignedPreKeyRecord{}, failure.Generation("signed prekey id", err)
	}
	priv, pub, err := crypto.GenerateX25519From(g.rand)
	if err != nil {
		return domain.SignedPreKeyRecord{}, failure.Generation("signed prekey", err)
	}
	return domain.SignedPreKeyRecord{
		KeyID:     domain.SignedPreKeyID(keyID),
		Public:    pub,
		Private:   priv,
		Signature: crypto.SignEd25519(id.EdPriv, pub[:]),
		Timestamp: g.now().UTC(),
	}, nil
}

func checkCount(n int) error {
	if n < 1 || n > MaxPreKeyCount {
		return failure.Newf(failure.ReasonInvalidArgument, "one-time prekey count %d not in 1..%d", n, MaxPreKeyCount)
	}
	return nil
}
