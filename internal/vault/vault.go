package vault

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"sync"

	"cipherkeep/internal/failure"
)

// Collection names a group of values stored together.
type Collection string

const (
	Identity          Collection = "identity"
	Registration      Collection = "registration"
	SignedPreKeys     Collection = "signed_prekeys"
	OneTimePreKeys    Collection = "one_time_prekeys"
	Sessions          Collection = "sessions"
	TrustedIdentities Collection = "trusted_identities"
	Profile           Collection = "profile"
)

// Collections lists every collection a backend must be able to hold.
func Collections() []Collection {
	return []Collection{Identity, Registration, SignedPreKeys, OneTimePreKeys, Sessions, TrustedIdentities, Profile}
}

func (c Collection) valid() bool {
	switch c {
	case Identity, Registration, SignedPreKeys, OneTimePreKeys, Sessions, TrustedIdentities, Profile:
		return true
	}
	return false
}

// Backend is durable storage for a Vault.
type Backend interface {
	Load(ctx context.Context) (map[Collection]map[string][]byte, error)
	Put(ctx context.Context, c Collection, key string, value []byte) error
	Delete(ctx context.Context, c Collection, key string) error
	Close() error
}

// Sealer encrypts values at rest.
type Sealer interface {
	Seal(ad, plaintext []byte) ([]byte, error)
	Open(ad, sealed []byte) ([]byte, error)
}

// ErrClosed is returned by writes after Close.
var ErrClosed = failure.FailedPrecondition("vault is closed")

const queueSize = 256

type op struct {
	coll  Collection
	key   string
	value []byte
	del   bool
	flush chan error
}

// Vault is a concurrency-safe key store with write-through persistence.
type Vault struct {
	mu     sync.RWMutex
	data   map[Collection]map[string][]byte
	closed bool

	// trustMu serialises read-modify-write on pinned identities.
	trustMu sync.Mutex

	backend Backend
	sealer  Sealer
	log     *slog.Logger

	ops  chan op
	done chan struct{}

	// errs is only touched by the worker.
	errs []error
}

// Option configures a Vault.
type Option func(*Vault)

// WithSealer seals every value before it reaches the backend.
func WithSealer(s Sealer) Option { return func(v *Vault) { v.sealer = s } }

// WithLogger sets the logger used for background write failures.
func WithLogger(l *slog.Logger) Option { return func(v *Vault) { v.log = l } }

// Open hydrates a Vault from backend and starts its writer.
func Open(ctx context.Context, backend Backend, opts ...Option) (*Vault, error) {
	v := &Vault{
		data:    make(map[Collection]map[string][]byte),
		backend: backend,
		log:     slog.Default(),
		ops:     make(chan op, queueSize),
		done:    make(chan struct{}),
	}
	for _, o := range opts {
		o(v)
	}
	for _, c := range Collections() {
		v.data[c] = make(map[string][]byte)
	}

	loaded, err := backend.Load(ctx)
	if err != nil {
		return nil, failure.Internal("load vault", err)
	}
	for c, kv := range loaded {
		if !c.valid() {
			v.log.Warn("vault: ignoring unknown collection", "collection", c)
			continue
		}
		for k, raw := range kv {
			val := raw
			if v.sealer != nil {
				if val, err = v.sealer.Open(ad(c, k), raw); err != nil {
					return nil, failure.Wrap(failure.ReasonDecryptionFailed, "open vault value "+string(c)+"/"+k, err)
				}
			}
			v.data[c][k] = val
		}
	}

	go v.run()
	return v, nil
}

// Get returns a copy of the value stored under c/key.
func (v *Vault) Get(c Collection, key string) ([]byte, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	val, ok := v.data[c][key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), val...), true
}

// Put stores value under c/key.
func (v *Vault) Put(c Collection, key string, value []byte) error {
	if !c.valid() {
		return failure.InvalidArg("unknown vault collection " + string(c))
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}
	val := append([]byte(nil), value...)
	v.data[c][key] = val
	v.ops <- op{coll: c, key: key, value: val}
	return nil
}

// Delete removes c/key. Deleting a missing key is not an error.
func (v *Vault) Delete(c Collection, key string) error {
	if !c.valid() {
		return failure.InvalidArg("unknown vault collection " + string(c))
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrClosed
	}
	if _, ok := v.data[c][key]; !ok {
		return nil
	}
	delete(v.data[c], key)
	v.ops <- op{coll: c, key: key, del: true}
	return nil
}

// Keys returns the sorted keys of c.
func (v *Vault) Keys(c Collection) []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	keys := make([]string, 0, len(v.data[c]))
	for k := range v.data[c] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of values in c.
func (v *Vault) Len(c Collection) int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.data[c])
}

// Flush waits until every write made before the call reached the backend
// and returns the failures seen since the previous Flush.
func (v *Vault) Flush(ctx context.Context) error {
	v.mu.RLock()
	if v.closed {
		v.mu.RUnlock()
		return nil
	}
	reply := make(chan error, 1)
	v.ops <- op{flush: reply}
	v.mu.RUnlock()

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close flushes pending writes, stops the writer and closes the backend.
func (v *Vault) Close(ctx context.Context) error {
	flushErr := v.Flush(ctx)

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return flushErr
	}
	v.closed = true
	close(v.ops)
	v.mu.Unlock()

	select {
	case <-v.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := v.backend.Close(); err != nil && flushErr == nil {
		return failure.Internal("close vault backend", err)
	}
	return flushErr
}

func (v *Vault) run() {
	defer close(v.done)
	ctx := context.Background()
	for o := range v.ops {
		if o.flush != nil {
			o.flush <- v.drainErrors()
			continue
		}
		if err := v.apply(ctx, o); err != nil {
			v.log.Warn("vault: write failed", "collection", o.coll, "key", o.key, "err", err)
			v.errs = append(v.errs, err)
		}
	}
}

func (v *Vault) apply(ctx context.Context, o op) error {
	if o.del {
		return v.backend.Delete(ctx, o.coll, o.key)
	}
	val := o.value
	if v.sealer != nil {
		sealed, err := v.sealer.Seal(ad(o.coll, o.key), val)
		if err != nil {
			return err
		}
		val = sealed
	}
	return v.backend.Put(ctx, o.coll, o.key, val)
}

func (v *Vault) drainErrors() error {
	if len(v.errs) == 0 {
		return nil
	}
	first := v.errs[0]
	n := len(v.errs)
	v.errs = nil
	if n == 1 {
		return failure.Internal("vault write", first)
	}
	return failure.Wrap(failure.ReasonInternal, "vault: "+strconv.Itoa(n)+" writes failed, first", first)
}

func ad(c Collection, key string) []byte { return []byte(string(c) + "/" + key) }
