package directory

import (
	"context"
	"log/slog"

	"cipherkeep/internal/domain"
)

// DefaultLowWater is the pool size under which a replenish hint is logged.
const DefaultLowWater = 10

// Allocation is the outcome of claiming a one-time prekey for one device.
// A nil Key means the pool was exhausted; that is not an error.
type Allocation struct {
	Key       *domain.OneTimePreKeyPublic
	Remaining int
}

// Exhausted reports whether no key was available.
func (a Allocation) Exhausted() bool { return a.Key == nil }

// Allocator hands out one-time prekeys and bundles with exactly-once
// semantics delegated to the store.
type Allocator struct {
	store    Store
	lowWater int
	log      *slog.Logger
}

// NewAllocator returns an Allocator over s. lowWater <= 0 selects
// DefaultLowWater.
func NewAllocator(s Store, lowWater int, log *slog.Logger) *Allocator {
	if lowWater <= 0 {
		lowWater = DefaultLowWater
	}
	if log == nil {
		log = slog.Default()
	}
	return &Allocator{store: s, lowWater: lowWater, log: log}
}

// Allocate claims at most one key of userID/deviceID.
func (a *Allocator) Allocate(ctx context.Context, userID domain.UserID, deviceID domain.DeviceID) (Allocation, error) {
	addr := domain.Address{UserID: userID, DeviceID: deviceID}
	k, ok, err := a.store.ConsumeOneOneTimePreKey(ctx, addr)
	if err != nil {
		return Allocation{}, err
	}
	var alloc Allocation
	if ok {
		alloc.Key = &k
	}
	if alloc.Remaining, err = a.remaining(ctx, addr, alloc.Exhausted()); err != nil {
		return Allocation{}, err
	}
	return alloc, nil
}

// Bundles returns one bundle per active device of userID.
func (a *Allocator) Bundles(ctx context.Context, userID domain.UserID) ([]domain.PreKeyBundle, error) {
	bundles, err := a.store.FetchRegistrationBundle(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, b := range bundles {
		if _, err := a.remaining(ctx, b.Address(), b.OneTimePreKey == nil); err != nil {
			return nil, err
		}
	}
	return bundles, nil
}

// Bundle returns the bundle of one active device, claiming its key through
// Allocate. Device state only moves forward, so an active device stays
// active between the two calls.
func (a *Allocator) Bundle(ctx context.Context, addr domain.Address) (domain.PreKeyBundle, error) {
	d, err := a.store.Device(ctx, addr)
	if err != nil {
		return domain.PreKeyBundle{}, err
	}
	if d.State != domain.StateActive {
		return domain.PreKeyBundle{}, notActive(addr)
	}
	alloc, err := a.Allocate(ctx, addr.UserID, addr.DeviceID)
	if err != nil {
		return domain.PreKeyBundle{}, err
	}
	return bundleFor(d, alloc.Key), nil
}

func (a *Allocator) remaining(ctx context.Context, addr domain.Address, exhausted bool) (int, error) {
	n, err := a.store.CountAvailableOneTimePreKeys(ctx, addr)
	if err != nil {
		return 0, err
	}
	switch {
	case exhausted:
		a.log.WarnContext(ctx, "one-time prekeys exhausted", "device", addr.String())
	case n < a.lowWater:
		a.log.InfoContext(ctx, "one-time prekeys below low-water mark", "device", addr.String(), "remaining", n, "low_water", a.lowWater)
	}
	return n, nil
}
