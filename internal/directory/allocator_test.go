package directory_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cipherkeep/internal/directory"
	"cipherkeep/internal/domain"
	"cipherkeep/internal/failure"
)

func TestAllocator_AllocateUntilExhausted(t *testing.T) {
	ctx := context.Background()
	s := directory.NewMemoryStore()
	d := activeDevice(t, s, "alice", 3)

	var logs bytes.Buffer
	a := directory.NewAllocator(s, 2, slog.New(slog.NewTextHandler(&logs, nil)))

	first, err := a.Allocate(ctx, d.UserID, d.DeviceID)
	require.NoError(t, err)
	require.False(t, first.Exhausted())
	assert.EqualValues(t, 1, first.Key.KeyID)
	assert.Equal(t, 2, first.Remaining)
	assert.NotContains(t, logs.String(), "low-water")

	second, err := a.Allocate(ctx, d.UserID, d.DeviceID)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Remaining)
	assert.Contains(t, logs.String(), "low-water")

	_, err = a.Allocate(ctx, d.UserID, d.DeviceID)
	require.NoError(t, err)

	last, err := a.Allocate(ctx, d.UserID, d.DeviceID)
	require.NoError(t, err, "exhaustion is not an error")
	assert.True(t, last.Exhausted())
	assert.Zero(t, last.Remaining)
	assert.Contains(t, logs.String(), "exhausted")
}

func TestAllocator_UnknownDevice(t *testing.T) {
	a := directory.NewAllocator(directory.NewMemoryStore(), 0, nil)
	_, err := a.Allocate(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, failure.ErrNotFound)
}

func TestAllocator_Bundles(t *testing.T) {
	ctx := context.Background()
	s := directory.NewMemoryStore()
	d := activeDevice(t, s, "bob", 1)
	a := directory.NewAllocator(s, 0, nil)

	bundles, err := a.Bundles(ctx, d.UserID)
	require.NoError(t, err)
	require.Len(t, bundles, 1)
	require.NotNil(t, bundles[0].OneTimePreKey)

	b, err := a.Bundle(ctx, d)
	require.NoError(t, err)
	assert.Nil(t, b.OneTimePreKey, "second fetch runs without a one-time prekey")
	assert.Equal(t, d, b.Address())
}

func TestAllocator_BundleGoesThroughAllocate(t *testing.T) {
	ctx := context.Background()
	s := directory.NewMemoryStore()
	d := activeDevice(t, s, "carol", 2)

	var logs bytes.Buffer
	a := directory.NewAllocator(s, 0, slog.New(slog.NewTextHandler(&logs, nil)))

	b, err := a.Bundle(ctx, d)
	require.NoError(t, err)
	require.NotNil(t, b.OneTimePreKey)
	assert.EqualValues(t, 1, b.OneTimePreKey.KeyID)
	assert.Contains(t, logs.String(), "low-water", "allocation bookkeeping runs for single bundles")

	next, err := a.Allocate(ctx, d.UserID, d.DeviceID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, next.Key.KeyID)

	_, err = a.Bundle(ctx, domain.Address{UserID: d.UserID, DeviceID: uuid.New()})
	assert.ErrorIs(t, err, failure.ErrNotFound)
}
