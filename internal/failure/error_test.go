package failure_test

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cipherkeep/internal/failure"
)

func TestReasonOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("login: %w", failure.Wrap(failure.ReasonDecryptionFailed, "open identity", io.ErrUnexpectedEOF))

	assert.Equal(t, failure.ReasonDecryptionFailed, failure.ReasonOf(err))
	assert.True(t, errors.Is(err, failure.ErrDecryptionFailed))
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	assert.False(t, errors.Is(err, failure.ErrSignatureInvalid))
}

func TestReasonOf_PlainAndNil(t *testing.T) {
	assert.Equal(t, failure.Reason(""), failure.ReasonOf(nil))
	assert.Equal(t, failure.ReasonUnknown, failure.ReasonOf(errors.New("boom")))
}

func TestWrap_NilCause(t *testing.T) {
	require.NoError(t, failure.Wrap(failure.ReasonInternal, "x", nil))
}

func TestHas(t *testing.T) {
	err := failure.Network("POST /v1/devices", io.EOF)
	assert.True(t, failure.Has(err, failure.ReasonNetworkError))
	assert.Contains(t, err.Error(), "POST /v1/devices")
}

func TestOnly(t *testing.T) {
	exhausted := fmt.Errorf("device a: %w", failure.ErrPreKeysExhausted)
	forged := fmt.Errorf("device b: %w", failure.ErrSignatureInvalid)

	assert.True(t, failure.Only(exhausted, failure.ReasonPreKeysExhausted))
	assert.True(t, failure.Only(errors.Join(exhausted, exhausted), failure.ReasonPreKeysExhausted))
	assert.False(t, failure.Only(errors.Join(exhausted, forged), failure.ReasonPreKeysExhausted))
	assert.False(t, failure.Only(fmt.Errorf("chat: %w", errors.Join(forged, exhausted)), failure.ReasonPreKeysExhausted))
	assert.False(t, failure.Only(nil, failure.ReasonPreKeysExhausted))
	assert.False(t, failure.Only(io.EOF, failure.ReasonPreKeysExhausted))
}

func TestUserMessage_Distinguishable(t *testing.T) {
	seen := map[string]failure.Reason{}
	for _, r := range []failure.Reason{
		failure.ReasonWeakPassword,
		failure.ReasonSignatureInvalid,
		failure.ReasonDecryptionFailed,
		failure.ReasonPreKeysExhausted,
		failure.ReasonNetworkError,
	} {
		msg := r.UserMessage()
		prev, dup := seen[msg]
		require.Falsef(t, dup, "%s and %s share a message", r, prev)
		seen[msg] = r
	}
}
